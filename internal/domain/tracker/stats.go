package tracker

import "github.com/okian/wandbrain/internal/domain/model"

// Counters are cumulative tracker event counts.
type Counters struct {
	Received    uint64 `json:"received"`
	Dropped     uint64 `json:"dropped"`
	Ignored     uint64 `json:"ignored"`
	Appended    uint64 `json:"appended"`
	Evicted     uint64 `json:"evicted"`
	Finalized   uint64 `json:"finalized"`
	NoOps       uint64 `json:"noops"`
	LiveRenders uint64 `json:"live_renders"`
}

// BufferInfo describes one in-flight attempt buffer.
type BufferInfo struct {
	model.AttemptKey
	Points int `json:"points"`
}

func (b BufferInfo) less(o BufferInfo) bool {
	if b.Device != o.Device {
		return b.Device < o.Device
	}
	if b.Wand != o.Wand {
		return b.Wand < o.Wand
	}
	return b.Attempt < o.Attempt
}

// TrackerStats is a point-in-time snapshot of tracker state.
type TrackerStats struct {
	Counters  Counters           `json:"counters"`
	Buffers   []BufferInfo       `json:"buffers"`
	Wands     []model.WandStatus `json:"wands"`
	Live      map[uint16]string  `json:"live"`
	LastEvent *model.PointEvent  `json:"last_event,omitempty"`
}
