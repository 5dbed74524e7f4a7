package wbtx

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/wandbrain/internal/domain/model"
)

// StrokeFromRunID derives a non-zero attempt id from a run id.
func StrokeFromRunID(id uuid.UUID) uint32 {
	s := binary.BigEndian.Uint32(id[:4])
	if s == 0 {
		s = 1
	}
	return s
}

// Generate builds the events of one attempt: SampleCount pen-down samples
// followed by a pen-up stroke_end sample at the last position.
func Generate(cfg *Config) ([]model.PointEvent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	shape, _ := LookupShape(cfg.Shape)
	n := cfg.SampleCount()
	stepMS := uint32(math.Max(1, math.Round(1000/cfg.Rate)))

	var noise func() float64
	if cfg.Jitter > 0 {
		dist := distuv.Normal{
			Mu:    0,
			Sigma: cfg.Jitter,
			Src:   rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15),
		}
		noise = dist.Rand
	}

	events := make([]model.PointEvent, 0, n+1)
	for i := 0; i < n; i++ {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		x, y := shape(t)
		x += cfg.DriftX * t
		y += cfg.DriftY * t
		if noise != nil {
			x += noise()
			y += noise()
		}
		events = append(events, model.PointEvent{
			DeviceNumber: cfg.Device,
			WandID:       cfg.Wand,
			StrokeID:     cfg.Stroke,
			PacketNumber: uint32(i),
			X:            clampUnit(x),
			Y:            clampUnit(y),
			TimestampMS:  cfg.StartMS + uint32(i)*stepMS,
			PenDown:      true,
			StrokeStart:  i == 0,
		})
	}

	last := events[len(events)-1]
	events = append(events, model.PointEvent{
		DeviceNumber: cfg.Device,
		WandID:       cfg.Wand,
		StrokeID:     cfg.Stroke,
		PacketNumber: uint32(n),
		X:            last.X,
		Y:            last.Y,
		TimestampMS:  last.TimestampMS + stepMS,
		StrokeEnd:    true,
	})
	return events, nil
}

func clampUnit(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
