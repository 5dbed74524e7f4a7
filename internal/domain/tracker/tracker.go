// Package tracker reconstructs wand attempts from a stream of point events.
//
// Each wand is either idle or active on one attempt id. Pen-down samples are
// buffered per (device, wand, attempt); stroke_end closes the attempt, renders
// it and hands the result to the result store and finalize listeners. While an
// attempt is open its trace is rendered to a live preview at most once per
// throttle interval.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/okian/wandbrain/internal/domain/clock"
	"github.com/okian/wandbrain/internal/domain/codec"
	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/internal/domain/raster"
	"github.com/okian/wandbrain/pkg/logger"
	"github.com/okian/wandbrain/pkg/metrics"
)

// Rasterizer renders an ordered point list.
type Rasterizer interface {
	Render(points []model.Point) (*image.Gray, error)
}

// ImageSink persists renders and returns their paths.
type ImageSink interface {
	WriteLive(ctx context.Context, wand uint16, img image.Image) (string, error)
	WriteFinal(ctx context.Context, name string, img image.Image) (string, error)
}

// Results stores finalized attempts.
type Results interface {
	Put(ctx context.Context, res model.FinalResult) error
	Latest(ctx context.Context, device, wand uint16) (model.FinalResult, error)
	ByAttempt(ctx context.Context, attempt uint32) (model.FinalResult, error)
}

// FinalizeListener is notified after a result has been stored.
type FinalizeListener func(ctx context.Context, res model.FinalResult)

// ErrNoResults is returned by result lookups when no store is configured.
var ErrNoResults = errors.New("tracker: no result store")

type attemptBuffer struct {
	points   []model.Point
	lastLive time.Time
	rendered bool
}

// Tracker owns every in-flight attempt buffer and per-wand status.
type Tracker struct {
	mu       sync.RWMutex
	buffers  map[model.AttemptKey]*attemptBuffer
	active   map[model.WandKey]uint32 // in-flight attempt per (device, wand)
	wands    map[uint16]*model.WandStatus
	live     map[uint16]string
	last     model.PointEvent
	hasLast  bool
	counters Counters

	clock        clock.Clock
	renderer     Rasterizer
	sink         ImageSink
	results      Results
	listeners    []FinalizeListener
	maxPoints    int
	liveInterval time.Duration
	acceptLegacy bool
	logger       logger.Logger
}

// New creates a Tracker that writes images to sink and results to results.
func New(sink ImageSink, results Results, opts ...Option) *Tracker {
	t := &Tracker{
		buffers:      make(map[model.AttemptKey]*attemptBuffer),
		active:       make(map[model.WandKey]uint32),
		wands:        make(map[uint16]*model.WandStatus),
		live:         make(map[uint16]string),
		clock:        clock.System{},
		renderer:     raster.New(),
		sink:         sink,
		results:      results,
		maxPoints:    DefaultMaxPoints,
		liveInterval: DefaultLiveRenderInterval,
		logger:       logger.Get().Named("tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Submit decodes a raw datagram and applies it.
func (t *Tracker) Submit(ctx context.Context, raw []byte) Outcome {
	t.mu.Lock()
	t.counters.Received++
	t.mu.Unlock()

	ev, err := codec.Decode(raw)
	if err != nil && t.acceptLegacy {
		if legacy, lerr := codec.DecodeLegacy(raw); lerr == nil {
			ev, err = legacy, nil
		}
	}
	if err != nil {
		t.mu.Lock()
		t.counters.Dropped++
		t.mu.Unlock()
		metrics.RecordPacketDropped(codec.Reason(err))
		t.logger.Debug(ctx, "dropped datagram", logger.Int("len", len(raw)), logger.Error(err))
		return Dropped
	}
	return t.Handle(ctx, ev)
}

// Handle applies a decoded event to the state machine. Attempts are tracked
// per (device, wand); the wand status shows the in-flight attempt of the
// device that sent the event, falling back to any other device on that wand.
func (t *Tracker) Handle(ctx context.Context, ev model.PointEvent) Outcome {
	key := model.AttemptKey{Device: ev.DeviceNumber, Wand: ev.WandID, Attempt: ev.StrokeID}
	wk := model.WandKey{Device: ev.DeviceNumber, Wand: ev.WandID}

	t.mu.Lock()
	t.last, t.hasLast = ev, true
	st := t.wand(ev.WandID)
	st.LastPointMS = ev.TimestampMS

	switch {
	case ev.StrokeEnd && !ev.Legacy:
		if cur, open := t.active[wk]; open && cur != ev.StrokeID {
			// A late end for another stroke leaves the open attempt in flight.
			t.logger.Debug(ctx, "stroke_end for a different attempt than active",
				logger.Uint32("active", cur), logger.Uint32("ended", ev.StrokeID))
		} else {
			delete(t.active, wk)
		}
		buf := t.popLocked(key)
		t.refreshWandLocked(st, ev.DeviceNumber)
		t.mu.Unlock()
		return t.finalize(ctx, key, buf, ReasonStrokeEnd)

	case !ev.PenDown:
		t.counters.Ignored++
		t.mu.Unlock()
		metrics.RecordPointIgnored()
		return Ignored
	}

	// A new stroke id from the same device means its previous stroke_end was
	// lost. Legacy points never end or replace a stroke.
	cur, open := t.active[wk]
	supersede := open && cur != ev.StrokeID && !ev.Legacy
	var (
		supersededKey model.AttemptKey
		superseded    *attemptBuffer
	)
	if supersede {
		supersededKey = model.AttemptKey{Device: ev.DeviceNumber, Wand: ev.WandID, Attempt: cur}
		superseded = t.popLocked(supersededKey)
	}
	if !open || supersede {
		t.active[wk] = ev.StrokeID
	}
	t.refreshWandLocked(st, ev.DeviceNumber)

	buf, ok := t.buffers[key]
	if !ok {
		buf = &attemptBuffer{points: make([]model.Point, 0, 64)}
		t.buffers[key] = buf
	}
	buf.points = append(buf.points, ev.Point())
	evicted := 0
	if over := len(buf.points) - t.maxPoints; over > 0 {
		n := copy(buf.points, buf.points[over:])
		buf.points = buf.points[:n]
		evicted = over
		t.counters.Evicted += uint64(over)
	}
	t.counters.Appended++

	var snapshot []model.Point
	now := t.clock.Now()
	if !buf.rendered || now.Sub(buf.lastLive) >= t.liveInterval {
		buf.rendered = true
		buf.lastLive = now
		snapshot = append([]model.Point(nil), buf.points...)
	}
	active := len(t.buffers)
	t.mu.Unlock()

	metrics.RecordPointAppended()
	metrics.UpdateActiveAttempts(active)
	if evicted > 0 {
		metrics.RecordPointsEvicted(evicted)
	}

	if supersede {
		t.logger.Info(ctx, "attempt superseded by a new stroke id",
			logger.Int("wand", int(supersededKey.Wand)),
			logger.Uint32("attempt", supersededKey.Attempt),
			logger.Uint32("next", ev.StrokeID))
		t.finalize(ctx, supersededKey, superseded, ReasonSuperseded)
	}
	if snapshot != nil {
		t.renderLive(ctx, ev.WandID, snapshot)
	}
	return Appended
}

// wand returns the status for id, creating it when absent. Caller holds mu.
func (t *Tracker) wand(id uint16) *model.WandStatus {
	st, ok := t.wands[id]
	if !ok {
		st = &model.WandStatus{WandID: id}
		t.wands[id] = st
	}
	return st
}

// refreshWandLocked derives st from the in-flight attempts on its wand,
// preferring device and otherwise the lowest device number. Caller holds mu.
func (t *Tracker) refreshWandLocked(st *model.WandStatus, device uint16) {
	if a, ok := t.active[model.WandKey{Device: device, Wand: st.WandID}]; ok {
		st.Active, st.Device, st.CurrentAttemptID = true, device, a
		return
	}
	found := false
	for k, a := range t.active {
		if k.Wand != st.WandID || (found && k.Device > st.Device) {
			continue
		}
		found = true
		st.Active, st.Device, st.CurrentAttemptID = true, k.Device, a
	}
	if !found {
		st.Active, st.Device, st.CurrentAttemptID = false, device, 0
	}
}

// popLocked removes and returns the buffer under key. Caller holds mu.
func (t *Tracker) popLocked(key model.AttemptKey) *attemptBuffer {
	buf, ok := t.buffers[key]
	if !ok {
		return nil
	}
	delete(t.buffers, key)
	return buf
}

func (t *Tracker) renderLive(ctx context.Context, wand uint16, points []model.Point) {
	start := time.Now()
	img, err := t.renderer.Render(points)
	if err != nil {
		metrics.RecordRenderError("live")
		t.logger.Warn(ctx, "live render failed", logger.Int("wand", int(wand)), logger.Error(err))
		return
	}
	metrics.RecordRenderLatency("live", float64(time.Since(start).Microseconds())/1000)

	if t.sink == nil {
		return
	}
	path, err := t.sink.WriteLive(ctx, wand, img)
	if err != nil {
		metrics.RecordRenderError("live_write")
		t.logger.Warn(ctx, "live preview write failed", logger.Int("wand", int(wand)), logger.Error(err))
		return
	}

	t.mu.Lock()
	t.live[wand] = path
	t.counters.LiveRenders++
	t.mu.Unlock()
	metrics.RecordLiveRender()
}

// finalize renders and stores a popped buffer. It runs without holding mu.
func (t *Tracker) finalize(ctx context.Context, key model.AttemptKey, buf *attemptBuffer, reason string) Outcome {
	if buf == nil || len(buf.points) == 0 {
		t.mu.Lock()
		t.counters.NoOps++
		t.mu.Unlock()
		metrics.RecordFinalizeNoop()
		return NoOp
	}

	points := buf.points
	finalizedAt := t.clock.Now()
	res := model.FinalResult{
		Device:      key.Device,
		Wand:        key.Wand,
		AttemptID:   key.Attempt,
		NumPoints:   len(points),
		StartMS:     points[0].TimestampMS,
		EndMS:       points[len(points)-1].TimestampMS,
		FinalizedAt: finalizedAt,
		Reason:      reason,
	}

	start := time.Now()
	img, err := t.renderer.Render(points)
	if err != nil {
		metrics.RecordRenderError("final")
		t.logger.Error(ctx, "final render failed", logger.Uint32("attempt", key.Attempt), logger.Error(err))
	} else {
		metrics.RecordRenderLatency("final", float64(time.Since(start).Microseconds())/1000)
		if t.sink != nil {
			name := FinalImageName(key, finalizedAt)
			if path, werr := t.sink.WriteFinal(ctx, name, img); werr != nil {
				metrics.RecordRenderError("final_write")
				t.logger.Error(ctx, "final render write failed", logger.String("name", name), logger.Error(werr))
			} else {
				res.RenderPath = path
			}
		}
	}

	if t.results != nil {
		if err := t.results.Put(ctx, res); err != nil {
			t.logger.Error(ctx, "store result failed", logger.Uint32("attempt", key.Attempt), logger.Error(err))
		}
	}

	t.mu.Lock()
	if res.RenderPath != "" {
		t.live[key.Wand] = res.RenderPath
	}
	t.counters.Finalized++
	active := len(t.buffers)
	t.mu.Unlock()

	metrics.RecordAttemptFinalized(reason)
	metrics.UpdateActiveAttempts(active)
	t.logger.Info(ctx, "attempt finalized",
		logger.Int("device", int(key.Device)),
		logger.Int("wand", int(key.Wand)),
		logger.Uint32("attempt", key.Attempt),
		logger.Int("points", res.NumPoints),
		logger.String("reason", reason),
		logger.String("render", res.RenderPath))

	for _, l := range t.listeners {
		l(ctx, res)
	}
	return Finalized
}

// FinalImageName is the unique file name of a finalized attempt.
func FinalImageName(key model.AttemptKey, finalizedAt time.Time) string {
	return fmt.Sprintf("d%d_w%d_a%d_%d.png", key.Device, key.Wand, key.Attempt, finalizedAt.UnixMilli())
}

// CurrentBuffer returns a copy of the in-flight points of an attempt, or nil.
func (t *Tracker) CurrentBuffer(device, wand uint16, attempt uint32) []model.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	buf, ok := t.buffers[model.AttemptKey{Device: device, Wand: wand, Attempt: attempt}]
	if !ok {
		return nil
	}
	return append([]model.Point(nil), buf.points...)
}

// WandStatus returns the status of a wand seen at least once.
func (t *Tracker) WandStatus(wand uint16) (model.WandStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.wands[wand]
	if !ok {
		return model.WandStatus{}, false
	}
	return *st, true
}

// LatestResult returns the most recent finalized attempt of a device's wand.
func (t *Tracker) LatestResult(ctx context.Context, device, wand uint16) (model.FinalResult, error) {
	if t.results == nil {
		return model.FinalResult{}, ErrNoResults
	}
	return t.results.Latest(ctx, device, wand)
}

// ResultByAttempt returns a finalized attempt by id.
func (t *Tracker) ResultByAttempt(ctx context.Context, attempt uint32) (model.FinalResult, error) {
	if t.results == nil {
		return model.FinalResult{}, ErrNoResults
	}
	return t.results.ByAttempt(ctx, attempt)
}

// LivePreview returns the path of the wand's latest preview image.
func (t *Tracker) LivePreview(wand uint16) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.live[wand]
	return p, ok
}

// LastEvent returns the most recently applied event.
func (t *Tracker) LastEvent() (model.PointEvent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.hasLast
}

// Stats returns a snapshot of tracker state.
func (t *Tracker) Stats() TrackerStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st := TrackerStats{
		Counters: t.counters,
		Buffers:  make([]BufferInfo, 0, len(t.buffers)),
		Wands:    make([]model.WandStatus, 0, len(t.wands)),
		Live:     make(map[uint16]string, len(t.live)),
	}
	for k, b := range t.buffers {
		st.Buffers = append(st.Buffers, BufferInfo{AttemptKey: k, Points: len(b.points)})
	}
	for _, ws := range t.wands {
		st.Wands = append(st.Wands, *ws)
	}
	for w, p := range t.live {
		st.Live[w] = p
	}
	if t.hasLast {
		ev := t.last
		st.LastEvent = &ev
	}

	sort.Slice(st.Buffers, func(i, j int) bool { return st.Buffers[i].less(st.Buffers[j]) })
	sort.Slice(st.Wands, func(i, j int) bool { return st.Wands[i].WandID < st.Wands[j].WandID })
	return st
}
