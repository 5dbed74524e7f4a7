package tracker

import (
	"time"

	"github.com/okian/wandbrain/internal/domain/clock"
	"github.com/okian/wandbrain/pkg/logger"
)

// Default tracker configuration constants.
const (
	DefaultMaxPoints          = 5000
	DefaultLiveRenderInterval = 80 * time.Millisecond
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithClock injects the time source used for throttling and finalized_at.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithRasterizer replaces the default renderer.
func WithRasterizer(r Rasterizer) Option {
	return func(t *Tracker) {
		if r != nil {
			t.renderer = r
		}
	}
}

// WithMaxPoints caps each attempt buffer; the oldest points are dropped first.
func WithMaxPoints(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxPoints = n
		}
	}
}

// WithLiveRenderInterval sets the minimum spacing between live previews of
// one attempt. Zero renders on every append.
func WithLiveRenderInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.liveInterval = d
		}
	}
}

// WithLegacy enables the "x,y,t,wand" text fallback in Submit.
func WithLegacy(enabled bool) Option {
	return func(t *Tracker) {
		t.acceptLegacy = enabled
	}
}

// WithFinalizeListener registers a callback invoked after every finalize.
func WithFinalizeListener(l FinalizeListener) Option {
	return func(t *Tracker) {
		if l != nil {
			t.listeners = append(t.listeners, l)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
