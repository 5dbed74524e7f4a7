// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional .env file, an optional YAML file and env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// UDPAddr is the host:port the wand receiver binds.
	UDPAddr string `koanf:"udp_addr"`

	// UDPReadBuffer sets SO_RCVBUF on the wand socket.
	UDPReadBuffer int `koanf:"udp_read_buffer"`

	// UDPPollMS is the receive deadline used to notice shutdown.
	UDPPollMS int `koanf:"udp_poll_ms"`

	// OutputDir receives live and finalized renders.
	OutputDir string `koanf:"output_dir"`

	// TemplateDir holds the reference PNGs used for scoring.
	TemplateDir string `koanf:"template_dir"`

	// RenderSize is the square canvas edge in pixels.
	RenderSize int `koanf:"render_size"`

	// StrokeWidth is the polyline width in pixels.
	StrokeWidth int `koanf:"stroke_width"`

	// RenderMargin is the blank border kept around a normalized stroke.
	RenderMargin int `koanf:"render_margin"`

	// LiveRenderIntervalMS throttles live preview writes per attempt.
	LiveRenderIntervalMS int `koanf:"live_render_interval_ms"`

	// MaxBufferPoints caps the points kept per in-flight attempt.
	MaxBufferPoints int `koanf:"max_buffer_points"`

	// MaxResults caps the finalized results kept in the attempt index.
	MaxResults int `koanf:"max_results"`

	// AcceptLegacy enables the "x,y,t,wand" text fallback.
	AcceptLegacy bool `koanf:"accept_legacy"`

	// ScoreQueueSize bounds the asynchronous scoring queue.
	ScoreQueueSize int `koanf:"score_queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// ScoreThreshold is the grayscale cutoff above which a pixel counts as ink.
	ScoreThreshold int `koanf:"score_threshold"`

	// ReplayFile is an optional pcap file replayed into the tracker at startup.
	ReplayFile string `koanf:"replay_file"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":8000",
		UDPAddr:              "0.0.0.0:41000",
		UDPReadBuffer:        1 << 20,
		UDPPollMS:            500,
		OutputDir:            "data/outputs",
		TemplateDir:          "data/templates",
		RenderSize:           256,
		StrokeWidth:          3,
		RenderMargin:         10,
		LiveRenderIntervalMS: 80,
		MaxBufferPoints:      5000,
		MaxResults:           10_000,
		AcceptLegacy:         false,
		ScoreQueueSize:       1024,
		WorkerCount:          runtime.NumCPU(),
		ScoreThreshold:       10,
	}
}

// UDPPollInterval returns UDPPollMS as a duration.
func (c *Config) UDPPollInterval() time.Duration {
	return time.Duration(c.UDPPollMS) * time.Millisecond
}

// LiveRenderInterval returns LiveRenderIntervalMS as a duration.
func (c *Config) LiveRenderInterval() time.Duration {
	return time.Duration(c.LiveRenderIntervalMS) * time.Millisecond
}

// Validate checks the invariants the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.UDPAddr == "":
		return fmt.Errorf("%w: udp_addr must not be empty", ErrInvalidConfig)
	case c.RenderSize <= 0:
		return fmt.Errorf("%w: render_size must be positive", ErrInvalidConfig)
	case c.RenderMargin < 0 || 2*c.RenderMargin >= c.RenderSize:
		return fmt.Errorf("%w: render_margin must leave room on a %dpx canvas", ErrInvalidConfig, c.RenderSize)
	case c.StrokeWidth <= 0:
		return fmt.Errorf("%w: stroke_width must be positive", ErrInvalidConfig)
	case c.MaxBufferPoints <= 0:
		return fmt.Errorf("%w: max_buffer_points must be positive", ErrInvalidConfig)
	case c.UDPPollMS <= 0:
		return fmt.Errorf("%w: udp_poll_ms must be positive", ErrInvalidConfig)
	case c.ScoreThreshold < 0 || c.ScoreThreshold > 255:
		return fmt.Errorf("%w: score_threshold must be within 0..255", ErrInvalidConfig)
	}
	return nil
}
