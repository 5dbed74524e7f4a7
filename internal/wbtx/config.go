package wbtx

import (
	"fmt"
	"time"
)

// Defaults used by the wb-tx command.
const (
	DefaultAddr          = "127.0.0.1:41000"
	DefaultBaseURL       = "http://localhost:8000"
	DefaultShape         = "circle"
	DefaultPoints        = 80
	DefaultRate          = 100 // points per second
	DefaultTimeout       = 5 * time.Second
	DefaultVerifyTimeout = 10 * time.Second
	DefaultPollInterval  = 200 * time.Millisecond
)

// Config holds one wb-tx run.
type Config struct {
	Addr    string // UDP destination host:port
	BaseURL string // HTTP API used by verification

	Shape    string
	Points   int           // number of pen-down samples
	Duration time.Duration // overrides Points when set
	Rate     float64       // samples per second

	Device  uint16
	Wand    uint16
	Stroke  uint32 // derived from the run id when zero
	StartMS uint32 // device clock of the first sample

	Jitter float64 // gaussian sigma in unit coordinates
	DriftX float64 // offset reached by the last sample
	DriftY float64
	Seed   uint64

	Verify        bool
	Timeout       time.Duration // per HTTP request
	VerifyTimeout time.Duration
	PollInterval  time.Duration
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Addr:          DefaultAddr,
		BaseURL:       DefaultBaseURL,
		Shape:         DefaultShape,
		Points:        DefaultPoints,
		Rate:          DefaultRate,
		Device:        1,
		Wand:          1,
		Timeout:       DefaultTimeout,
		VerifyTimeout: DefaultVerifyTimeout,
		PollInterval:  DefaultPollInterval,
	}
}

// Validate checks the run parameters.
func (c *Config) Validate() error {
	if _, ok := shapes[c.Shape]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownShape, c.Shape)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidConfig)
	}
	if c.SampleCount() < 1 {
		return fmt.Errorf("%w: at least one point is required", ErrInvalidConfig)
	}
	if c.Jitter < 0 {
		return fmt.Errorf("%w: jitter must not be negative", ErrInvalidConfig)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr is required", ErrInvalidConfig)
	}
	return nil
}

// SampleCount is the number of pen-down samples the run emits.
func (c *Config) SampleCount() int {
	if c.Duration > 0 {
		return int(c.Duration.Seconds() * c.Rate)
	}
	return c.Points
}

// Interval is the spacing between samples on the wire and on the device clock.
func (c *Config) Interval() time.Duration {
	if c.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.Rate)
}
