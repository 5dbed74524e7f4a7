package udp

import (
	"time"

	"github.com/okian/wandbrain/pkg/logger"
)

// Default receiver configuration constants.
const (
	DefaultAddr         = "0.0.0.0:41000"
	DefaultPollInterval = 500 * time.Millisecond
	DefaultReadBuffer   = 1 << 20

	maxDatagram = 2048
)

// Option applies a configuration option to the Receiver.
type Option func(*Receiver)

// WithAddr sets the host:port to bind.
func WithAddr(addr string) Option {
	return func(r *Receiver) {
		if addr != "" {
			r.addr = addr
		}
	}
}

// WithPollInterval sets the read deadline used to notice shutdown.
func WithPollInterval(d time.Duration) Option {
	return func(r *Receiver) {
		if d > 0 {
			r.poll = d
		}
	}
}

// WithReadBuffer sets SO_RCVBUF. Zero leaves the OS default.
func WithReadBuffer(n int) Option {
	return func(r *Receiver) {
		if n >= 0 {
			r.readBuffer = n
		}
	}
}

// WithSocketFactory injects the socket factory.
func WithSocketFactory(f SocketFactory) Option {
	return func(r *Receiver) {
		if f != nil {
			r.factory = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Receiver) {
		if l != nil {
			r.logger = l
		}
	}
}
