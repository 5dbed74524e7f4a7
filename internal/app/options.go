package service

import (
	"github.com/okian/wandbrain/internal/adapters/udp"
	"github.com/okian/wandbrain/internal/config"
	"github.com/okian/wandbrain/internal/domain/clock"
	"github.com/okian/wandbrain/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the service configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithClock sets the clock used to stamp finalized attempts.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSocketFactory replaces the UDP socket factory.
func WithSocketFactory(f udp.SocketFactory) Option {
	return func(s *Service) {
		s.sockets = f
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
