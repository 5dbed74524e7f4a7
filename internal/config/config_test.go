package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/wandbrain/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.UDPAddr, convey.ShouldEqual, "0.0.0.0:41000")
			convey.So(cfg.RenderSize, convey.ShouldEqual, 256)
			convey.So(cfg.StrokeWidth, convey.ShouldEqual, 3)
			convey.So(cfg.RenderMargin, convey.ShouldEqual, 10)
			convey.So(cfg.MaxBufferPoints, convey.ShouldEqual, 5000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.AcceptLegacy, convey.ShouldBeFalse)
			convey.So(cfg.UDPPollInterval(), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.LiveRenderInterval(), convey.ShouldEqual, 80*time.Millisecond)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs violating invariants", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"empty udp addr", func(c *config.Config) { c.UDPAddr = "" }},
			{"zero size", func(c *config.Config) { c.RenderSize = 0 }},
			{"margin too big", func(c *config.Config) { c.RenderMargin = 128 }},
			{"negative margin", func(c *config.Config) { c.RenderMargin = -1 }},
			{"zero stroke", func(c *config.Config) { c.StrokeWidth = 0 }},
			{"zero buffer cap", func(c *config.Config) { c.MaxBufferPoints = 0 }},
			{"zero poll", func(c *config.Config) { c.UDPPollMS = 0 }},
			{"threshold above 255", func(c *config.Config) { c.ScoreThreshold = 300 }},
			{"negative threshold", func(c *config.Config) { c.ScoreThreshold = -1 }},
		}

		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+tc.name+" is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
