package wbtx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/pkg/logger"
)

// Report summarizes a run.
type Report struct {
	RunID    string
	Stroke   uint32
	Sent     int
	Duration time.Duration
	Result   *model.FinalResult
}

// Run generates one attempt, sends it over UDP and optionally verifies it.
func Run(ctx context.Context, cfg *Config) (Report, error) {
	runID := uuid.New()
	if cfg.Stroke == 0 {
		cfg.Stroke = StrokeFromRunID(runID)
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	if cfg.StartMS == 0 {
		cfg.StartMS = uint32(time.Now().UnixMilli())
	}
	report := Report{RunID: runID.String(), Stroke: cfg.Stroke}
	log := logger.Get().Named("wb-tx")

	events, err := Generate(cfg)
	if err != nil {
		return report, err
	}

	log.Info(ctx, "sending attempt",
		logger.String("run_id", report.RunID),
		logger.String("addr", cfg.Addr),
		logger.String("shape", cfg.Shape),
		logger.Int("device", int(cfg.Device)),
		logger.Int("wand", int(cfg.Wand)),
		logger.Uint32("stroke", cfg.Stroke),
		logger.Int("packets", len(events)),
		logger.Float64("rate", cfg.Rate),
		logger.Float64("jitter", cfg.Jitter))

	conn, err := Dial(ctx, cfg.Addr)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error(context.Background(), "failed to close socket", logger.Error(err))
		}
	}()

	start := time.Now()
	report.Sent, err = Send(ctx, conn, events, cfg.Interval())
	report.Duration = time.Since(start)
	if err != nil {
		return report, fmt.Errorf("send: %w", err)
	}
	log.Info(ctx, "attempt sent", logger.Int("sent", report.Sent), logger.Duration("elapsed", report.Duration))

	if !cfg.Verify {
		return report, nil
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.VerifyTimeout)
	defer cancel()
	res, err := NewVerifier(cfg.BaseURL, cfg.Timeout, cfg.PollInterval).Await(vctx, cfg.Stroke)
	switch {
	case err == nil:
		report.Result = &res
		log.Info(ctx, "attempt scored",
			logger.Uint32("stroke", cfg.Stroke),
			logger.Int("num_points", res.NumPoints),
			logger.String("template", res.Score.TemplateID),
			logger.Float64("score", res.Score.Score))
	case errors.Is(err, ErrNotScored):
		report.Result = &res
		log.Warn(ctx, "attempt finalized without a score",
			logger.Uint32("stroke", cfg.Stroke),
			logger.Int("num_points", res.NumPoints),
			logger.String("render_path", res.RenderPath))
	default:
		return report, fmt.Errorf("verify: %w", err)
	}
	return report, nil
}
