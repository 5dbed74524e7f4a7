package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/wandbrain/internal/wbtx"
	"github.com/okian/wandbrain/pkg/logger"
)

func main() {
	def := wbtx.NewConfig()
	var (
		addr      = flag.String("addr", def.Addr, "UDP destination host:port")
		baseURL   = flag.String("url", def.BaseURL, "Base URL of the HTTP API (used by -verify)")
		shape     = flag.String("shape", def.Shape, "Shape to draw")
		points    = flag.Int("points", def.Points, "Number of pen-down samples")
		duration  = flag.Duration("duration", 0, "Stroke duration; overrides -points when set")
		rate      = flag.Float64("rate", def.Rate, "Samples per second")
		device    = flag.Uint("device", uint(def.Device), "Device number")
		wand      = flag.Uint("wand", uint(def.Wand), "Wand id")
		stroke    = flag.Uint("stroke", 0, "Attempt id (default: derived from the run id)")
		jitter    = flag.Float64("jitter", 0, "Gaussian jitter sigma in unit coordinates")
		driftX    = flag.Float64("drift-x", 0, "Horizontal drift reached by the last sample")
		driftY    = flag.Float64("drift-y", 0, "Vertical drift reached by the last sample")
		seed      = flag.Uint64("seed", 0, "Jitter seed (default: time based)")
		verify    = flag.Bool("verify", false, "Poll the API until the attempt is scored")
		timeout   = flag.Duration("timeout", def.Timeout, "HTTP request timeout")
		verifyFor = flag.Duration("verify-timeout", def.VerifyTimeout, "How long -verify waits")
		logFormat = flag.String("log-format", logger.FormatText, "Log format (text or json)")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		wbtx.ShowHelp()
		flag.PrintDefaults()
		return
	}

	if err := logger.InitWithWriter(os.Stderr, *logFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := def
	cfg.Addr = *addr
	cfg.BaseURL = *baseURL
	cfg.Shape = *shape
	cfg.Points = *points
	cfg.Duration = *duration
	cfg.Rate = *rate
	cfg.Device = uint16(*device)
	cfg.Wand = uint16(*wand)
	cfg.Stroke = uint32(*stroke)
	cfg.Jitter = *jitter
	cfg.DriftX = *driftX
	cfg.DriftY = *driftY
	cfg.Seed = *seed
	cfg.Verify = *verify
	cfg.Timeout = *timeout
	cfg.VerifyTimeout = *verifyFor

	report, err := wbtx.Run(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("wb-tx failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	fmt.Printf("run %s: sent %d packets for attempt %d in %s\n", report.RunID, report.Sent, report.Stroke, report.Duration)
	if res := report.Result; res != nil {
		if res.Score != nil {
			fmt.Printf("score %.2f against %s (%d points)\n", res.Score.Score, res.Score.TemplateID, res.NumPoints)
		} else {
			fmt.Printf("finalized without a score (%d points, %s)\n", res.NumPoints, res.RenderPath)
		}
	}
}
