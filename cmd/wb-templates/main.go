package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/okian/wandbrain/internal/domain/raster"
	"github.com/okian/wandbrain/internal/wbtx"
	"github.com/okian/wandbrain/pkg/logger"
)

func main() {
	var (
		dir    = flag.String("out", "data/templates", "Template directory")
		size   = flag.Int("size", raster.DefaultSize, "Canvas size in pixels")
		width  = flag.Int("width", wbtx.TemplateStrokeWidth, "Stroke width in pixels")
		margin = flag.Int("margin", wbtx.TemplateMargin, "Canvas margin in pixels")
		shapes = flag.String("shapes", "", "Comma-separated shapes (default: all of "+strings.Join(wbtx.ShapeNames(), ",")+")")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()

	var selected []string
	if *shapes != "" {
		selected = strings.Split(*shapes, ",")
	}
	paths, err := wbtx.WriteTemplates(ctx, *dir, wbtx.TemplateOptions{
		Size:        *size,
		StrokeWidth: *width,
		Margin:      *margin,
		Shapes:      selected,
	})
	if err != nil {
		logger.Get().Error(ctx, "failed to write templates", logger.Error(err))
		os.Exit(1)
	}
	logger.Get().Info(ctx, "templates written", logger.String("dir", *dir), logger.Int("count", len(paths)))
}
