package wbtx

import (
	"context"
	"fmt"

	"github.com/okian/wandbrain/internal/adapters/imagestore"
	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/internal/domain/raster"
)

// Template rendering defaults. Reference strokes are drawn thicker than live
// attempts so small tracking errors still overlap.
const (
	TemplateSamples     = 420
	TemplateStrokeWidth = 8
	TemplateMargin      = 22
	TemplateSuffix      = "_v1"
)

// TemplateOptions controls WriteTemplates.
type TemplateOptions struct {
	Size        int
	StrokeWidth int
	Margin      int
	Shapes      []string // all shapes when empty
}

// Trace samples a shape into n evenly spaced points.
func Trace(shape Shape, n int) []model.Point {
	if n < 2 {
		n = 2
	}
	pts := make([]model.Point, n)
	for i := range pts {
		x, y := shape(float64(i) / float64(n-1))
		pts[i] = model.Point{X: x, Y: y, TimestampMS: uint32(i)}
	}
	return pts
}

// WriteTemplates renders the selected shapes into dir as <shape>_v1.png and
// returns the written paths in shape order.
func WriteTemplates(ctx context.Context, dir string, opts TemplateOptions) ([]string, error) {
	names := opts.Shapes
	if len(names) == 0 {
		names = ShapeNames()
	}
	if opts.StrokeWidth <= 0 {
		opts.StrokeWidth = TemplateStrokeWidth
	}
	if opts.Margin <= 0 {
		opts.Margin = TemplateMargin
	}

	sink, err := imagestore.NewFileSink(dir)
	if err != nil {
		return nil, err
	}
	r := raster.New(
		raster.WithSize(opts.Size),
		raster.WithStrokeWidth(opts.StrokeWidth),
		raster.WithMargin(opts.Margin),
	)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		shape, ok := LookupShape(name)
		if !ok {
			return paths, fmt.Errorf("%w: %q", ErrUnknownShape, name)
		}
		img, err := r.Render(Trace(shape, TemplateSamples))
		if err != nil {
			return paths, fmt.Errorf("render %s: %w", name, err)
		}
		path, err := sink.WriteFinal(ctx, name+TemplateSuffix+".png", img)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
