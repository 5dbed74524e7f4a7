// Package raster turns an ordered list of stroke points into a square
// grayscale trace: white ink on black, scaled to fit with a margin and
// centered without distorting the aspect ratio.
package raster

import (
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"

	"github.com/okian/wandbrain/internal/domain/model"
)

// Renderer rasterizes point lists. It holds no mutable state and is safe for
// concurrent use.
type Renderer struct {
	size        int
	strokeWidth int
	margin      int
}

// New creates a Renderer with defaults overridden by opts.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		size:        DefaultSize,
		strokeWidth: DefaultStrokeWidth,
		margin:      DefaultMargin,
	}
	for _, opt := range opts {
		opt(r)
	}
	if 2*r.margin >= r.size {
		r.margin = 0
	}
	return r
}

// Size returns the canvas edge.
func (r *Renderer) Size() int { return r.size }

// Render draws points with a Renderer built from opts.
func Render(points []model.Point, opts ...Option) (*image.Gray, error) {
	return New(opts...).Render(points)
}

// Render draws points onto a fresh canvas. Empty input yields a blank canvas.
func (r *Renderer) Render(points []model.Point) (*image.Gray, error) {
	out := image.NewGray(image.Rect(0, 0, r.size, r.size))
	if len(points) == 0 {
		return out, nil
	}

	px := Normalize(points, r.size, r.margin)

	dc := gg.NewContext(r.size, r.size)
	defer func() { _ = dc.Close() }()
	dc.ClearWithColor(gg.Black)
	dc.SetRGB(1, 1, 1)

	if samePixel(px) {
		radius := float64(max(1, r.strokeWidth))
		dc.DrawCircle(center(px[0].X), center(px[0].Y), radius)
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("raster: fill dot: %w", err)
		}
	} else {
		dc.SetLineWidth(float64(r.strokeWidth))
		dc.SetLineJoin(gg.LineJoinRound)
		dc.SetLineCap(gg.LineCapRound)
		dc.MoveTo(center(px[0].X), center(px[0].Y))
		for _, p := range px[1:] {
			dc.LineTo(center(p.X), center(p.Y))
		}
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("raster: stroke polyline: %w", err)
		}
	}

	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out, nil
}

// Normalize maps points onto integer pixel coordinates of a size×size canvas.
// The bounding box is scaled by (size-2*margin)/max(width,height) and centered;
// a zero extent in both axes places every point at (size/2, size/2).
func Normalize(points []model.Point, size, margin int) []image.Point {
	out := make([]image.Point, len(points))
	if len(points) == 0 {
		return out
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	w, h := maxX-minX, maxY-minY
	if w == 0 && h == 0 {
		for i := range out {
			out[i] = image.Pt(size/2, size/2)
		}
		return out
	}

	scale := float64(size-2*margin) / math.Max(w, h)
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	half := float64(size) / 2
	for i, p := range points {
		out[i] = image.Pt(
			int(math.RoundToEven((p.X-cx)*scale+half)),
			int(math.RoundToEven((p.Y-cy)*scale+half)),
		)
	}
	return out
}

func samePixel(px []image.Point) bool {
	for _, p := range px[1:] {
		if p != px[0] {
			return false
		}
	}
	return true
}

// center addresses the middle of an integer pixel.
func center(v int) float64 {
	return float64(v) + 0.5
}
