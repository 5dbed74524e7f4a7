package raster

// Default canvas parameters.
const (
	DefaultSize        = 256
	DefaultStrokeWidth = 3
	DefaultMargin      = 10
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithSize sets the square canvas edge in pixels.
func WithSize(size int) Option {
	return func(r *Renderer) {
		if size > 0 {
			r.size = size
		}
	}
}

// WithStrokeWidth sets the polyline width in pixels.
func WithStrokeWidth(w int) Option {
	return func(r *Renderer) {
		if w > 0 {
			r.strokeWidth = w
		}
	}
}

// WithMargin sets the blank border kept around the normalized stroke.
func WithMargin(m int) Option {
	return func(r *Renderer) {
		if m >= 0 {
			r.margin = m
		}
	}
}
