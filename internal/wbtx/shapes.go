package wbtx

import (
	"math"
	"sort"
)

// Shape maps stroke progress t in [0,1] to a point in the unit square.
type Shape func(t float64) (x, y float64)

var shapes = map[string]Shape{
	"diagonal": func(t float64) (float64, float64) {
		return 0.1 + 0.8*t, 0.1 + 0.8*t
	},
	"circle": func(t float64) (float64, float64) {
		a := 2 * math.Pi * t
		return 0.5 + 0.4*math.Cos(a), 0.5 + 0.4*math.Sin(a)
	},
	"spiral": func(t float64) (float64, float64) {
		a := 6 * math.Pi * t
		r := 0.05 + 0.35*t
		return 0.5 + r*math.Cos(a), 0.5 + r*math.Sin(a)
	},
	"lemniscate": func(t float64) (float64, float64) {
		// Bernoulli lemniscate, peak |x| is a and peak |y| is a/(2*sqrt2).
		a := 2 * math.Pi * t
		d := 1 + math.Sin(a)*math.Sin(a)
		return 0.5 + 0.4*math.Cos(a)/d, 0.5 + 0.4*math.Sin(a)*math.Cos(a)/d
	},
	"lissajous": func(t float64) (float64, float64) {
		a := 2 * math.Pi * t
		return 0.5 + 0.4*math.Sin(3*a+math.Pi/2), 0.5 + 0.4*math.Sin(2*a)
	},
	"triangle": func(t float64) (float64, float64) {
		corners := [4][2]float64{{0.5, 0.1}, {0.9, 0.9}, {0.1, 0.9}, {0.5, 0.1}}
		seg := math.Min(2, math.Floor(t*3))
		f := t*3 - seg
		a, b := corners[int(seg)], corners[int(seg)+1]
		return a[0] + (b[0]-a[0])*f, a[1] + (b[1]-a[1])*f
	},
	"sine": func(t float64) (float64, float64) {
		return 0.1 + 0.8*t, 0.5 - 0.4*math.Sin(2*math.Pi*1.75*t)
	},
	"heart": func(t float64) (float64, float64) {
		a := 2 * math.Pi * t
		s := math.Sin(a)
		hx := 16 * s * s * s
		hy := 13*math.Cos(a) - 5*math.Cos(2*a) - 2*math.Cos(3*a) - math.Cos(4*a)
		// hx spans [-16,16] and hy roughly [-17,12]; y grows downward on the canvas.
		return 0.5 + hx/40, 0.45 - hy/40
	},
}

// ShapeNames lists the available shapes in sorted order.
func ShapeNames() []string {
	names := make([]string, 0, len(shapes))
	for name := range shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupShape returns the named shape.
func LookupShape(name string) (Shape, bool) {
	s, ok := shapes[name]
	return s, ok
}
