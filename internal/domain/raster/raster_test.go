package raster_test

import (
	"bytes"
	"image"
	"testing"

	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/internal/domain/raster"
	"github.com/smartystreets/goconvey/convey"
)

func diagonal(n int) []model.Point {
	pts := make([]model.Point, n)
	for i := range pts {
		v := float64(i) / float64(n-1)
		pts[i] = model.Point{X: v, Y: v, TimestampMS: uint32(i * 10)}
	}
	return pts
}

func inked(img *image.Gray) int {
	n := 0
	for _, v := range img.Pix {
		if v > 10 {
			n++
		}
	}
	return n
}

func TestNormalize(t *testing.T) {
	convey.Convey("Given point lists to normalize", t, func() {
		convey.Convey("When the list is a single point", func() {
			px := raster.Normalize([]model.Point{{X: 0.9, Y: 0.1}}, 256, 10)

			convey.Convey("Then it lands on the canvas center", func() {
				convey.So(px, convey.ShouldResemble, []image.Point{{X: 128, Y: 128}})
			})
		})

		convey.Convey("When every point is identical", func() {
			pts := []model.Point{{X: 0.3, Y: 0.3}, {X: 0.3, Y: 0.3}, {X: 0.3, Y: 0.3}}
			px := raster.Normalize(pts, 255, 10)

			convey.Convey("Then all map to size/2 with integer division", func() {
				for _, p := range px {
					convey.So(p, convey.ShouldResemble, image.Pt(127, 127))
				}
			})
		})

		convey.Convey("When the bounding box is tall and narrow", func() {
			px := raster.Normalize([]model.Point{{X: 0, Y: 0}, {X: 0.1, Y: 1}}, 256, 10)

			convey.Convey("Then the long axis spans the margins and the short axis is not stretched", func() {
				convey.So(px[0], convey.ShouldResemble, image.Pt(116, 10))
				convey.So(px[1], convey.ShouldResemble, image.Pt(140, 246))
			})
		})

		convey.Convey("When the list is a diagonal", func() {
			px := raster.Normalize(diagonal(40), 256, 10)

			convey.Convey("Then it runs corner to corner inside the margin", func() {
				convey.So(px[0], convey.ShouldResemble, image.Pt(10, 10))
				convey.So(px[39], convey.ShouldResemble, image.Pt(246, 246))
			})
		})

		convey.Convey("When the list is empty", func() {
			convey.So(raster.Normalize(nil, 256, 10), convey.ShouldBeEmpty)
		})
	})
}

func TestRender(t *testing.T) {
	convey.Convey("Given a default renderer", t, func() {
		r := raster.New()

		convey.Convey("When rendering no points", func() {
			img, err := r.Render(nil)

			convey.Convey("Then the canvas is blank", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(img.Bounds().Dx(), convey.ShouldEqual, 256)
				convey.So(inked(img), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When rendering a single point", func() {
			img, err := r.Render([]model.Point{{X: 0.2, Y: 0.7}})

			convey.Convey("Then a dot is drawn at the center only", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(img.GrayAt(128, 128).Y, convey.ShouldBeGreaterThan, 200)
				convey.So(img.GrayAt(20, 20).Y, convey.ShouldEqual, 0)
				convey.So(inked(img), convey.ShouldBeLessThan, 100)
			})
		})

		convey.Convey("When rendering a diagonal", func() {
			img, err := r.Render(diagonal(40))

			convey.Convey("Then the main diagonal is inked and the anti-diagonal corners are not", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(img.GrayAt(128, 128).Y, convey.ShouldBeGreaterThan, 200)
				convey.So(img.GrayAt(60, 60).Y, convey.ShouldBeGreaterThan, 200)
				convey.So(img.GrayAt(200, 200).Y, convey.ShouldBeGreaterThan, 200)
				convey.So(img.GrayAt(240, 16).Y, convey.ShouldEqual, 0)
				convey.So(img.GrayAt(16, 240).Y, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When rendering the same points twice", func() {
			a, errA := r.Render(diagonal(25))
			b, errB := r.Render(diagonal(25))

			convey.Convey("Then the output is byte-identical", func() {
				convey.So(errA, convey.ShouldBeNil)
				convey.So(errB, convey.ShouldBeNil)
				convey.So(bytes.Equal(a.Pix, b.Pix), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given custom options", t, func() {
		img, err := raster.Render(diagonal(10), raster.WithSize(64), raster.WithStrokeWidth(1), raster.WithMargin(4))

		convey.Convey("Then the canvas honours the size", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(img.Bounds(), convey.ShouldResemble, image.Rect(0, 0, 64, 64))
			convey.So(inked(img), convey.ShouldBeGreaterThan, 0)
		})
	})
}
