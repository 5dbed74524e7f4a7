package scoring_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// square returns a size×size gray image with a filled white rectangle.
func square(size int, r image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func TestMaskScorer_Compare(t *testing.T) {
	Convey("Given a default mask scorer", t, func() {
		s := scoring.NewMaskScorer()

		Convey("When an image is compared with itself", func() {
			img := square(256, image.Rect(40, 40, 120, 200))
			res := s.Compare(img, img)

			Convey("Then every ratio is 1 and the composite is 100", func() {
				So(res.Metrics.Dice, ShouldEqual, 1.0)
				So(res.Metrics.IoU, ShouldEqual, 1.0)
				So(res.Metrics.AreaRatio, ShouldEqual, 1.0)
				So(res.Score, ShouldEqual, 100.0)
				So(res.Metrics.Intersection, ShouldEqual, res.Metrics.Union)
			})
		})

		Convey("When the masks are disjoint", func() {
			a := square(256, image.Rect(0, 0, 50, 50))
			b := square(256, image.Rect(150, 150, 200, 200))
			res := s.Compare(a, b)

			Convey("Then intersection, dice and iou are zero but the areas match", func() {
				So(res.Metrics.Intersection, ShouldEqual, 0)
				So(res.Metrics.Dice, ShouldEqual, 0.0)
				So(res.Metrics.IoU, ShouldEqual, 0.0)
				So(res.Metrics.AreaRatio, ShouldEqual, 1.0)
				So(res.Score, ShouldEqual, 10.0)
			})
		})

		Convey("When both images are blank", func() {
			blank := image.NewGray(image.Rect(0, 0, 256, 256))
			res := s.Compare(blank, blank)

			Convey("Then every metric is zero", func() {
				So(res.Score, ShouldEqual, 0.0)
				So(res.Metrics.Union, ShouldEqual, 0)
			})
		})

		Convey("When one mask covers half of the other", func() {
			a := square(256, image.Rect(0, 0, 128, 256))
			b := square(256, image.Rect(0, 0, 256, 256))
			res := s.Compare(a, b)

			Convey("Then the metrics follow the overlap formulas", func() {
				So(res.Metrics.DrawPixels, ShouldEqual, 128*256)
				So(res.Metrics.TemplatePixels, ShouldEqual, 256*256)
				So(res.Metrics.IoU, ShouldEqual, 0.5)
				So(res.Metrics.Dice, ShouldEqual, 0.6667)
				So(res.Metrics.AreaRatio, ShouldEqual, 0.5)
				So(res.Score, ShouldEqual, 59.167)
			})
		})
	})

	Convey("Given a scorer with custom weights", t, func() {
		s := scoring.NewMaskScorer(scoring.WithWeights(scoring.Weights{Dice: 1}), scoring.WithSize(64))
		a := square(64, image.Rect(0, 0, 32, 64))
		b := square(64, image.Rect(0, 0, 64, 64))

		Convey("Then the composite is driven by dice alone", func() {
			So(s.Compare(a, b).Score, ShouldEqual, 66.667)
		})
	})
}

func TestMaskScorer_Files(t *testing.T) {
	Convey("Given a template directory and a drawing", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		writePNG(t, dir, "square_v1.png", square(256, image.Rect(60, 60, 196, 196)))
		writePNG(t, dir, "bar_v1.png", square(256, image.Rect(0, 0, 20, 256)))
		drawing := writePNG(t, t.TempDir(), "drawing.png", square(256, image.Rect(60, 60, 196, 196)))
		s := scoring.NewMaskScorer()

		Convey("When listing templates", func() {
			refs, err := scoring.ListTemplates(dir)

			Convey("Then they are sorted and titled", func() {
				So(err, ShouldBeNil)
				So(len(refs), ShouldEqual, 2)
				So(refs[0].ID, ShouldEqual, "bar_v1")
				So(refs[0].Name, ShouldEqual, "Bar V1")
				So(refs[1].ID, ShouldEqual, "square_v1")
			})
		})

		Convey("When ranking against every template", func() {
			refs, _ := scoring.ListTemplates(dir)
			ranked, err := s.Best(ctx, drawing, refs)

			Convey("Then the identical template comes first", func() {
				So(err, ShouldBeNil)
				So(len(ranked), ShouldEqual, 2)
				So(ranked[0].TemplateID, ShouldEqual, "square_v1")
				So(ranked[0].Score, ShouldEqual, 100.0)
				So(ranked[1].Score, ShouldBeLessThan, 100.0)
			})
		})

		Convey("When scoring a single file pair", func() {
			res, err := s.ScoreFiles(ctx, drawing, filepath.Join(dir, "square_v1.png"))

			Convey("Then identity is derived from the template file", func() {
				So(err, ShouldBeNil)
				So(res.TemplateID, ShouldEqual, "square_v1")
				So(res.TemplateName, ShouldEqual, "Square V1")
			})
		})

		Convey("When the drawing is missing", func() {
			_, err := s.Score(ctx, filepath.Join(dir, "nope.png"), model.TemplateRef{ID: "x", Path: drawing})
			So(err, ShouldNotBeNil)
		})

		Convey("When the drawing is not an image", func() {
			bogus := filepath.Join(t.TempDir(), "bogus.png")
			So(os.WriteFile(bogus, []byte("not a png"), 0o600), ShouldBeNil)
			_, err := s.ScoreFiles(ctx, bogus, drawing)
			So(errors.Is(err, scoring.ErrDecodeImage), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Score(cctx, drawing, model.TemplateRef{ID: "square_v1", Path: drawing})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("When no templates exist", func() {
			ranked, err := s.Best(ctx, drawing, nil)
			So(err, ShouldBeNil)
			So(ranked, ShouldBeEmpty)
		})
	})
}

func TestListTemplates(t *testing.T) {
	Convey("Given a missing template directory", t, func() {
		refs, err := scoring.ListTemplates(filepath.Join(t.TempDir(), "missing"))

		Convey("Then the list is empty without error", func() {
			So(err, ShouldBeNil)
			So(refs, ShouldBeEmpty)
		})
	})

	Convey("Given a directory with non-png files", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600), ShouldBeNil)
		writePNG(t, dir, "heart_v1.png", square(8, image.Rect(0, 0, 4, 4)))

		refs, err := scoring.ListTemplates(dir)

		Convey("Then only png files are listed", func() {
			So(err, ShouldBeNil)
			So(len(refs), ShouldEqual, 1)
			So(refs[0].ID, ShouldEqual, "heart_v1")
		})
	})

	Convey("Given template lookups", t, func() {
		refs := []model.TemplateRef{{ID: "circle_v1"}, {ID: "sine_v1"}}

		Convey("Then known ids resolve and unknown ones fail", func() {
			got, err := scoring.FindTemplate(refs, "sine_v1")
			So(err, ShouldBeNil)
			So(got.ID, ShouldEqual, "sine_v1")
			_, err = scoring.FindTemplate(refs, "star")
			So(errors.Is(err, scoring.ErrUnknownTemplate), ShouldBeTrue)
			So(scoring.DisplayName("infinity_v1"), ShouldEqual, "Infinity V1")
			// Digits do not start a new word.
			So(scoring.DisplayName("a1b"), ShouldEqual, "A1b")
		})
	})
}
