// Package scoring compares a rendered stroke against reference templates by
// pixel overlap of thresholded masks.
package scoring

import (
	"context"
	"fmt"
	"image"
	_ "image/png" // templates and renders are PNG
	"math"
	"os"
	"sort"

	"golang.org/x/image/draw"

	"github.com/okian/wandbrain/internal/domain/model"
)

// Scorer scores a rendered drawing against a template.
type Scorer interface {
	// Score compares the drawing at drawingPath with tmpl, honoring ctx for cancellation.
	Score(ctx context.Context, drawingPath string, tmpl model.TemplateRef) (model.ScoreResult, error)
	// Best scores the drawing against every template, best match first.
	Best(ctx context.Context, drawingPath string, templates []model.TemplateRef) ([]model.ScoreResult, error)
}

// MaskScorer implements Scorer with Dice/IoU/area-ratio overlap.
type MaskScorer struct {
	size      int
	threshold uint8
	weights   Weights
}

var _ Scorer = (*MaskScorer)(nil)

// NewMaskScorer creates a scorer with configuration options.
func NewMaskScorer(opts ...Option) *MaskScorer {
	s := &MaskScorer{
		size:      DefaultSize,
		threshold: DefaultThreshold,
		weights:   Weights{Dice: defaultDiceWeight, IoU: defaultIoUWeight, AreaRatio: defaultAreaWeight},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compare computes overlap metrics between two images. The returned result has
// no template identity; callers fill it in.
func (s *MaskScorer) Compare(drawing, template image.Image) model.ScoreResult {
	a := s.mask(drawing)
	b := s.mask(template)

	var onA, onB, inter, union int
	for i := range a {
		if a[i] {
			onA++
		}
		if b[i] {
			onB++
		}
		if a[i] && b[i] {
			inter++
		}
		if a[i] || b[i] {
			union++
		}
	}

	var dice, iou, area float64
	if onA+onB > 0 {
		dice = 2 * float64(inter) / float64(onA+onB)
	}
	if union > 0 {
		iou = float64(inter) / float64(union)
	}
	if hi := max(onA, onB); hi > 0 {
		area = float64(min(onA, onB)) / float64(hi)
	}

	composite := 100 * (s.weights.Dice*dice + s.weights.IoU*iou + s.weights.AreaRatio*area)
	return model.ScoreResult{
		Score: roundTo(composite, 3),
		Metrics: model.Metrics{
			Dice:           roundTo(dice, 4),
			IoU:            roundTo(iou, 4),
			AreaRatio:      roundTo(area, 4),
			DrawPixels:     onA,
			TemplatePixels: onB,
			Intersection:   inter,
			Union:          union,
		},
	}
}

// Score implements Scorer.
func (s *MaskScorer) Score(ctx context.Context, drawingPath string, tmpl model.TemplateRef) (model.ScoreResult, error) {
	if err := ctx.Err(); err != nil {
		return model.ScoreResult{}, fmt.Errorf("context cancelled: %w", err)
	}
	drawing, err := loadImage(drawingPath)
	if err != nil {
		return model.ScoreResult{}, err
	}
	return s.scoreLoaded(drawing, tmpl)
}

// ScoreFiles compares two image files; the template identity is derived from
// templatePath the same way ListTemplates does.
func (s *MaskScorer) ScoreFiles(ctx context.Context, drawingPath, templatePath string) (model.ScoreResult, error) {
	return s.Score(ctx, drawingPath, refFromPath(templatePath))
}

// Best implements Scorer. Ties on the composite are broken by template id.
// An empty template list yields an empty result.
func (s *MaskScorer) Best(ctx context.Context, drawingPath string, templates []model.TemplateRef) ([]model.ScoreResult, error) {
	if len(templates) == 0 {
		return nil, nil
	}
	drawing, err := loadImage(drawingPath)
	if err != nil {
		return nil, err
	}

	out := make([]model.ScoreResult, 0, len(templates))
	for _, tmpl := range templates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}
		res, err := s.scoreLoaded(drawing, tmpl)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TemplateID < out[j].TemplateID
	})
	return out, nil
}

func (s *MaskScorer) scoreLoaded(drawing image.Image, tmpl model.TemplateRef) (model.ScoreResult, error) {
	ref, err := loadImage(tmpl.Path)
	if err != nil {
		return model.ScoreResult{}, err
	}
	res := s.Compare(drawing, ref)
	res.TemplateID = tmpl.ID
	res.TemplateName = tmpl.Name
	return res, nil
}

// mask resizes img to size×size grayscale and thresholds it.
func (s *MaskScorer) mask(img image.Image) []bool {
	gray := image.NewGray(image.Rect(0, 0, s.size, s.size))
	draw.BiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]bool, len(gray.Pix))
	for i, v := range gray.Pix {
		out[i] = v > s.threshold
	}
	return out
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeImage, path, err)
	}
	return img, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
