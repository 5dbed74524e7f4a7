package scoring

// Default scoring configuration constants.
const (
	DefaultSize      = 256
	DefaultThreshold = 10

	defaultDiceWeight = 0.55
	defaultIoUWeight  = 0.35
	defaultAreaWeight = 0.10
)

// Weights blend the overlap metrics into the composite score.
type Weights struct {
	Dice      float64
	IoU       float64
	AreaRatio float64
}

// Option applies a configuration option to the MaskScorer.
type Option func(*MaskScorer)

// WithSize sets the common edge both images are resized to before comparison.
func WithSize(size int) Option {
	return func(s *MaskScorer) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithThreshold sets the grayscale cutoff; pixels strictly above it are on.
func WithThreshold(threshold int) Option {
	return func(s *MaskScorer) {
		if threshold >= 0 && threshold <= 255 {
			s.threshold = uint8(threshold)
		}
	}
}

// WithWeights replaces the composite weights. Negative weights are ignored.
func WithWeights(w Weights) Option {
	return func(s *MaskScorer) {
		if w.Dice >= 0 && w.IoU >= 0 && w.AreaRatio >= 0 {
			s.weights = w
		}
	}
}
