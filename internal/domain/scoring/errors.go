package scoring

import "errors"

// Sentinel errors for scoring.
var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrDecodeImage     = errors.New("decode image failed")
)
