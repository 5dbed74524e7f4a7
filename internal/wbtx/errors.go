package wbtx

import "errors"

var (
	ErrUnknownShape  = errors.New("unknown shape")
	ErrInvalidConfig = errors.New("invalid config")
	ErrNotScored     = errors.New("attempt not scored before deadline")
	ErrNotFinalized  = errors.New("attempt not finalized before deadline")
)
