package repository

import "errors"

// Sentinel kinds for result lookups.
var (
	ErrNotFound      = errors.New("result not found")
	ErrInvalidResult = errors.New("invalid result")
	ErrStale         = errors.New("result superseded in attempt index")
)
