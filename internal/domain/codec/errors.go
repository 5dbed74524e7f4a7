package codec

import "errors"

// Sentinel errors returned by Decode and DecodeLegacy. Every one of them means
// "no event"; callers count and drop.
var (
	ErrLength  = errors.New("codec: bad packet length")
	ErrMagic   = errors.New("codec: bad magic")
	ErrVersion = errors.New("codec: unsupported version")
	ErrRange   = errors.New("codec: coordinate out of range")
	ErrLegacy  = errors.New("codec: malformed legacy text")
)

// Reason maps a decode error to a short label used for metrics and logs.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrLength):
		return "length"
	case errors.Is(err, ErrMagic):
		return "magic"
	case errors.Is(err, ErrVersion):
		return "version"
	case errors.Is(err, ErrRange):
		return "range"
	case errors.Is(err, ErrLegacy):
		return "legacy"
	default:
		return "unknown"
	}
}
