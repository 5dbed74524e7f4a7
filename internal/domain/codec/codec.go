// Package codec decodes and encodes the wb-point-v1 wand datagram.
//
// Layout (24 bytes, little-endian):
//
//	magic u16 | version u8 | flags u8 | device u16 | wand u16 |
//	packet_number u32 | stroke_id u32 | x_q i16 | y_q i16 | timestamp_ms u32
//
// Coordinates are quantized to [0, 32767] and decoded to [0, 1].
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/okian/wandbrain/internal/domain/model"
)

const (
	// PacketSize is the exact wire size of a wb-point-v1 datagram.
	PacketSize = 24
	// Magic is "WB" read little-endian.
	Magic uint16 = 0x5742
	// Version is the only protocol version accepted.
	Version uint8 = 1
	// QuantMax is the full-scale quantized coordinate.
	QuantMax = 32767
)

// Decode parses a wb-point-v1 datagram. On any violation it returns the zero
// event and a sentinel error; it never panics.
func Decode(raw []byte) (model.PointEvent, error) {
	if len(raw) != PacketSize {
		return model.PointEvent{}, fmt.Errorf("%w: got %d bytes", ErrLength, len(raw))
	}
	le := binary.LittleEndian
	if m := le.Uint16(raw[0:2]); m != Magic {
		return model.PointEvent{}, fmt.Errorf("%w: 0x%04x", ErrMagic, m)
	}
	if v := raw[2]; v != Version {
		return model.PointEvent{}, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	xq := int16(le.Uint16(raw[16:18]))
	yq := int16(le.Uint16(raw[18:20]))
	if xq < 0 || yq < 0 {
		return model.PointEvent{}, fmt.Errorf("%w: x_q=%d y_q=%d", ErrRange, xq, yq)
	}
	flags := raw[3]
	return model.PointEvent{
		DeviceNumber: le.Uint16(raw[4:6]),
		WandID:       le.Uint16(raw[6:8]),
		PacketNumber: le.Uint32(raw[8:12]),
		StrokeID:     le.Uint32(raw[12:16]),
		X:            float64(xq) / QuantMax,
		Y:            float64(yq) / QuantMax,
		TimestampMS:  le.Uint32(raw[20:24]),
		PenDown:      flags&model.FlagPenDown != 0,
		StrokeStart:  flags&model.FlagStrokeStart != 0,
		StrokeEnd:    flags&model.FlagStrokeEnd != 0,
	}, nil
}

// DecodeLegacy parses the "x,y,t,wand" text fallback. The result is always a
// pen-down point with device and stroke id zero.
func DecodeLegacy(raw []byte) (model.PointEvent, error) {
	if !utf8.Valid(raw) {
		return model.PointEvent{}, fmt.Errorf("%w: not utf-8", ErrLegacy)
	}
	parts := strings.Split(strings.TrimSpace(string(raw)), ",")
	if len(parts) != 4 {
		return model.PointEvent{}, fmt.Errorf("%w: want 4 fields, got %d", ErrLegacy, len(parts))
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	ts, errT := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 32)
	wand, errW := strconv.ParseUint(strings.TrimSpace(parts[3]), 10, 16)
	if errX != nil || errY != nil || errT != nil || errW != nil {
		return model.PointEvent{}, fmt.Errorf("%w: %q", ErrLegacy, raw)
	}
	if !inUnit(x) || !inUnit(y) {
		return model.PointEvent{}, fmt.Errorf("%w: x=%v y=%v", ErrRange, x, y)
	}
	return model.PointEvent{
		WandID:      uint16(wand),
		X:           x,
		Y:           y,
		TimestampMS: uint32(ts),
		PenDown:     true,
		Legacy:      true,
	}, nil
}

// Encode serializes an event as a wb-point-v1 datagram. Coordinates are
// rounded half-to-even and clamped to the quantized range.
func Encode(e model.PointEvent) []byte {
	buf := make([]byte, PacketSize)
	le := binary.LittleEndian
	le.PutUint16(buf[0:2], Magic)
	buf[2] = Version
	buf[3] = e.Flags()
	le.PutUint16(buf[4:6], e.DeviceNumber)
	le.PutUint16(buf[6:8], e.WandID)
	le.PutUint32(buf[8:12], e.PacketNumber)
	le.PutUint32(buf[12:16], e.StrokeID)
	le.PutUint16(buf[16:18], uint16(Quantize(e.X)))
	le.PutUint16(buf[18:20], uint16(Quantize(e.Y)))
	le.PutUint32(buf[20:24], e.TimestampMS)
	return buf
}

// Quantize maps a unit coordinate onto [0, QuantMax].
func Quantize(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	q := math.RoundToEven(v * QuantMax)
	switch {
	case q < 0:
		return 0
	case q > QuantMax:
		return QuantMax
	}
	return int16(q)
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
