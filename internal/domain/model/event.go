// Package model contains domain models passed between layers.
package model

// Flag bits carried by a wb-point-v1 packet.
const (
	FlagPenDown     uint8 = 0x01
	FlagStrokeStart uint8 = 0x02
	FlagStrokeEnd   uint8 = 0x04
)

// PointEvent is one decoded wand sample. Coordinates are normalized to [0,1].
type PointEvent struct {
	DeviceNumber uint16  `json:"device_number"`
	WandID       uint16  `json:"wand_id"`
	StrokeID     uint32  `json:"stroke_id"`     // attempt id
	PacketNumber uint32  `json:"packet_number"` // informational, never used for ordering
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	TimestampMS  uint32  `json:"timestamp_ms"` // device clock, wraps
	PenDown      bool    `json:"pen_down"`
	StrokeStart  bool    `json:"stroke_start"`
	StrokeEnd    bool    `json:"stroke_end"`
	Legacy       bool    `json:"legacy,omitempty"`
}

// Flags packs the boolean flags back into wire bits.
func (e PointEvent) Flags() uint8 {
	var f uint8
	if e.PenDown {
		f |= FlagPenDown
	}
	if e.StrokeStart {
		f |= FlagStrokeStart
	}
	if e.StrokeEnd {
		f |= FlagStrokeEnd
	}
	return f
}

// Point returns the event's buffered representation.
func (e PointEvent) Point() Point {
	return Point{X: e.X, Y: e.Y, TimestampMS: e.TimestampMS}
}

// Point is a single buffered sample of an attempt.
type Point struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	TimestampMS uint32  `json:"t"`
}

// AttemptKey identifies an in-flight attempt buffer.
type AttemptKey struct {
	Device  uint16 `json:"device"`
	Wand    uint16 `json:"wand"`
	Attempt uint32 `json:"attempt"`
}

// WandKey identifies the latest-result slot of a wand on a device.
type WandKey struct {
	Device uint16 `json:"device"`
	Wand   uint16 `json:"wand"`
}
