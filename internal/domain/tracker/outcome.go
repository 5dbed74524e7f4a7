package tracker

// Outcome reports what a submitted datagram did to tracker state.
type Outcome int

// Outcome values.
const (
	// Dropped means the datagram did not decode.
	Dropped Outcome = iota
	// Ignored means a pen-up sample without stroke_end.
	Ignored
	// Appended means the point joined an attempt buffer.
	Appended
	// Finalized means an attempt was closed and a result produced.
	Finalized
	// NoOp means stroke_end arrived for an attempt with no buffered points.
	NoOp
)

func (o Outcome) String() string {
	switch o {
	case Dropped:
		return "dropped"
	case Ignored:
		return "ignored"
	case Appended:
		return "appended"
	case Finalized:
		return "finalized"
	case NoOp:
		return "noop"
	default:
		return "unknown"
	}
}

// Finalize reasons.
const (
	ReasonStrokeEnd  = "stroke_end"
	ReasonSuperseded = "superseded"
)
