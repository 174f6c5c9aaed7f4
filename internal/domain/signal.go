package domain

// Signal is a discrete trading instruction for one bar.
type Signal int

// Signal values.
const (
	SignalExit  Signal = -1 // close the long position
	SignalHold  Signal = 0
	SignalEnter Signal = 1 // open a long position
)

// String returns the lowercase signal name.
func (s Signal) String() string {
	switch s {
	case SignalEnter:
		return "enter"
	case SignalExit:
		return "exit"
	case SignalHold:
		return "hold"
	default:
		return "unknown"
	}
}

// SignalPoint is a signal aligned with the price bar at the same timestamp.
type SignalPoint struct {
	TimestampMs int64
	Value       Signal
}
