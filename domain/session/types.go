package session

// State enumerates the phases of the scan-click cycle.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateApproaching
	StateAwaitingSecondary
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateApproaching:
		return "approaching"
	case StateAwaitingSecondary:
		return "awaiting_secondary"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Listener is called on each successful state transition.
type Listener func(prev, next State)

// Counters are cumulative per-session totals.
type Counters struct {
	Cycles  int64
	Matches int64
	Clicks  int64
	Errors  int64
}

// Interface slices for consumers (presenters, hotkeys).
type StateSource interface{ Current() State }

type Control interface {
	TogglePause() bool
	RequestStop()
	RequestReload()
	RequestCycle()
}
