package observe

// State is the progress of one clock root through a run.
type State uint8

const (
	// StateIdle - root not yet started.
	StateIdle State = iota

	// StateSelecting - routing the root into its slice.
	StateSelecting

	// StateSettling - waiting for the counter to reach steady state.
	StateSettling

	// StateSampling - timing counter windows.
	StateSampling

	// StateDone - measured.
	StateDone

	// StateFailed - a per-root error was recorded.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSelecting:
		return "SELECTING"
	case StateSettling:
		return "SETTLING"
	case StateSampling:
		return "SAMPLING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
