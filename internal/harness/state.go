package harness

// State is the lifecycle state of a harness. The only transitions are
// Configured → Running → Completed | Cancelled | Failed.
type State int

const (
	Configured State = iota
	Running
	Completed
	Cancelled
	Failed
)

var stateNames = [...]string{"configured", "running", "completed", "cancelled", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}
