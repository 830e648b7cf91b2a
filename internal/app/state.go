package app

// State is the load state machine position.
type State int

const (
	StateIdle State = iota
	StateFetching
	StatePopulated
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePopulated:
		return "populated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
