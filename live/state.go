package live

/* State represents where a viewer session is in its lifecycle
 * Follows: Connecting -> Active -> Closing -> Closed
 */
type State int32

const (
	Connecting State = iota + 1
	Active
	Closing
	Closed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// IsFinal returns true if the state is terminal
func (s State) IsFinal() bool {
	return s == Closed
}
