package core

// State is the lifecycle of a match. Check and checkmate are not detected,
// so a match only ends by resignation or by a king being captured.
type State int

const (
	StateOngoing State = iota
	StatePending       // computer move in flight
	StateWhiteWins
	StateBlackWins
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateWhiteWins:
		return "white_wins"
	case StateBlackWins:
		return "black_wins"
	default:
		return "ongoing"
	}
}

// IsOver reports whether moves are no longer accepted.
func (s State) IsOver() bool {
	return s == StateWhiteWins || s == StateBlackWins
}

// ParseState is the inverse of State.String.
func ParseState(s string) State {
	switch s {
	case "pending":
		return StatePending
	case "white_wins":
		return StateWhiteWins
	case "black_wins":
		return StateBlackWins
	default:
		return StateOngoing
	}
}
