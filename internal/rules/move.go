package rules

import (
	"fmt"
	"strings"

	"chesstrack/internal/board"
)

// ParseMove reads coordinate notation: "e2e4", "e2 e4" or "e2-e4".
// A trailing promotion letter is rejected since promotion is not modelled.
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 4:
	case 5:
		if s[2] != ' ' && s[2] != '-' {
			return Move{}, fmt.Errorf("unrecognized move %q", s)
		}
		s = s[:2] + s[3:]
	default:
		return Move{}, fmt.Errorf("unrecognized move %q", s)
	}

	from, err := board.ParseSquare(s[:2])
	if err != nil {
		return Move{}, err
	}
	to, err := board.ParseSquare(s[2:])
	if err != nil {
		return Move{}, err
	}
	return Move{From: from, To: to}, nil
}
