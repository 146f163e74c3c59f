package board

import (
	"errors"
	"fmt"
)

// ErrInvalidSquare is returned by ParseSquare for text outside a1..h8.
var ErrInvalidSquare = errors.New("invalid square")

// Square is a (file, rank) pair with file in 'a'..'h' and rank in 1..8.
type Square struct {
	File byte
	Rank int
}

// Sq is shorthand for Square{File: file, Rank: rank}.
func Sq(file byte, rank int) Square {
	return Square{File: file, Rank: rank}
}

// Valid reports whether s lies on the board.
func (s Square) Valid() bool {
	return s.File >= 'a' && s.File <= 'h' && s.Rank >= 1 && s.Rank <= 8
}

// Index maps a1..h8 onto 0..63, rank-major. Off-board squares are a
// programming error and panic.
func (s Square) Index() int {
	if !s.Valid() {
		panic(fmt.Sprintf("board: square out of range: %q%d", s.File, s.Rank))
	}
	return (s.Rank-1)*8 + int(s.File-'a')
}

// SquareAt is the inverse of Index.
func SquareAt(i int) Square {
	if i < 0 || i > 63 {
		panic(fmt.Sprintf("board: index out of range: %d", i))
	}
	return Square{File: 'a' + byte(i%8), Rank: i/8 + 1}
}

// ParseSquare reads algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	file := s[0]
	if file >= 'A' && file <= 'H' {
		file += 'a' - 'A'
	}
	sq := Square{File: file, Rank: int(s[1]) - '0'}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return sq, nil
}

// Offset returns the square df files and dr ranks away, and whether it is on the board.
func (s Square) Offset(df, dr int) (Square, bool) {
	t := Square{File: byte(int(s.File) + df), Rank: s.Rank + dr}
	if int(s.File)+df < 'a' || int(s.File)+df > 'h' {
		return Square{}, false
	}
	return t, t.Valid()
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%d", s.File, s.Rank)
}
