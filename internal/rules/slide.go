package rules

import (
	"errors"

	"chesstrack/internal/board"
)

var (
	diagonals = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	lines     = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

// slide walks each direction from from to the board edge. If to is reached
// it reports whether an occupied square was passed on the way.
func slide(v board.View, from, to board.Square, dirs [4][2]int) (reached, blocked bool) {
	for _, d := range dirs {
		passed := false
		sq, ok := from.Offset(d[0], d[1])
		for ok {
			if sq == to {
				return true, passed
			}
			if _, occ := v.At(sq); occ {
				passed = true
			}
			sq, ok = sq.Offset(d[0], d[1])
		}
	}
	return false, false
}

func checkBishop(v board.View, from, to board.Square) (int, error) {
	reached, blocked := slide(v, from, to, diagonals)
	switch {
	case !reached:
		return 0, ErrIllegalBishopMove
	case blocked:
		return 0, ErrPathIsBlocked
	}
	return captureValue(v, to), nil
}

func checkRook(v board.View, from, to board.Square) (int, error) {
	if from.File != to.File && from.Rank != to.Rank {
		return 0, ErrIllegalRookMove
	}
	if _, blocked := slide(v, from, to, lines); blocked {
		return 0, ErrPathIsBlocked
	}
	return captureValue(v, to), nil
}

// checkQueen combines the rook and bishop checks. Shape failures are
// reported as queen moves; obstruction stays ErrPathIsBlocked.
func checkQueen(v board.View, from, to board.Square) (int, error) {
	df, dr := delta(from, to)
	var (
		captured int
		err      error
	)
	switch {
	case df == 0 || dr == 0:
		captured, err = checkRook(v, from, to)
	case abs(df) == abs(dr):
		captured, err = checkBishop(v, from, to)
	default:
		return 0, ErrIllegalQueenMove
	}
	if err != nil && !errors.Is(err, ErrPathIsBlocked) {
		return 0, ErrIllegalQueenMove
	}
	return captured, err
}
