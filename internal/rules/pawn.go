package rules

import "chesstrack/internal/board"

func pawnDirection(c board.Color) (dir, startRank int) {
	if c == board.Black {
		return -1, 7
	}
	return 1, 2
}

// checkPawn allows a single push onto an empty square, a double push from
// the start rank over two empty squares, and a diagonal capture.
func checkPawn(v board.View, from, to board.Square, mover board.Color) (int, error) {
	dir, start := pawnDirection(mover)
	df, dr := delta(from, to)
	_, occupied := v.At(to)

	switch {
	case df == 0 && dr == dir:
		if occupied {
			return 0, ErrIllegalPawnMove
		}
		return 0, nil

	case df == 0 && dr == 2*dir && from.Rank == start:
		if _, blocked := v.At(board.Sq(from.File, from.Rank+dir)); blocked {
			return 0, ErrPathIsBlocked
		}
		if occupied {
			return 0, ErrIllegalPawnMove
		}
		return 0, nil

	case abs(df) == 1 && dr == dir && occupied:
		return captureValue(v, to), nil
	}

	return 0, ErrIllegalPawnMove
}
