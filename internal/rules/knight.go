package rules

import "chesstrack/internal/board"

var knightSteps = [8][2]int{
	{1, 2}, {-1, 2}, {1, -2}, {-1, -2},
	{2, 1}, {-2, 1}, {2, -1}, {-2, -1},
}

// knightTarget steps dr ranks and df files from idx on the linear board and
// rejects results that wrapped around an edge.
func knightTarget(idx, df, dr int) (int, bool) {
	end := idx + 8*dr + df
	if end < 0 || end > 63 {
		return -1, false
	}
	if end/8-idx/8 != dr || end%8-idx%8 != df {
		return -1, false
	}
	return end, true
}

func checkKnight(v board.View, from, to board.Square) (int, error) {
	idx, target := from.Index(), to.Index()
	for _, s := range knightSteps {
		if end, ok := knightTarget(idx, s[0], s[1]); ok && end == target {
			return captureValue(v, to), nil
		}
	}
	return 0, ErrIllegalKnightMove
}
