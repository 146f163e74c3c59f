package rules

import "chesstrack/internal/board"

// checkKing allows one step in any direction. Attacked squares are not
// considered.
func checkKing(v board.View, from, to board.Square) (int, error) {
	df, dr := delta(from, to)
	if abs(df) > 1 || abs(dr) > 1 {
		return 0, ErrIllegalKingMove
	}
	return captureValue(v, to), nil
}
