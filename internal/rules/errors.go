package rules

import "errors"

// MoveError is a rejected move. Every rejection is one of the sentinels
// below, so callers compare with errors.Is.
type MoveError struct {
	code string
	msg  string
}

func (e *MoveError) Error() string { return e.msg }

// Code is a stable identifier for API responses.
func (e *MoveError) Code() string { return e.code }

var (
	ErrNoPieceAtPosition        = &MoveError{"NO_PIECE_AT_POSITION", "no piece at position"}
	ErrIllegalMoveOnOtherPlayer = &MoveError{"ILLEGAL_MOVE_ON_OTHER_PLAYER", "you can only play your own pieces"}
	ErrNoMoveRegistered         = &MoveError{"NO_MOVE_REGISTERED", "no move registered"}
	ErrPositionOccupied         = &MoveError{"POSITION_OCCUPIED", "position is occupied"}
	ErrPathIsBlocked            = &MoveError{"PATH_IS_BLOCKED", "path is blocked"}
	ErrIllegalPawnMove          = &MoveError{"ILLEGAL_PAWN_MOVE", "illegal pawn move"}
	ErrIllegalKnightMove        = &MoveError{"ILLEGAL_KNIGHT_MOVE", "illegal knight move"}
	ErrIllegalBishopMove        = &MoveError{"ILLEGAL_BISHOP_MOVE", "illegal bishop move"}
	ErrIllegalRookMove          = &MoveError{"ILLEGAL_ROOK_MOVE", "illegal rook move"}
	ErrIllegalQueenMove         = &MoveError{"ILLEGAL_QUEEN_MOVE", "illegal queen move"}
	ErrIllegalKingMove          = &MoveError{"ILLEGAL_KING_MOVE", "illegal king move"}
)

// CodeOf returns the MoveError code in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var me *MoveError
	if errors.As(err, &me) {
		return me.code
	}
	return ""
}
