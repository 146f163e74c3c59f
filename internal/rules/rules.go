// Package rules decides whether a single move is legal for the piece that
// makes it. The checks are pure functions over a read-only board view; the
// game package owns the board and applies moves that pass.
//
// Check, checkmate, stalemate, en passant and promotion are not modelled.
package rules

import "chesstrack/internal/board"

// Check validates moving the mover's piece on from to to. On success it
// returns the value of the piece captured on to, or 0.
//
// The game applies the turn, same-square and own-piece occupancy rejections
// before calling Check; they are repeated here so Check is safe to call on
// any view.
func Check(v board.View, from, to board.Square, mover board.Color) (int, error) {
	p, ok := v.At(from)
	if !ok {
		return 0, ErrNoPieceAtPosition
	}
	if p.Color != mover {
		return 0, ErrIllegalMoveOnOtherPlayer
	}
	if from == to {
		return 0, ErrNoMoveRegistered
	}
	if target, ok := v.At(to); ok && target.Color == mover {
		return 0, ErrPositionOccupied
	}

	switch p.Kind {
	case board.Pawn:
		return checkPawn(v, from, to, mover)
	case board.Knight:
		return checkKnight(v, from, to)
	case board.Bishop:
		return checkBishop(v, from, to)
	case board.Rook:
		return checkRook(v, from, to)
	case board.Queen:
		return checkQueen(v, from, to)
	case board.King:
		return checkKing(v, from, to)
	default:
		panic("rules: unknown piece kind " + p.Kind.String())
	}
}

// Move is a from/to pair.
type Move struct {
	From board.Square
	To   board.Square
}

func (m Move) String() string { return m.From.String() + m.To.String() }

// Candidate is a move that passes Check together with what it captures.
type Candidate struct {
	Move
	Captured int
}

// Moves lists every move of mover that Check accepts, ordered by source
// then destination index.
func Moves(v board.View, mover board.Color) []Candidate {
	var out []Candidate
	for i := 0; i < 64; i++ {
		from := board.SquareAt(i)
		if p, ok := v.At(from); !ok || p.Color != mover {
			continue
		}
		for j := 0; j < 64; j++ {
			to := board.SquareAt(j)
			if captured, err := Check(v, from, to, mover); err == nil {
				out = append(out, Candidate{Move: Move{From: from, To: to}, Captured: captured})
			}
		}
	}
	return out
}

func captureValue(v board.View, to board.Square) int {
	if p, ok := v.At(to); ok {
		return p.Value()
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func delta(from, to board.Square) (df, dr int) {
	return int(to.File) - int(from.File), to.Rank - from.Rank
}
