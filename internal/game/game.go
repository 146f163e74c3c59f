// Package game tracks a single chess position and applies moves to it.
package game

import (
	"chesstrack/internal/board"
	"chesstrack/internal/rules"
)

// Game is the mutable state of one position: the board, the side to move,
// material scores, castling rights and the clocks. It is not safe for
// concurrent use.
type Game struct {
	board      board.Board
	turn       board.Color
	scoreWhite int
	scoreBlack int
	castling   Castling
	halfMoves  int
	plies      int
	fen        string
}

// New returns a game in the standard starting position with White to move.
func New() *Game {
	g := &Game{
		board:    board.Standard(),
		turn:     board.White,
		castling: FullCastling(),
	}
	g.fen = encodeFEN(g)
	return g
}

// MovePiece moves the current player's piece from one square to another.
// A rejected move returns one of the rules sentinels and leaves the game
// untouched.
func (g *Game) MovePiece(from, to board.Square) error {
	_, err := g.Apply(from, to)
	return err
}

// Apply is MovePiece that also returns the captured piece, if any.
func (g *Game) Apply(from, to board.Square) (board.Piece, error) {
	p, ok := g.board.At(from)
	if !ok {
		return board.Piece{}, rules.ErrNoPieceAtPosition
	}
	if p.Color != g.turn {
		return board.Piece{}, rules.ErrIllegalMoveOnOtherPlayer
	}
	if from == to {
		return board.Piece{}, rules.ErrNoMoveRegistered
	}
	if target, ok := g.board.At(to); ok && target.Color == g.turn {
		return board.Piece{}, rules.ErrPositionOccupied
	}
	value, err := rules.Check(&g.board, from, to, g.turn)
	if err != nil {
		return board.Piece{}, err
	}

	captured := g.board.Move(from, to)
	g.castling.revoke(p, from)
	if p.Kind == board.Pawn || value > 0 {
		g.halfMoves = 0
	} else {
		g.halfMoves++
	}
	if g.turn == board.White {
		g.scoreWhite += value
	} else {
		g.scoreBlack += value
	}
	g.turn = g.turn.Opponent()
	g.plies++
	g.fen = encodeFEN(g)
	return captured, nil
}

// At satisfies board.View.
func (g *Game) At(sq board.Square) (board.Piece, bool) {
	return g.board.At(sq)
}

// Board returns a copy of the board.
func (g *Game) Board() board.Board { return g.board }

// Turn is the color to move.
func (g *Game) Turn() board.Color { return g.turn }

// Score returns the material captured by color.
func (g *Game) Score(color board.Color) int {
	if color == board.White {
		return g.scoreWhite
	}
	return g.scoreBlack
}

// Castling returns the remaining castling rights.
func (g *Game) Castling() Castling { return g.castling }

// HalfMoveClock counts moves since the last pawn move or capture.
func (g *Game) HalfMoveClock() int { return g.halfMoves }

// MoveCount is the number of moves committed, counting both colors.
func (g *Game) MoveCount() int { return g.plies }

// MoveCounter is the last field of the position string. It starts at 1
// and increments on every committed move, White's and Black's alike.
func (g *Game) MoveCounter() int { return g.plies + 1 }

// FEN returns the cached position string.
func (g *Game) FEN() string { return g.fen }

// Clone returns an independent copy.
func (g *Game) Clone() *Game {
	c := *g
	return &c
}
