package service

import (
	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/game"
)

// GameView is an immutable copy of a match taken under the service lock.
type GameView struct {
	ID            string
	FEN           string
	InitialFEN    string
	Turn          board.Color
	State         core.State
	Moves         []string
	ScoreWhite    int
	ScoreBlack    int
	Castling      string
	HalfMoveClock int
	Board         board.Board
	White         *core.Player
	Black         *core.Player
	LastResult    *game.MoveResult
}

func newView(id string, m *game.Match) *GameView {
	g := m.Game()
	v := &GameView{
		ID:            id,
		FEN:           g.FEN(),
		InitialFEN:    m.InitialFEN(),
		Turn:          g.Turn(),
		State:         m.State(),
		Moves:         m.Moves(),
		ScoreWhite:    g.Score(board.White),
		ScoreBlack:    g.Score(board.Black),
		Castling:      g.Castling().String(),
		HalfMoveClock: g.HalfMoveClock(),
		Board:         g.Board(),
		White:         copyPlayer(m.Player(board.White)),
		Black:         copyPlayer(m.Player(board.Black)),
	}
	if r := m.LastResult(); r != nil {
		res := *r
		v.LastResult = &res
	}
	return v
}

func copyPlayer(p *core.Player) *core.Player {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// MoveCount is the number of moves played since the initial position.
func (v *GameView) MoveCount() int { return len(v.Moves) }

// NextPlayer is the player whose turn it is.
func (v *GameView) NextPlayer() *core.Player {
	if v.Turn == board.White {
		return v.White
	}
	return v.Black
}

// At satisfies board.View.
func (v *GameView) At(sq board.Square) (board.Piece, bool) { return v.Board.At(sq) }
