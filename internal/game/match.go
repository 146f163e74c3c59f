package game

import (
	"fmt"

	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/rules"
)

type Snapshot struct {
	FEN          string      // Position at this point
	PreviousMove string      // Move that created this position, empty for the initial one
	NextTurn     board.Color // Whose turn it is at this position
}

// MoveResult tracks the outcome of a move
type MoveResult struct {
	Move      string
	Player    board.Color
	Captured  board.Piece
	GameState core.State
	Suggested bool // produced by the move suggester
}

// Match wraps a Game with players, history and an end state. Undo rebuilds
// the game by replaying the remaining moves from the initial position.
type Match struct {
	initial    *Game
	current    *Game
	snapshots  []Snapshot
	moves      [][2]board.Square
	players    map[board.Color]*core.Player
	state      core.State
	lastResult *MoveResult
}

// NewMatch starts a match from initialFEN, or the standard position when it
// is empty.
func NewMatch(initialFEN string, whitePlayer, blackPlayer *core.Player) (*Match, error) {
	start := New()
	if initialFEN != "" {
		var err error
		if start, err = ParseFEN(initialFEN); err != nil {
			return nil, err
		}
	}

	return &Match{
		initial: start.Clone(),
		current: start,
		snapshots: []Snapshot{
			{
				FEN:      start.FEN(),
				NextTurn: start.Turn(),
			},
		},
		players: map[board.Color]*core.Player{
			board.White: whitePlayer,
			board.Black: blackPlayer,
		},
		state: core.StateOngoing,
	}, nil
}

// Replay rebuilds a match from its initial position and move list, as
// stored by the persistence layer.
func Replay(initialFEN string, whitePlayer, blackPlayer *core.Player, moves []string) (*Match, error) {
	m, err := NewMatch(initialFEN, whitePlayer, blackPlayer)
	if err != nil {
		return nil, err
	}
	for i, s := range moves {
		mv, err := rules.ParseMove(s)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		if _, err := m.Play(mv.From, mv.To); err != nil {
			return nil, fmt.Errorf("move %d (%s): %w", i+1, s, err)
		}
	}
	return m, nil
}

// Play applies a move for the side to move and records it.
func (m *Match) Play(from, to board.Square) (*MoveResult, error) {
	if m.state.IsOver() {
		return nil, fmt.Errorf("game is over: %s", m.state)
	}

	mover := m.current.Turn()
	captured, err := m.current.Apply(from, to)
	if err != nil {
		return nil, err
	}

	move := from.String() + to.String()
	m.moves = append(m.moves, [2]board.Square{from, to})
	m.snapshots = append(m.snapshots, Snapshot{
		FEN:          m.current.FEN(),
		PreviousMove: move,
		NextTurn:     m.current.Turn(),
	})

	// Without checkmate detection, taking the king is what ends a game
	if captured.Kind == board.King {
		if mover == board.White {
			m.state = core.StateWhiteWins
		} else {
			m.state = core.StateBlackWins
		}
	}

	m.lastResult = &MoveResult{
		Move:      move,
		Player:    mover,
		Captured:  captured,
		GameState: m.state,
	}
	return m.lastResult, nil
}

// Undo removes the last count moves.
func (m *Match) Undo(count int) error {
	if count < 1 {
		return fmt.Errorf("invalid undo count: %d", count)
	}

	availableMoves := len(m.moves)
	if availableMoves < count {
		return fmt.Errorf("cannot undo %d moves: only %d moves available", count, availableMoves)
	}

	keep := m.moves[:availableMoves-count]
	replay := m.initial.Clone()
	for i, mv := range keep {
		if err := replay.MovePiece(mv[0], mv[1]); err != nil {
			return fmt.Errorf("replay move %d (%s%s): %w", i+1, mv[0], mv[1], err)
		}
	}

	m.current = replay
	m.moves = keep
	m.snapshots = m.snapshots[:len(m.snapshots)-count]
	m.state = core.StateOngoing // Reset game state when undoing
	m.lastResult = nil
	return nil
}

// Resign ends the match in favor of color's opponent.
func (m *Match) Resign(color board.Color) error {
	if m.state.IsOver() {
		return fmt.Errorf("game is over: %s", m.state)
	}
	if color == board.White {
		m.state = core.StateBlackWins
	} else {
		m.state = core.StateWhiteWins
	}
	return nil
}

// Game returns a copy of the current position.
func (m *Match) Game() *Game { return m.current.Clone() }

func (m *Match) SetLastResult(result *MoveResult) { m.lastResult = result }

func (m *Match) LastResult() *MoveResult { return m.lastResult }

func (m *Match) CurrentSnapshot() Snapshot { return m.snapshots[len(m.snapshots)-1] }

func (m *Match) Snapshots() []Snapshot {
	return append([]Snapshot(nil), m.snapshots...)
}

func (m *Match) CurrentFEN() string { return m.current.FEN() }

func (m *Match) InitialFEN() string { return m.initial.FEN() }

func (m *Match) NextTurn() board.Color { return m.current.Turn() }

func (m *Match) NextPlayer() *core.Player { return m.players[m.current.Turn()] }

func (m *Match) Player(color board.Color) *core.Player { return m.players[color] }

// UpdatePlayers replaces both players.
func (m *Match) UpdatePlayers(whitePlayer, blackPlayer *core.Player) {
	m.players[board.White] = whitePlayer
	m.players[board.Black] = blackPlayer
}

// Moves lists the played moves in coordinate form, e.g. "e2e4".
func (m *Match) Moves() []string {
	moves := make([]string, 0, len(m.snapshots)-1)
	for i := 1; i < len(m.snapshots); i++ {
		moves = append(moves, m.snapshots[i].PreviousMove)
	}
	return moves
}

func (m *Match) State() core.State { return m.state }

func (m *Match) SetState(s core.State) { m.state = s }
