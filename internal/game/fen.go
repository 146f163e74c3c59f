package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chesstrack/internal/board"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// ErrInvalidFEN wraps every ParseFEN failure.
var ErrInvalidFEN = errors.New("invalid FEN")

// encodeFEN renders placement, side to move, castling, an always-empty en
// passant field, the half-move clock and the move counter.
func encodeFEN(g *Game) string {
	var sb strings.Builder
	for r := 8; r >= 1; r-- {
		empty := 0
		for f := byte('a'); f <= 'h'; f++ {
			p, ok := g.board.At(board.Sq(f, r))
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.Symbol())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if r > 1 {
			sb.WriteByte('/')
		}
	}
	fmt.Fprintf(&sb, " %c %s - %d %d", g.turn.Letter(), g.castling, g.halfMoves, g.MoveCounter())
	return sb.String()
}

// ParseFEN restores a game from a position string. Scores start at zero
// because a position string does not record captured material; the en
// passant field is accepted and ignored.
func ParseFEN(fen string) (*Game, error) {
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return nil, fmt.Errorf("%w: expected 6 parts, got %d", ErrInvalidFEN, len(parts))
	}

	g := &Game{}

	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("%w: expected 8 ranks", ErrInvalidFEN)
	}

	for i, row := range ranks {
		rank := 8 - i
		file := 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			if file >= 8 {
				return nil, fmt.Errorf("%w: too many pieces in rank %d", ErrInvalidFEN, rank)
			}
			p, ok := board.PieceFromSymbol(ch)
			if !ok {
				return nil, fmt.Errorf("%w: unknown piece %q", ErrInvalidFEN, ch)
			}
			g.board.Set(board.Sq('a'+byte(file), rank), p)
			file++
		}
		if file != 8 {
			return nil, fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, rank, file)
		}
	}

	switch parts[1] {
	case "w":
		g.turn = board.White
	case "b":
		g.turn = board.Black
	default:
		return nil, fmt.Errorf("%w: turn must be 'w' or 'b'", ErrInvalidFEN)
	}

	castling, err := ParseCastling(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	g.castling = castling

	if parts[3] != "-" {
		if _, err := board.ParseSquare(parts[3]); err != nil {
			return nil, fmt.Errorf("%w: en passant target %q", ErrInvalidFEN, parts[3])
		}
	}

	halfMoves, err := strconv.Atoi(parts[4])
	if err != nil || halfMoves < 0 {
		return nil, fmt.Errorf("%w: halfmove counter", ErrInvalidFEN)
	}
	g.halfMoves = halfMoves

	counter, err := strconv.Atoi(parts[5])
	if err != nil || counter < 1 {
		return nil, fmt.Errorf("%w: move counter", ErrInvalidFEN)
	}
	g.plies = counter - 1

	g.fen = encodeFEN(g)
	return g, nil
}
