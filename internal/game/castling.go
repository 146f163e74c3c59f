package game

import (
	"fmt"
	"strings"

	"chesstrack/internal/board"
)

// Castling holds the four castling rights. Rights are only ever revoked.
type Castling struct {
	WhiteKingside  bool
	WhiteQueenside bool
	BlackKingside  bool
	BlackQueenside bool
}

// FullCastling is the set of rights at the start of a game.
func FullCastling() Castling {
	return Castling{true, true, true, true}
}

// Side returns the letters still held by c, e.g. "KQ", "k" or "".
func (c Castling) Side(color board.Color) string {
	var sb strings.Builder
	if color == board.White {
		if c.WhiteKingside {
			sb.WriteByte('K')
		}
		if c.WhiteQueenside {
			sb.WriteByte('Q')
		}
		return sb.String()
	}
	if c.BlackKingside {
		sb.WriteByte('k')
	}
	if c.BlackQueenside {
		sb.WriteByte('q')
	}
	return sb.String()
}

// String is the castling field of a position string, "-" when empty.
func (c Castling) String() string {
	s := c.Side(board.White) + c.Side(board.Black)
	if s == "" {
		return "-"
	}
	return s
}

// revoke clears the rights lost by moving p away from from. A king loses
// both sides; a rook loses the side it started on relative to the e-file.
func (c *Castling) revoke(p board.Piece, from board.Square) {
	switch p.Kind {
	case board.King:
		if p.Color == board.White {
			c.WhiteKingside, c.WhiteQueenside = false, false
		} else {
			c.BlackKingside, c.BlackQueenside = false, false
		}
	case board.Rook:
		queenside := from.File < 'e'
		switch {
		case p.Color == board.White && queenside:
			c.WhiteQueenside = false
		case p.Color == board.White:
			c.WhiteKingside = false
		case queenside:
			c.BlackQueenside = false
		default:
			c.BlackKingside = false
		}
	}
}

// ParseCastling reads a castling field such as "KQkq", "Kq" or "-".
func ParseCastling(s string) (Castling, error) {
	var c Castling
	if s == "-" {
		return c, nil
	}
	if s == "" {
		return c, fmt.Errorf("empty castling field")
	}
	for i := 0; i < len(s); i++ {
		var flag *bool
		switch s[i] {
		case 'K':
			flag = &c.WhiteKingside
		case 'Q':
			flag = &c.WhiteQueenside
		case 'k':
			flag = &c.BlackKingside
		case 'q':
			flag = &c.BlackQueenside
		default:
			return Castling{}, fmt.Errorf("unexpected castling letter %q", s[i])
		}
		if *flag {
			return Castling{}, fmt.Errorf("repeated castling letter %q", s[i])
		}
		*flag = true
	}
	return c, nil
}
