package board

import "fmt"

// Color is the side a piece belongs to.
type Color uint8

const (
	White Color = iota
	Black
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Letter returns the side-to-move letter used in position strings.
func (c Color) Letter() byte {
	if c == Black {
		return 'b'
	}
	return 'w'
}

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// ParseColor accepts "w", "b", "white" or "black".
func ParseColor(s string) (Color, bool) {
	switch s {
	case "w", "white":
		return White, true
	case "b", "black":
		return Black, true
	}
	return White, false
}

// Kind is the closed set of piece kinds. The zero Kind marks an empty square.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// Piece is an immutable value; the zero Piece is "no piece".
type Piece struct {
	Color Color
	Kind  Kind
}

// IsZero reports whether p denotes an empty square.
func (p Piece) IsZero() bool { return p.Kind == NoKind }

// Value is the material value credited to the capturing side.
func (p Piece) Value() int {
	switch p.Kind {
	case Pawn:
		return 1
	case Knight, Bishop:
		return 3
	case Rook:
		return 5
	case Queen:
		return 9
	case King:
		return 100
	default:
		return 0
	}
}

var symbols = [...]byte{NoKind: '.', Pawn: 'p', Knight: 'n', Bishop: 'b', Rook: 'r', Queen: 'q', King: 'k'}

// Symbol returns the position-string letter: uppercase for White.
func (p Piece) Symbol() byte {
	s := symbols[p.Kind]
	if p.Color == White && p.Kind != NoKind {
		s -= 'a' - 'A'
	}
	return s
}

var glyphs = [2][7]string{
	White: {"", "♙", "♘", "♗", "♖", "♕", "♔"},
	Black: {"", "♟", "♞", "♝", "♜", "♛", "♚"},
}

// Glyph returns the Unicode chess symbol used by text displays.
func (p Piece) Glyph() string {
	return glyphs[p.Color][p.Kind]
}

func (p Piece) String() string {
	if p.IsZero() {
		return "none"
	}
	return p.Color.String() + " " + p.Kind.String()
}

// PieceFromSymbol is the inverse of Symbol.
func PieceFromSymbol(ch byte) (Piece, bool) {
	color := White
	if ch >= 'a' && ch <= 'z' {
		color = Black
	} else {
		ch += 'a' - 'A'
	}
	for k := Pawn; k <= King; k++ {
		if symbols[k] == ch {
			return Piece{Color: color, Kind: k}, true
		}
	}
	return Piece{}, false
}

// MarshalText encodes the color as "white" or "black".
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts any form ParseColor does.
func (c *Color) UnmarshalText(b []byte) error {
	v, ok := ParseColor(string(b))
	if !ok {
		return fmt.Errorf("invalid color %q", b)
	}
	*c = v
	return nil
}
