package board

import (
	"fmt"
	"strings"
)

// View is the read-only access the legality rules get to a position.
type View interface {
	At(sq Square) (Piece, bool)
}

// Board holds 64 optional pieces, index 0 = a1 through 63 = h8.
type Board struct {
	squares [64]Piece
}

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Standard returns the initial chess position.
func Standard() Board {
	var b Board
	for f := 0; f < 8; f++ {
		b.squares[f] = Piece{Color: White, Kind: backRank[f]}
		b.squares[8+f] = Piece{Color: White, Kind: Pawn}
		b.squares[48+f] = Piece{Color: Black, Kind: Pawn}
		b.squares[56+f] = Piece{Color: Black, Kind: backRank[f]}
	}
	return b
}

// At returns the piece on sq and whether the square is occupied.
func (b *Board) At(sq Square) (Piece, bool) {
	p := b.squares[sq.Index()]
	return p, !p.IsZero()
}

// AtIndex is At keyed by linear index.
func (b *Board) AtIndex(i int) (Piece, bool) {
	p := b.squares[i]
	return p, !p.IsZero()
}

// Set places p on sq, replacing whatever stood there.
func (b *Board) Set(sq Square, p Piece) {
	b.squares[sq.Index()] = p
}

// Clear empties sq.
func (b *Board) Clear(sq Square) {
	b.squares[sq.Index()] = Piece{}
}

// Move lifts the piece on from and drops it on to. The source is cleared
// first so a square never holds two pieces. The replaced piece is returned.
func (b *Board) Move(from, to Square) Piece {
	p := b.squares[from.Index()]
	b.squares[from.Index()] = Piece{}
	captured := b.squares[to.Index()]
	b.squares[to.Index()] = p
	return captured
}

// Count returns the number of occupied squares.
func (b *Board) Count() int {
	n := 0
	for _, p := range b.squares {
		if !p.IsZero() {
			n++
		}
	}
	return n
}

// Find returns the squares holding p, in index order.
func (b *Board) Find(p Piece) []Square {
	var out []Square
	for i, q := range b.squares {
		if q == p && !p.IsZero() {
			out = append(out, SquareAt(i))
		}
	}
	return out
}

// ToASCII creates a plain text diagram, rank 8 at the top
func (b *Board) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 8; r >= 1; r-- {
		sb.WriteString(fmt.Sprintf("%d ", r))
		for f := byte('a'); f <= 'h'; f++ {
			if p, ok := b.At(Sq(f, r)); ok {
				sb.WriteByte(p.Symbol())
				sb.WriteByte(' ')
			} else {
				sb.WriteString(". ")
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}
