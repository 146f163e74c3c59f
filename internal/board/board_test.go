package board

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSquareIndexRoundTrip(t *testing.T) {
	for i := 0; i < 64; i++ {
		sq := SquareAt(i)
		if got := sq.Index(); got != i {
			t.Errorf("SquareAt(%d).Index() = %d", i, got)
		}
	}

	tests := []struct {
		sq   Square
		want int
	}{
		{Sq('a', 1), 0},
		{Sq('h', 1), 7},
		{Sq('a', 2), 8},
		{Sq('e', 4), 28},
		{Sq('h', 8), 63},
	}
	for _, tt := range tests {
		if got := tt.sq.Index(); got != tt.want {
			t.Errorf("%v.Index() = %d; want %d", tt.sq, got, tt.want)
		}
	}
}

func TestSquareIndexPanicsOffBoard(t *testing.T) {
	for _, sq := range []Square{Sq('i', 1), Sq('a', 0), Sq('a', 9), {}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%q%d: expected panic", sq.File, sq.Rank)
				}
			}()
			sq.Index()
		}()
	}
}

func TestParseSquare(t *testing.T) {
	tests := []struct {
		in      string
		want    Square
		wantErr bool
	}{
		{"e2", Sq('e', 2), false},
		{"H8", Sq('h', 8), false},
		{"a1", Sq('a', 1), false},
		{"i1", Square{}, true},
		{"a9", Square{}, true},
		{"e", Square{}, true},
		{"e22", Square{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSquare(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSquare) {
					t.Fatalf("ParseSquare(%q) err = %v; want ErrInvalidSquare", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSquare(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseSquare(%q) = %v; want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSquareOffset(t *testing.T) {
	if got, ok := Sq('a', 1).Offset(-1, 0); ok {
		t.Errorf("a1 offset (-1,0) = %v; want off board", got)
	}
	if got, ok := Sq('g', 1).Offset(-1, 2); !ok || got != Sq('f', 3) {
		t.Errorf("g1 offset (-1,2) = %v,%v; want f3", got, ok)
	}
}

func TestPieceAttributes(t *testing.T) {
	tests := []struct {
		p      Piece
		value  int
		symbol byte
		glyph  string
	}{
		{Piece{White, Pawn}, 1, 'P', "♙"},
		{Piece{Black, Knight}, 3, 'n', "♞"},
		{Piece{White, Bishop}, 3, 'B', "♗"},
		{Piece{Black, Rook}, 5, 'r', "♜"},
		{Piece{White, Queen}, 9, 'Q', "♕"},
		{Piece{Black, King}, 100, 'k', "♚"},
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			if got := tt.p.Value(); got != tt.value {
				t.Errorf("Value() = %d; want %d", got, tt.value)
			}
			if got := tt.p.Symbol(); got != tt.symbol {
				t.Errorf("Symbol() = %c; want %c", got, tt.symbol)
			}
			if got := tt.p.Glyph(); got != tt.glyph {
				t.Errorf("Glyph() = %s; want %s", got, tt.glyph)
			}
			back, ok := PieceFromSymbol(tt.symbol)
			if !ok || back != tt.p {
				t.Errorf("PieceFromSymbol(%c) = %v,%v; want %v", tt.symbol, back, ok, tt.p)
			}
		})
	}

	if _, ok := PieceFromSymbol('x'); ok {
		t.Error("PieceFromSymbol('x') accepted")
	}
}

func TestStandardBoard(t *testing.T) {
	b := Standard()
	if got := b.Count(); got != 32 {
		t.Fatalf("Count() = %d; want 32", got)
	}

	want := []Square{Sq('e', 1)}
	if diff := cmp.Diff(want, b.Find(Piece{White, King})); diff != "" {
		t.Errorf("white king mismatch (-want +got):\n%s", diff)
	}
	want = []Square{Sq('a', 8), Sq('h', 8)}
	if diff := cmp.Diff(want, b.Find(Piece{Black, Rook})); diff != "" {
		t.Errorf("black rooks mismatch (-want +got):\n%s", diff)
	}

	for f := byte('a'); f <= 'h'; f++ {
		for r := 3; r <= 6; r++ {
			if p, ok := b.At(Sq(f, r)); ok {
				t.Errorf("%c%d holds %v; want empty", f, r, p)
			}
		}
	}
}

func TestBoardMoveClearsSource(t *testing.T) {
	b := Standard()
	captured := b.Move(Sq('d', 1), Sq('d', 7))
	if captured != (Piece{Black, Pawn}) {
		t.Errorf("captured = %v; want black pawn", captured)
	}
	if _, ok := b.At(Sq('d', 1)); ok {
		t.Error("d1 still occupied after move")
	}
	if p, _ := b.At(Sq('d', 7)); p != (Piece{White, Queen}) {
		t.Errorf("d7 = %v; want white queen", p)
	}
	if got := b.Count(); got != 31 {
		t.Errorf("Count() = %d; want 31", got)
	}
}

func TestToASCII(t *testing.T) {
	b := Standard()
	lines := strings.Split(b.ToASCII(), "\n")
	if len(lines) != 10 {
		t.Fatalf("got %d lines; want 10", len(lines))
	}
	if lines[1] != "8 r n b q k b n r  8" {
		t.Errorf("rank 8 = %q", lines[1])
	}
	if lines[5] != "4 . . . . . . . .  4" {
		t.Errorf("rank 4 = %q", lines[5])
	}
}
