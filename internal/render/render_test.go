package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"chesstrack/internal/board"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func center(l Layout, sq board.Square, flip bool) image.Point {
	r := l.SquareRect(sq, flip)
	return image.Pt(r.Min.X+l.Square/2, r.Min.Y+l.Square/2)
}

func TestRenderPNG(t *testing.T) {
	b := board.Standard()
	data, err := RenderPNG(context.Background(), &b, Options{})
	if err != nil {
		t.Fatal(err)
	}
	img := decode(t, data)
	l := layoutFor(DefaultSquareSize)

	if got := img.Bounds().Dx(); got != l.Size() {
		t.Fatalf("width = %d; want %d", got, l.Size())
	}

	e4 := center(l, board.Sq('e', 4), false)
	if got, want := rgba(img.At(e4.X, e4.Y)), SquareColor(board.Sq('e', 4)); got != want {
		t.Errorf("empty e4 = %v; want %v", got, want)
	}

	// above the label, inside the token
	above := l.Square * 3 / 10
	e2 := center(l, board.Sq('e', 2), false)
	if got := rgba(img.At(e2.X, e2.Y-above)); got.R < 230 {
		t.Errorf("white token at e2 = %v", got)
	}
	e7 := center(l, board.Sq('e', 7), false)
	if got := rgba(img.At(e7.X, e7.Y-above)); got.R > 60 {
		t.Errorf("black token at e7 = %v", got)
	}
}

func TestRenderHighlight(t *testing.T) {
	b := board.Standard()
	e3 := board.Sq('e', 3)
	data, err := RenderPNG(context.Background(), &b, Options{
		Highlight: &Highlight{From: board.Sq('e', 2), To: e3},
	})
	if err != nil {
		t.Fatal(err)
	}
	img := decode(t, data)
	p := center(layoutFor(DefaultSquareSize), e3, false)
	if got := rgba(img.At(p.X, p.Y)); got == SquareColor(e3) {
		t.Errorf("e3 not highlighted: %v", got)
	}
}

func TestLayoutFlip(t *testing.T) {
	l := layoutFor(40)
	tests := []struct {
		sq   board.Square
		flip bool
		want image.Point
	}{
		{board.Sq('a', 8), false, image.Pt(20, 20)},
		{board.Sq('a', 1), false, image.Pt(20, 20+7*40)},
		{board.Sq('a', 1), true, image.Pt(20+7*40, 20)},
		{board.Sq('h', 8), true, image.Pt(20, 20+7*40)},
	}
	for _, tt := range tests {
		if got := l.SquareRect(tt.sq, tt.flip).Min; got != tt.want {
			t.Errorf("SquareRect(%s, flip=%v) = %v; want %v", tt.sq, tt.flip, got, tt.want)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	b := board.Standard()
	if _, err := RenderPNG(context.Background(), nil, Options{}); err == nil {
		t.Error("nil view accepted")
	}
	if _, err := RenderPNG(context.Background(), &b, Options{SquareSize: 8}); err == nil {
		t.Error("tiny square size accepted")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RenderPNG(ctx, &b, Options{}); err == nil {
		t.Error("cancelled context ignored")
	}
}
