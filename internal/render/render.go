// Package render draws a position as a PNG image. Pieces are round
// tokens rasterised from SVG and labelled with their letter.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"sync"

	"chesstrack/internal/board"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultSquareSize = 48
	minSquareSize     = 24
	maxSquareSize     = 128
)

// Highlight marks the squares of a move.
type Highlight struct {
	From board.Square
	To   board.Square
}

type Options struct {
	SquareSize int        // pixels per square, DefaultSquareSize when zero
	Highlight  *Highlight // optional
	Flip       bool       // draw from Black's side
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	highlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	background      = color.RGBA{40, 44, 52, 255}
	coordinateColor = color.RGBA{220, 220, 220, 255}

	whiteToken  = color.RGBA{248, 248, 248, 255}
	blackToken  = color.RGBA{32, 32, 32, 255}
	tokenStroke = color.RGBA{90, 90, 90, 255}
)

const tokenSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
<circle cx="50" cy="50" r="40" fill="%s" stroke="%s" stroke-width="6"/>
</svg>`

// Layout gives the pixel geometry for a square size.
type Layout struct {
	Square int
	Margin int
}

func layoutFor(size int) Layout {
	return Layout{Square: size, Margin: size / 2}
}

// Size is the width and height of the whole image.
func (l Layout) Size() int { return 8*l.Square + 2*l.Margin }

// SquareRect is the pixel rectangle of sq.
func (l Layout) SquareRect(sq board.Square, flip bool) image.Rectangle {
	col := int(sq.File - 'a')
	row := 8 - sq.Rank
	if flip {
		col, row = 7-col, sq.Rank-1
	}
	x := l.Margin + col*l.Square
	y := l.Margin + row*l.Square
	return image.Rect(x, y, x+l.Square, y+l.Square)
}

// RenderPNG draws v and encodes it as PNG.
func RenderPNG(ctx context.Context, v board.View, opts Options) ([]byte, error) {
	if v == nil {
		return nil, errors.New("render: nil position")
	}
	size := opts.SquareSize
	if size == 0 {
		size = DefaultSquareSize
	}
	if size < minSquareSize || size > maxSquareSize {
		return nil, fmt.Errorf("render: square size %d outside %d..%d", size, minSquareSize, maxSquareSize)
	}
	l := layoutFor(size)

	img := image.NewRGBA(image.Rect(0, 0, l.Size(), l.Size()))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	drawSquares(img, l, opts.Flip)
	if h := opts.Highlight; h != nil {
		for _, sq := range []board.Square{h.From, h.To} {
			if sq.Valid() {
				draw.Draw(img, l.SquareRect(sq, opts.Flip), image.NewUniform(highlightFill), image.Point{}, draw.Over)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := drawPieces(img, v, l, opts.Flip); err != nil {
		return nil, err
	}
	drawCoordinates(img, l, opts.Flip)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SquareColor is the fill of an unoccupied, unhighlighted square.
func SquareColor(sq board.Square) color.RGBA {
	if (int(sq.File-'a')+sq.Rank-1)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(dst draw.Image, l Layout, flip bool) {
	for i := 0; i < 64; i++ {
		sq := board.SquareAt(i)
		draw.Draw(dst, l.SquareRect(sq, flip), image.NewUniform(SquareColor(sq)), image.Point{}, draw.Src)
	}
}

func drawPieces(dst *image.RGBA, v board.View, l Layout, flip bool) error {
	drawer := &font.Drawer{Dst: dst, Face: basicfont.Face7x13}
	for i := 0; i < 64; i++ {
		sq := board.SquareAt(i)
		p, ok := v.At(sq)
		if !ok {
			continue
		}
		token, err := tokenImage(p.Color, l.Square)
		if err != nil {
			return err
		}
		r := l.SquareRect(sq, flip)
		draw.Draw(dst, r, token, image.Point{}, draw.Over)

		label := strings.ToUpper(string(p.Symbol()))
		drawer.Src = image.NewUniform(labelColor(p.Color))
		drawCentered(drawer, label, r.Min.X+l.Square/2, r.Min.Y+l.Square/2)
	}
	return nil
}

func labelColor(c board.Color) color.Color {
	if c == board.White {
		return blackToken
	}
	return whiteToken
}

func drawCoordinates(dst *image.RGBA, l Layout, flip bool) {
	drawer := &font.Drawer{Dst: dst, Face: basicfont.Face7x13, Src: image.NewUniform(coordinateColor)}
	for i := 0; i < 8; i++ {
		file := board.Sq('a'+byte(i), 1)
		r := l.SquareRect(file, flip)
		drawCentered(drawer, string(file.File), r.Min.X+l.Square/2, l.Margin+8*l.Square+l.Margin/2)

		rank := board.Sq('a', i+1)
		r = l.SquareRect(rank, flip)
		drawCentered(drawer, fmt.Sprint(rank.Rank), l.Margin/2, r.Min.Y+l.Square/2)
	}
}

// drawCentered draws text with its box centred on (cx, cy).
func drawCentered(d *font.Drawer, text string, cx, cy int) {
	m := d.Face.Metrics()
	w := d.MeasureString(text).Round()
	baseline := cy + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.P(cx-w/2, baseline)
	d.DrawString(text)
}

type tokenKey struct {
	color board.Color
	size  int
}

var (
	tokenCache   = map[tokenKey]image.Image{}
	tokenCacheMu sync.RWMutex
)

func tokenImage(c board.Color, size int) (image.Image, error) {
	key := tokenKey{c, size}
	tokenCacheMu.RLock()
	if img, ok := tokenCache[key]; ok {
		tokenCacheMu.RUnlock()
		return img, nil
	}
	tokenCacheMu.RUnlock()

	fill := whiteToken
	if c == board.Black {
		fill = blackToken
	}
	svg := fmt.Sprintf(tokenSVG, hex(fill), hex(tokenStroke))
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse token svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	tokenCacheMu.Lock()
	tokenCache[key] = img
	tokenCacheMu.Unlock()
	return img, nil
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
