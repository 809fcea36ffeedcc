// Package backdrop paints the background behind the boards and composites
// rendered frames over it.
package backdrop

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

type Backdrop interface {
	// Paint fills dst completely.
	Paint(dst *image.RGBA)
	// Opaque reports whether painted pixels have full alpha.
	Opaque() bool
}

// New returns the backdrop for a background mode. c2 is only used by the
// gradient.
func New(mode string, c1, c2 colorful.Color) (Backdrop, error) {
	switch strings.ToLower(mode) {
	case "solid", "":
		return &Solid{Color: c1}, nil
	case "gradient":
		return &Gradient{Top: c1, Bottom: c2}, nil
	case "transparent":
		return Transparent{}, nil
	default:
		return nil, fmt.Errorf("unknown background mode %q", mode)
	}
}

type Solid struct {
	Color colorful.Color
}

func (s *Solid) Paint(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(toRGBA(s.Color)), image.Point{}, draw.Src)
}

func (s *Solid) Opaque() bool { return true }

// Gradient blends from Top at the first row to Bottom at the last.
type Gradient struct {
	Top, Bottom colorful.Color
}

func (g *Gradient) Paint(dst *image.RGBA) {
	b := dst.Bounds()
	h := b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := 0.0
		if h > 1 {
			t = float64(y-b.Min.Y) / float64(h-1)
		}
		c := toRGBA(g.Top.BlendRgb(g.Bottom, t))
		row := dst.Pix[dst.PixOffset(b.Min.X, y):dst.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

func (g *Gradient) Opaque() bool { return true }

// Transparent clears to zero alpha.
type Transparent struct{}

func (Transparent) Paint(dst *image.RGBA) {
	clear(dst.Pix)
}

func (Transparent) Opaque() bool { return false }

// Composite paints b into dst and draws frame over it. dst and frame must
// have the same bounds origin.
func Composite(dst *image.RGBA, frame image.Image, b Backdrop) {
	b.Paint(dst)
	draw.Draw(dst, dst.Bounds(), frame, frame.Bounds().Min, draw.Over)
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
