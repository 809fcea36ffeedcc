package backdrop

import (
	"image"
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	white = colorful.Color{R: 1, G: 1, B: 1}
	black = colorful.Color{}
)

func TestNew(t *testing.T) {
	for mode, opaque := range map[string]bool{"solid": true, "Gradient": true, "transparent": false, "": true} {
		b, err := New(mode, white, black)
		require.NoError(t, err, mode)
		assert.Equal(t, opaque, b.Opaque(), mode)
	}
	_, err := New("hdri", white, black)
	assert.Error(t, err)
}

func TestSolid(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	(&Solid{Color: colorful.Color{R: 1}}).Paint(img)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(3, 2))
}

func TestGradientEndsMatchColors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 11))
	(&Gradient{Top: white, Bottom: black}).Paint(img)

	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(1, 10))
	mid := img.RGBAAt(0, 5)
	assert.InDelta(t, 128, int(mid.R), 1)
	for y := 1; y < 11; y++ {
		assert.LessOrEqual(t, img.RGBAAt(0, y).R, img.RGBAAt(0, y-1).R)
	}
}

func TestCompositeOverTransparent(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 2, 1))
	frame.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})

	dst := image.NewRGBA(frame.Bounds())
	Composite(dst, frame, &Solid{Color: colorful.Color{B: 1}})
	assert.Equal(t, color.RGBA{R: 255, A: 255}, dst.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, dst.RGBAAt(1, 0))

	Composite(dst, frame, Transparent{})
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(1, 0))
}
