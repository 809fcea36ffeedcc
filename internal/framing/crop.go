// Package framing derives the auto-crop border that removes dead space
// around the boards in the rendered frame.
package framing

import (
	"fmt"
	"image"
	"math"

	"github.com/ivlev/pcb2render/internal/camera"
	"github.com/ivlev/pcb2render/internal/scene"
)

const (
	// DefaultPadding is the per-side margin in percent of the projected
	// content size.
	DefaultPadding = 5.0
	// OrbitAllowance is the extra horizontal margin, in percentage points of
	// the content width, for animated renders where the boards sweep sideways.
	OrbitAllowance = 40.0
)

// Crop is a normalized sub-rectangle of the frame (Y grows upward) with its
// pixel dimensions. Width and Height are always even.
type Crop struct {
	MinX, MaxX float64
	MinY, MaxY float64
	Width      int
	Height     int
}

// Request holds the framing inputs besides camera and scene.
type Request struct {
	Width    int
	Height   int
	Padding  float64
	Animated bool
}

// Pixels returns the crop as an image rectangle with the origin at the top
// left of the frame.
func (c *Crop) Pixels(frameW, frameH int) image.Rectangle {
	x0 := int(math.Round(c.MinX * float64(frameW)))
	y0 := int(math.Round((1 - c.MaxY) * float64(frameH)))
	return image.Rect(x0, y0, x0+c.Width, y0+c.Height)
}

func (c *Crop) String() string {
	return fmt.Sprintf("x[%.4f..%.4f] y[%.4f..%.4f] %dx%d", c.MinX, c.MaxX, c.MinY, c.MaxY, c.Width, c.Height)
}

// Plan projects every mesh vertex through cam and returns the padded crop.
// It returns nil when the scene has no mesh vertices.
func Plan(cam *scene.Camera, sc *scene.Scene, req Request) (*Crop, error) {
	if req.Width < 2 || req.Height < 2 {
		return nil, fmt.Errorf("invalid resolution %dx%d", req.Width, req.Height)
	}

	meshes := sc.Meshes()
	if len(meshes) == 0 {
		return nil, nil
	}

	proj := camera.NewProjector(cam, req.Width, req.Height)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, o := range meshes {
		for _, v := range o.WorldVertices(o.WorldMatrix()) {
			p := proj.Project(v)
			minX = math.Min(minX, p.X())
			maxX = math.Max(maxX, p.X())
			minY = math.Min(minY, p.Y())
			maxY = math.Max(maxY, p.Y())
		}
	}

	padding := req.Padding
	if padding < 0 {
		padding = 0
	}
	padX := (maxX - minX) * padding / 100
	padY := (maxY - minY) * padding / 100
	if req.Animated {
		padX = (maxX - minX) * (padding + OrbitAllowance) / 100
	}

	x0, w := fitAxis(minX-padX, maxX+padX, req.Width)
	y0, h := fitAxis(minY-padY, maxY+padY, req.Height)

	return &Crop{
		MinX:   clamp01(float64(x0) / float64(req.Width)),
		MaxX:   clamp01(float64(x0+w) / float64(req.Width)),
		MinY:   clamp01(float64(y0) / float64(req.Height)),
		MaxY:   clamp01(float64(y0+h) / float64(req.Height)),
		Width:  w,
		Height: h,
	}, nil
}

// fitAxis converts a fractional span to an even pixel span that lies inside
// [0, res] and returns its start and length.
func fitAxis(lo, hi float64, res int) (int, int) {
	limit := res - res%2
	size := int(math.Round((hi - lo) * float64(res)))
	if size%2 != 0 {
		if size+1 <= limit {
			size++
		} else {
			size--
		}
	}
	if size > limit {
		size = limit
	}
	if size < 2 {
		size = 2
	}

	center := (lo + hi) / 2 * float64(res)
	start := int(math.Round(center - float64(size)/2))
	if start < 0 {
		start = 0
	}
	if start+size > res {
		start = res - size
	}
	return start, size
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
