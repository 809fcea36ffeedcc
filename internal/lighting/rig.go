// Package lighting derives the fixed three-point light rig from scene size.
package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/pcb2render/internal/geometry"
	"github.com/ivlev/pcb2render/internal/scene"
)

// TransparentBoost multiplies every energy when there is no backdrop to
// bounce fill light.
const TransparentBoost = 4.0

// placement positions one light around the scene center. Distances, height
// and size are multiples of the scene scale. The light sits at
// (-distance*cos(angle), distance*sin(angle), height) from the center.
type placement struct {
	name     string
	angle    float64 // degrees
	distance float64
	height   float64
	size     float64
	energy   float64 // per squared scene scale, opaque mode
}

var layout = []placement{
	{name: "Key", angle: 45, distance: 2.0, height: 1.5, size: 0.5, energy: 1.0},
	{name: "Fill", angle: -30, distance: 2.0, height: 1.0, size: 0.6, energy: 0.2},
	{name: "Rim", angle: 180, distance: 1.8, height: 1.5, size: 0.4, energy: 0.5},
}

// Rig is the key/fill/rim triad.
type Rig struct {
	Key  *scene.Light
	Fill *scene.Light
	Rim  *scene.Light
}

// Lights returns the rig in key, fill, rim order.
func (r *Rig) Lights() []*scene.Light {
	return []*scene.Light{r.Key, r.Fill, r.Rim}
}

// Scale returns the scalar every light parameter is derived from: the larger
// planar extent, or 1 for a degenerate scene.
func Scale(b geometry.Bounds) float64 {
	s := b.MaxPlanar()
	if s <= 0 {
		return 1
	}
	return s
}

// Plan builds the rig around b. Lights are aimed at the scene center.
func Plan(b geometry.Bounds, transparent bool) *Rig {
	s := Scale(b)
	boost := 1.0
	if transparent {
		boost = TransparentBoost
	}

	lights := make([]*scene.Light, len(layout))
	for i, p := range layout {
		loc := b.Center.Add(p.offset().Mul(s))
		aim := b.Center.Sub(loc).Normalize()
		lights[i] = &scene.Light{
			Name:      p.name,
			Location:  loc,
			Direction: aim,
			Rotation:  scene.LookRotation(aim, mgl64.Vec3{0, 0, 1}),
			Size:      p.size * s,
			Energy:    p.energy * s * s * boost,
		}
	}
	return &Rig{Key: lights[0], Fill: lights[1], Rim: lights[2]}
}

func (p placement) offset() mgl64.Vec3 {
	a := mgl64.DegToRad(p.angle)
	return mgl64.Vec3{-p.distance * math.Cos(a), p.distance * math.Sin(a), p.height}
}
