// Package geometry samples world-space extents of the meshes in a scene.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/pcb2render/internal/animation"
	"github.com/ivlev/pcb2render/internal/scene"
)

// Bounds is the axis-aligned box around every mesh vertex in world space.
type Bounds struct {
	Min    mgl64.Vec3
	Max    mgl64.Vec3
	Center mgl64.Vec3
	Size   mgl64.Vec3
}

// Empty reports whether the bounds came from a scene without geometry.
func (b Bounds) Empty() bool {
	return b.Size == (mgl64.Vec3{}) && b.Min == b.Max
}

// MaxPlanar returns the larger of the X and Y extents.
func (b Bounds) MaxPlanar() float64 {
	return math.Max(b.Size.X(), b.Size.Y())
}

// MaxDimension returns the largest extent over all three axes.
func (b Bounds) MaxDimension() float64 {
	return math.Max(b.MaxPlanar(), b.Size.Z())
}

// Sample walks every mesh object and returns the bounds of its world-space
// vertices. A scene without mesh vertices yields zero bounds. Nothing is
// cached: callers re-sample after any transform change.
func Sample(sc *scene.Scene) Bounds {
	return sample(sc, func(o *scene.Object) mgl64.Mat4 { return o.WorldMatrix() })
}

// SampleAt evaluates keyframed transforms at frame before sampling.
func SampleAt(sc *scene.Scene, frame float64) Bounds {
	return sample(sc, func(o *scene.Object) mgl64.Mat4 { return o.WorldMatrixAt(frame, animation.Evaluate) })
}

func sample(sc *scene.Scene, world func(*scene.Object) mgl64.Mat4) Bounds {
	lo := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	found := false

	for _, o := range sc.Meshes() {
		m := world(o)
		for _, v := range o.Mesh.Vertices {
			p := scene.TransformPoint(m, v)
			for k := 0; k < 3; k++ {
				if p[k] < lo[k] {
					lo[k] = p[k]
				}
				if p[k] > hi[k] {
					hi[k] = p[k]
				}
			}
			found = true
		}
	}

	if !found {
		return Bounds{}
	}
	return FromMinMax(lo, hi)
}

// FromMinMax derives center and size from two corners.
func FromMinMax(lo, hi mgl64.Vec3) Bounds {
	return Bounds{
		Min:    lo,
		Max:    hi,
		Center: lo.Add(hi).Mul(0.5),
		Size:   hi.Sub(lo),
	}
}
