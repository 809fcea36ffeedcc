package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/pcb2render/internal/scene"
)

// Projector maps world points into normalized frame coordinates: X grows to
// the right and Y grows upward, 0..1 across the rendered frame. Z holds the
// distance in front of the camera.
type Projector struct {
	view  mgl64.Mat4
	ortho bool
	halfW float64
	halfH float64
}

// NewProjector prepares a projector for a frame of width x height pixels.
// The field of view (or ortho scale) spans the larger frame dimension.
func NewProjector(cam *scene.Camera, width, height int) *Projector {
	world := mgl64.Translate3D(cam.Location.X(), cam.Location.Y(), cam.Location.Z()).
		Mul4(scene.RotationMatrix(cam.Rotation).Mat4())

	var half float64
	ortho := cam.Projection == scene.Orthographic
	if ortho {
		half = cam.OrthoScale / 2
	} else {
		fov := cam.FOV
		if fov <= 0 {
			fov = DefaultFOV
		}
		half = math.Tan(fov / 2)
	}
	if half <= 0 {
		half = 1e-6
	}

	p := &Projector{view: world.Inv(), ortho: ortho, halfW: half, halfH: half}
	if width > 0 && height > 0 {
		if width >= height {
			p.halfH = half * float64(height) / float64(width)
		} else {
			p.halfW = half * float64(width) / float64(height)
		}
	}
	return p
}

// Project returns the normalized frame position of a world point.
func (p *Projector) Project(world mgl64.Vec3) mgl64.Vec3 {
	local := scene.TransformPoint(p.view, world)
	depth := -local.Z()
	x, y := local.X(), local.Y()
	if !p.ortho {
		d := depth
		if math.Abs(d) < 1e-9 {
			d = 1e-9
		}
		x /= d
		y /= d
	}
	return mgl64.Vec3{
		(x + p.halfW) / (2 * p.halfW),
		(y + p.halfH) / (2 * p.halfH),
		depth,
	}
}

// ViewSpace returns the point in camera-local coordinates.
func (p *Projector) ViewSpace(world mgl64.Vec3) mgl64.Vec3 {
	return scene.TransformPoint(p.view, world)
}
