// Package camera places the fixed-angle render camera and derives the
// per-view board rotation.
package camera

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/pcb2render/internal/geometry"
	"github.com/ivlev/pcb2render/internal/scene"
)

const (
	// DistanceFactor scales the planar extent into camera distance.
	DistanceFactor = 2.5
	// OrthoFactor scales the largest extent into the orthographic frame width.
	OrthoFactor = 3.0
	// DefaultLens and SensorWidth give the default field of view.
	DefaultLens = 50.0
	SensorWidth = 36.0
)

// DefaultFOV is the field of view of a 50mm lens on a 36mm sensor.
var DefaultFOV = 2 * math.Atan(SensorWidth/(2*DefaultLens))

// Request carries the user's camera choices.
type Request struct {
	View       string
	Projection scene.Projection
	Multiplier float64
}

// Result is the planned camera plus the rotation every board must receive.
type Result struct {
	Camera        *scene.Camera
	BoardRotation mgl64.Vec3
}

// Distance returns the camera distance for the given bounds. Only the planar
// extent is used so tall stacks do not push the camera back.
func Distance(b geometry.Bounds, multiplier float64) float64 {
	return b.MaxPlanar() * DistanceFactor * multiplier
}

// Plan computes the camera for bounds sampled before any view rotation. The
// returned camera is framed on those bounds; once BoardRotation has been
// applied the caller must re-sample and call Recenter.
func Plan(b geometry.Bounds, req Request) (*Result, error) {
	rule, err := LookupView(req.View)
	if err != nil {
		return nil, err
	}

	proj := req.Projection
	if proj == "" {
		proj = scene.Perspective
	}
	if proj != scene.Orthographic && proj != scene.Perspective {
		return nil, fmt.Errorf("unknown projection %q", req.Projection)
	}

	mult := req.Multiplier
	if mult <= 0 {
		mult = 1
	}

	view := req.View
	if view == "" {
		view = DefaultView
	}

	cam := &scene.Camera{
		Projection: proj,
		View:       view,
		Multiplier: mult,
		FOV:        DefaultFOV,
	}
	Recenter(cam, b)

	return &Result{Camera: cam, BoardRotation: rule.Rotation()}, nil
}

// Recenter re-applies the fixed elevation/azimuth placement around b.
func Recenter(cam *scene.Camera, b geometry.Bounds) {
	cam.Distance = Distance(b, cam.Multiplier)
	dir := ToCamera()
	cam.Location = b.Center.Add(dir.Mul(cam.Distance))
	cam.Rotation = scene.LookRotation(dir.Mul(-1), mgl64.Vec3{0, 0, 1})
	if cam.Projection == scene.Orthographic {
		cam.OrthoScale = OrthoFactor * b.MaxDimension()
	} else {
		cam.OrthoScale = 0
	}
}
