package camera

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/pcb2render/internal/scene"
)

// Fixed camera geometry. Only the boards are rotated to present other faces.
const (
	Elevation = 45.0
	Azimuth   = -45.0
)

// BaselineRotation is applied to every board at import so its default
// orientation reads naturally from the fixed camera.
var BaselineRotation = mgl64.Vec3{0, 0, math.Pi}

// ViewRule describes which board face has to point at the camera. Face and
// Up are expressed in the board frame after the baseline rotation. A rule
// with a zero Face keeps the baseline orientation.
type ViewRule struct {
	Face mgl64.Vec3
	Up   mgl64.Vec3
}

var views = map[string]ViewRule{
	"angle":       {},
	"perspective": {},
	"top":         {Face: mgl64.Vec3{0, 0, 1}, Up: mgl64.Vec3{0, 1, 0}},
	"bottom":      {Face: mgl64.Vec3{0, 0, -1}, Up: mgl64.Vec3{0, 1, 0}},
	"front":       {Face: mgl64.Vec3{0, -1, 0}, Up: mgl64.Vec3{0, 0, 1}},
	"side":        {Face: mgl64.Vec3{1, 0, 0}, Up: mgl64.Vec3{0, 0, 1}},
}

// DefaultView is used when no view is requested.
const DefaultView = "angle"

// Views lists the known view labels in sorted order.
func Views() []string {
	out := make([]string, 0, len(views))
	for name := range views {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LookupView returns the rule registered under name.
func LookupView(name string) (ViewRule, error) {
	if name == "" {
		name = DefaultView
	}
	rule, ok := views[strings.ToLower(name)]
	if !ok {
		return ViewRule{}, fmt.Errorf("unknown view %q (known: %s)", name, strings.Join(Views(), ", "))
	}
	return rule, nil
}

// ToCamera is the unit vector from the scene center toward the camera.
// Azimuth turns clockwise seen from above, so the camera sits over the +X +Y
// quadrant.
func ToCamera() mgl64.Vec3 {
	return scene.Spherical(-Azimuth, Elevation)
}

// ScreenUp is the world direction that appears as "up" in the frame.
func ScreenUp() mgl64.Vec3 {
	d := ToCamera()
	z := mgl64.Vec3{0, 0, 1}
	return z.Sub(d.Mul(z.Dot(d))).Normalize()
}

// BoardRotation returns the Euler rotation every board receives for the
// named view. It depends only on the view, never on board geometry.
func BoardRotation(name string) (mgl64.Vec3, error) {
	rule, err := LookupView(name)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return rule.Rotation(), nil
}

// Rotation maps Face onto the direction toward the camera and Up onto the
// screen-up direction, composed after the baseline rotation.
func (r ViewRule) Rotation() mgl64.Vec3 {
	base := scene.RotationMatrix(BaselineRotation)
	if r.Face.Len() == 0 {
		return BaselineRotation
	}
	from := frame(r.Face, r.Up)
	to := frame(ToCamera(), ScreenUp())
	align := to.Mul3(from.Transpose())
	return scene.EulerFromMatrix(align.Mul3(base))
}

// frame builds an orthonormal basis with normal as Z and up projected into Y.
func frame(normal, up mgl64.Vec3) mgl64.Mat3 {
	z := normal.Normalize()
	y := up.Sub(z.Mul(up.Dot(z)))
	if y.Len() < 1e-9 {
		y = mgl64.Vec3{0, 1, 0}.Sub(z.Mul(z.Y()))
	}
	y = y.Normalize()
	x := y.Cross(z)
	return mgl64.Mat3FromCols(x, y, z)
}
