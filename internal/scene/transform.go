package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RotationMatrix builds the rotation for an XYZ Euler triple: X is applied
// first, then Y, then Z.
func RotationMatrix(euler mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Rotate3DZ(euler.Z()).Mul3(mgl64.Rotate3DY(euler.Y())).Mul3(mgl64.Rotate3DX(euler.X()))
}

// EulerFromMatrix decomposes a pure rotation into an XYZ Euler triple.
func EulerFromMatrix(m mgl64.Mat3) mgl64.Vec3 {
	sy := -m.At(2, 0)
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	y := math.Asin(sy)
	if math.Abs(sy) > 1-1e-9 {
		// gimbal lock: fold the X rotation into Z
		return mgl64.Vec3{0, y, math.Atan2(-m.At(0, 1), m.At(1, 1))}
	}
	x := math.Atan2(m.At(2, 1), m.At(2, 2))
	z := math.Atan2(m.At(1, 0), m.At(0, 0))
	return mgl64.Vec3{x, y, z}
}

// TransformPoint applies a homogeneous transform to a point.
func TransformPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// LookRotation returns the Euler rotation that points an object's local -Z
// axis along dir with its local +Y as close to up as possible.
func LookRotation(dir, up mgl64.Vec3) mgl64.Vec3 {
	return EulerFromMatrix(LookBasis(dir, up))
}

// LookBasis returns the rotation whose columns are the local X, Y and Z axes
// of an object looking along dir.
func LookBasis(dir, up mgl64.Vec3) mgl64.Mat3 {
	z := dir.Mul(-1)
	if z.Len() == 0 {
		return mgl64.Ident3()
	}
	z = z.Normalize()
	x := up.Cross(z)
	if x.Len() < 1e-9 {
		// dir is parallel to up, pick any perpendicular
		x = mgl64.Vec3{1, 0, 0}.Cross(z)
		if x.Len() < 1e-9 {
			x = mgl64.Vec3{0, 1, 0}.Cross(z)
		}
	}
	x = x.Normalize()
	y := z.Cross(x)
	return mgl64.Mat3FromCols(x, y, z)
}

// Spherical returns the unit vector for an azimuth measured from +X toward +Y
// and an elevation above the XY plane, both in degrees.
func Spherical(azimuthDeg, elevationDeg float64) mgl64.Vec3 {
	az := mgl64.DegToRad(azimuthDeg)
	el := mgl64.DegToRad(elevationDeg)
	return mgl64.Vec3{
		math.Cos(el) * math.Cos(az),
		math.Cos(el) * math.Sin(az),
		math.Sin(el),
	}
}

func composeTRS(loc, rot, scale mgl64.Vec3) mgl64.Mat4 {
	t := mgl64.Translate3D(loc.X(), loc.Y(), loc.Z())
	r := RotationMatrix(rot).Mat4()
	s := mgl64.Scale3D(scale.X(), scale.Y(), scale.Z())
	return t.Mul4(r).Mul4(s)
}
