package scene

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// ObjectKind distinguishes geometry-bearing objects from transform-only anchors.
type ObjectKind int

const (
	KindMesh ObjectKind = iota
	KindEmpty
)

// Mesh holds vertex positions in object-local space and triangle indices.
type Mesh struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int
	// Colors holds one base color per triangle. It may be empty.
	Colors []color.RGBA
}

// Keyframe stores an object's Euler rotation at a frame index.
type Keyframe struct {
	Frame    int
	Rotation mgl64.Vec3
}

// Object is a node of the scene graph. World transform follows the
// parent * parentInverse * local convention.
type Object struct {
	Name     string
	Kind     ObjectKind
	Mesh     *Mesh
	Location mgl64.Vec3
	// Rotation is an XYZ Euler triple in radians.
	Rotation mgl64.Vec3
	Scale    mgl64.Vec3

	Parent        *Object
	ParentInverse mgl64.Mat4
	Keyframes     []Keyframe

	// Source is the board file this object was imported from, empty for
	// synthetic objects.
	Source string
	// Board is the index of the input board that produced the object, -1
	// for synthetic objects.
	Board int
}

// Projection is the camera projection type.
type Projection string

const (
	Orthographic Projection = "ortho"
	Perspective  Projection = "perspective"
)

// Camera is the single render camera. It looks down its local -Z axis.
type Camera struct {
	Location   mgl64.Vec3
	Rotation   mgl64.Vec3
	Projection Projection
	View       string
	Distance   float64
	Multiplier float64
	OrthoScale float64
	// FOV is the field of view in radians along the larger frame dimension.
	FOV float64
}

// Light is an area light aimed along its local -Z axis.
type Light struct {
	Name      string
	Location  mgl64.Vec3
	Rotation  mgl64.Vec3
	Direction mgl64.Vec3
	Size      float64
	Energy    float64
}

// Scene is the explicit composition state handed to every planner.
type Scene struct {
	Objects    []*Object
	Camera     *Camera
	Lights     []*Light
	FrameStart int
	FrameEnd   int
}

// New returns an empty scene with a single-frame range.
func New() *Scene {
	return &Scene{FrameStart: 1, FrameEnd: 1}
}

// NewObject returns an object with identity transform.
func NewObject(name string, kind ObjectKind) *Object {
	return &Object{
		Name:          name,
		Kind:          kind,
		Scale:         mgl64.Vec3{1, 1, 1},
		ParentInverse: mgl64.Ident4(),
		Board:         -1,
	}
}

// Add appends objects to the scene, giving unnamed ones a unique name.
func (s *Scene) Add(objs ...*Object) {
	for _, o := range objs {
		if o.Name == "" {
			o.Name = fmt.Sprintf("Object.%03d", len(s.Objects))
		}
		s.Objects = append(s.Objects, o)
	}
}

// Meshes returns every mesh object that carries at least one vertex.
func (s *Scene) Meshes() []*Object {
	var out []*Object
	for _, o := range s.Objects {
		if o.Kind == KindMesh && o.Mesh != nil && len(o.Mesh.Vertices) > 0 {
			out = append(out, o)
		}
	}
	return out
}

// FindByName returns the first object with the given name.
func (s *Scene) FindByName(name string) *Object {
	for _, o := range s.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// FrameCount reports the number of frames in the scene's frame range.
func (s *Scene) FrameCount() int {
	if s.FrameEnd < s.FrameStart {
		return 0
	}
	return s.FrameEnd - s.FrameStart + 1
}

// LocalMatrix composes translation, rotation and scale.
func (o *Object) LocalMatrix() mgl64.Mat4 {
	return composeTRS(o.Location, o.Rotation, o.Scale)
}

// WorldMatrix returns the object's current world transform.
func (o *Object) WorldMatrix() mgl64.Mat4 {
	local := o.LocalMatrix()
	if o.Parent == nil {
		return local
	}
	return o.Parent.WorldMatrix().Mul4(o.ParentInverse).Mul4(local)
}

// WorldMatrixAt returns the world transform with keyframed rotations
// evaluated at frame. The object itself is left untouched.
func (o *Object) WorldMatrixAt(frame float64, eval func(kf []Keyframe, frame float64) (mgl64.Vec3, bool)) mgl64.Mat4 {
	rot := o.Rotation
	if eval != nil && len(o.Keyframes) > 0 {
		if r, ok := eval(o.Keyframes, frame); ok {
			rot = r
		}
	}
	local := composeTRS(o.Location, rot, o.Scale)
	if o.Parent == nil {
		return local
	}
	return o.Parent.WorldMatrixAt(frame, eval).Mul4(o.ParentInverse).Mul4(local)
}

// WorldVertices transforms the mesh vertices with the given world matrix.
func (o *Object) WorldVertices(world mgl64.Mat4) []mgl64.Vec3 {
	if o.Mesh == nil {
		return nil
	}
	out := make([]mgl64.Vec3, len(o.Mesh.Vertices))
	for i, v := range o.Mesh.Vertices {
		out[i] = TransformPoint(world, v)
	}
	return out
}

// SetKeyframe inserts or replaces the rotation key at frame.
func (o *Object) SetKeyframe(frame int, rotation mgl64.Vec3) {
	for i := range o.Keyframes {
		if o.Keyframes[i].Frame == frame {
			o.Keyframes[i].Rotation = rotation
			return
		}
	}
	o.Keyframes = append(o.Keyframes, Keyframe{Frame: frame, Rotation: rotation})
}

// SetParent parents o to p while keeping its world transform, storing the
// inverse of the parent's world matrix.
func (o *Object) SetParent(p *Object) {
	o.Parent = p
	if p == nil {
		o.ParentInverse = mgl64.Ident4()
		return
	}
	o.ParentInverse = p.WorldMatrix().Inv()
}
