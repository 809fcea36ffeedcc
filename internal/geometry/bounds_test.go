package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/ivlev/pcb2render/internal/scene"
)

func boxMesh(name string, lo, hi mgl64.Vec3) *scene.Object {
	o := scene.NewObject(name, scene.KindMesh)
	o.Mesh = &scene.Mesh{}
	for _, x := range []float64{lo.X(), hi.X()} {
		for _, y := range []float64{lo.Y(), hi.Y()} {
			for _, z := range []float64{lo.Z(), hi.Z()} {
				o.Mesh.Vertices = append(o.Mesh.Vertices, mgl64.Vec3{x, y, z})
			}
		}
	}
	return o
}

func TestSampleEmptyScene(t *testing.T) {
	sc := scene.New()
	sc.Add(scene.NewObject("pivot", scene.KindEmpty))
	sc.Add(scene.NewObject("hollow", scene.KindMesh))

	b := Sample(sc)
	assert.Equal(t, Bounds{}, b)
	assert.True(t, b.Empty())
}

func TestSampleTransformsVertices(t *testing.T) {
	sc := scene.New()
	o := boxMesh("board", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{4, 2, 1})
	o.Location = mgl64.Vec3{10, 0, 5}
	o.Rotation = mgl64.Vec3{0, 0, math.Pi}
	sc.Add(o)

	b := Sample(sc)
	assert.InDelta(t, 6.0, b.Min.X(), 1e-9)
	assert.InDelta(t, 10.0, b.Max.X(), 1e-9)
	assert.InDelta(t, -2.0, b.Min.Y(), 1e-9)
	assert.InDelta(t, 0.0, b.Max.Y(), 1e-9)
	assert.InDelta(t, 5.0, b.Min.Z(), 1e-9)
	assert.InDelta(t, 6.0, b.Max.Z(), 1e-9)
	assert.InDelta(t, 4.0, b.MaxPlanar(), 1e-9)
	assert.False(t, b.Empty())
}

func TestSampleProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		sc := scene.New()
		o := scene.NewObject("cloud", scene.KindMesh)
		o.Mesh = &scene.Mesh{}
		for i := 0; i < 1+r.Intn(40); i++ {
			o.Mesh.Vertices = append(o.Mesh.Vertices, mgl64.Vec3{
				r.Float64()*200 - 100, r.Float64()*200 - 100, r.Float64()*20 - 10,
			})
		}
		sc.Add(o)

		b := Sample(sc)
		for k := 0; k < 3; k++ {
			assert.LessOrEqual(t, b.Min[k], b.Center[k])
			assert.LessOrEqual(t, b.Center[k], b.Max[k])
			assert.Equal(t, b.Max[k]-b.Min[k], b.Size[k])
		}

		// idempotent without transform changes
		assert.Equal(t, b, Sample(sc))
	}
}

func TestSampleAtUsesKeyframes(t *testing.T) {
	sc := scene.New()
	pivot := scene.NewObject("pivot", scene.KindEmpty)
	pivot.SetKeyframe(1, mgl64.Vec3{})
	pivot.SetKeyframe(3, mgl64.Vec3{0, 0, math.Pi})
	board := boxMesh("board", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 1, 0})
	sc.Add(pivot, board)
	board.SetParent(pivot)

	still := Sample(sc)
	flipped := SampleAt(sc, 3)
	assert.InDelta(t, -still.Max.X(), flipped.Min.X(), 1e-9)
	assert.InDelta(t, -still.Min.X(), flipped.Max.X(), 1e-9)
}
