// Package animation builds the turntable orbit: boards are parented to a
// pivot empty whose Z rotation is keyframed over the frame range.
package animation

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/pcb2render/internal/scene"
)

// PivotName is the name of the synthetic pivot object.
const PivotName = "OrbitPivot"

// Plan is the result of Build: the pivot and the objects attached to it.
type Plan struct {
	Pivot   *scene.Object
	Objects []*scene.Object
	Frames  int
}

// Build creates a pivot at center, parents objs to it without moving them
// and stores one keyframe per frame so that frame i (1-based) has rotation
// (i-1)/frames * 360 degrees about Z.
func Build(sc *scene.Scene, objs []*scene.Object, center mgl64.Vec3, frames int) (*Plan, error) {
	if frames < 1 {
		return nil, fmt.Errorf("animation needs at least one frame, got %d", frames)
	}

	pivot := scene.NewObject(PivotName, scene.KindEmpty)
	pivot.Location = center
	sc.Add(pivot)

	for _, o := range objs {
		o.SetParent(pivot)
	}

	for i := 1; i <= frames; i++ {
		angle := float64(i-1) / float64(frames) * 2 * math.Pi
		pivot.SetKeyframe(i, mgl64.Vec3{0, 0, angle})
	}

	sc.FrameStart = 1
	sc.FrameEnd = frames

	return &Plan{Pivot: pivot, Objects: objs, Frames: frames}, nil
}

// Evaluate returns the rotation at frame, interpolating linearly between the
// surrounding keys and holding the first/last key outside their range.
func Evaluate(keys []scene.Keyframe, frame float64) (mgl64.Vec3, bool) {
	if len(keys) == 0 {
		return mgl64.Vec3{}, false
	}

	sorted := keys
	if !sort.SliceIsSorted(keys, func(i, j int) bool { return keys[i].Frame < keys[j].Frame }) {
		sorted = make([]scene.Keyframe, len(keys))
		copy(sorted, keys)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Frame < sorted[j].Frame })
	}

	if frame <= float64(sorted[0].Frame) {
		return sorted[0].Rotation, true
	}
	last := sorted[len(sorted)-1]
	if frame >= float64(last.Frame) {
		return last.Rotation, true
	}

	for i := 0; i < len(sorted)-1; i++ {
		a, b := sorted[i], sorted[i+1]
		if frame >= float64(a.Frame) && frame < float64(b.Frame) {
			span := float64(b.Frame - a.Frame)
			t := (frame - float64(a.Frame)) / span
			return lerp(a.Rotation, b.Rotation, t), true
		}
	}
	return last.Rotation, true
}

func lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
