package render

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/draw"

	"github.com/ivlev/pcb2render/internal/animation"
	"github.com/ivlev/pcb2render/internal/camera"
	"github.com/ivlev/pcb2render/internal/scene"
	"github.com/ivlev/pcb2render/internal/system"
)

const (
	// Supersample is the per-axis oversampling factor of the preview.
	Supersample = 2
	ambient     = 0.18
)

// boardGreen is used for triangles without a material color.
var boardGreen = color.RGBA{R: 0x1f, G: 0x6e, B: 0x43, A: 0xff}

// rasterizer is a flat-shaded z-buffer triangle filler. Depth keys grow
// toward the camera: -depth for ortho, 1/depth for perspective.
type rasterizer struct {
	w, h   int
	color  *image.RGBA
	depth  []float64
	proj   *camera.Projector
	ortho  bool
	eye    mgl64.Vec3
	back   mgl64.Vec3
	lights []*scene.Light
	total  float64
}

// renderFrame rasterizes sc at the given scene frame into a w x h image
// with a transparent background.
func renderFrame(sc *scene.Scene, frame float64, w, h int) *image.RGBA {
	sw, sh := w*Supersample, h*Supersample
	r := &rasterizer{
		w:      sw,
		h:      sh,
		color:  system.GetImage(image.Rect(0, 0, sw, sh)),
		depth:  make([]float64, sw*sh),
		proj:   camera.NewProjector(sc.Camera, sw, sh),
		ortho:  sc.Camera.Projection == scene.Orthographic,
		eye:    sc.Camera.Location,
		back:   scene.RotationMatrix(sc.Camera.Rotation).Col(2),
		lights: sc.Lights,
	}
	clear(r.color.Pix)
	for i := range r.depth {
		r.depth[i] = math.Inf(-1)
	}
	for _, l := range r.lights {
		r.total += l.Energy
	}

	for _, o := range sc.Meshes() {
		world := o.WorldMatrixAt(frame, animation.Evaluate)
		verts := o.WorldVertices(world)
		for ti, tri := range o.Mesh.Triangles {
			base := boardGreen
			if ti < len(o.Mesh.Colors) {
				base = o.Mesh.Colors[ti]
			}
			r.triangle(verts[tri[0]], verts[tri[1]], verts[tri[2]], base)
		}
	}

	out := system.GetImage(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(out, out.Bounds(), r.color, r.color.Bounds(), draw.Src, nil)
	system.PutImage(r.color)
	return out
}

func (r *rasterizer) shade(a, b, c mgl64.Vec3, base color.RGBA) color.RGBA {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return base
	}
	n = n.Normalize()
	centroid := a.Add(b).Add(c).Mul(1.0 / 3)

	// two-sided: face the viewer
	toEye := r.back
	if !r.ortho {
		toEye = r.eye.Sub(centroid)
	}
	if n.Dot(toEye) < 0 {
		n = n.Mul(-1)
	}

	light := ambient
	if r.total > 0 {
		for _, l := range r.lights {
			dir := l.Location.Sub(centroid)
			if dir.Len() == 0 {
				continue
			}
			lambert := math.Max(0, n.Dot(dir.Normalize()))
			light += (1 - ambient) * lambert * l.Energy / r.total * 1.6
		}
	} else {
		light = 1
	}
	light = math.Min(light, 1.25)

	scale := func(v uint8) uint8 {
		return uint8(math.Min(255, math.Round(float64(v)*light)))
	}
	return color.RGBA{R: scale(base.R), G: scale(base.G), B: scale(base.B), A: base.A}
}

func (r *rasterizer) screen(p mgl64.Vec3) (x, y, key float64, ok bool) {
	q := r.proj.Project(p)
	depth := q.Z()
	if r.ortho {
		key = -depth
	} else {
		if depth <= 1e-6 {
			return 0, 0, 0, false
		}
		key = 1 / depth
	}
	return q.X() * float64(r.w), (1 - q.Y()) * float64(r.h), key, true
}

func (r *rasterizer) triangle(a, b, c mgl64.Vec3, base color.RGBA) {
	x0, y0, k0, ok0 := r.screen(a)
	x1, y1, k1, ok1 := r.screen(b)
	x2, y2, k2, ok2 := r.screen(c)
	if !ok0 || !ok1 || !ok2 {
		return
	}

	area := (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
	if math.Abs(area) < 1e-12 {
		return
	}

	minX := int(math.Max(0, math.Floor(math.Min(x0, math.Min(x1, x2)))))
	maxX := int(math.Min(float64(r.w-1), math.Ceil(math.Max(x0, math.Max(x1, x2)))))
	minY := int(math.Max(0, math.Floor(math.Min(y0, math.Min(y1, y2)))))
	maxY := int(math.Min(float64(r.h-1), math.Ceil(math.Max(y0, math.Max(y1, y2)))))
	if minX > maxX || minY > maxY {
		return
	}

	col := r.shade(a, b, c, base)
	for py := minY; py <= maxY; py++ {
		fy := float64(py) + 0.5
		for px := minX; px <= maxX; px++ {
			fx := float64(px) + 0.5
			w0 := ((x1-fx)*(y2-fy) - (x2-fx)*(y1-fy)) / area
			w1 := ((x2-fx)*(y0-fy) - (x0-fx)*(y2-fy)) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			key := w0*k0 + w1*k1 + w2*k2
			i := py*r.w + px
			if key <= r.depth[i] {
				continue
			}
			r.depth[i] = key
			r.color.SetRGBA(px, py, col)
		}
	}
}
