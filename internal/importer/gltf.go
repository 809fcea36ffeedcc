package importer

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/ivlev/pcb2render/internal/scene"
)

var errBadVersion = errors.New("invalid glTF version: must be 2.x")

// yUpToZUp converts glTF's +Y-up frame into the scene's +Z-up frame.
var yUpToZUp = mgl64.Mat4{
	1, 0, 0, 0,
	0, 0, 1, 0,
	0, -1, 0, 0,
	0, 0, 0, 1,
}

var defaultTint = color.RGBA{R: 204, G: 204, B: 204, A: 255}

// GLTFImporter reads .gltf and .glb files. Node transforms are baked into
// the vertices, so every mesh object sits at the identity under the board
// root.
type GLTFImporter struct{}

func (g *GLTFImporter) Import(ctx context.Context, sc *scene.Scene, path string) ([]*scene.Object, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("parse %s: %w", path, errBadVersion)
	}

	root := boardRoot(path)
	var parts []*scene.Object
	err = walk(doc, func(node *gltf.Node, world mgl64.Mat4) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if node.Mesh == nil {
			return nil
		}
		mesh, err := buildMesh(doc, int(*node.Mesh), yUpToZUp.Mul4(world))
		if err != nil {
			return fmt.Errorf("node %q: %w", node.Name, err)
		}
		if len(mesh.Vertices) == 0 {
			return nil
		}
		name := node.Name
		if name == "" {
			name = fmt.Sprintf("%s.%03d", root.Name, len(parts))
		}
		part := scene.NewObject(name, scene.KindMesh)
		part.Mesh = mesh
		part.Source = path
		part.Parent = root
		parts = append(parts, part)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyModel)
	}

	sc.Add(root)
	sc.Add(parts...)
	return []*scene.Object{root}, nil
}

// walk visits every node reachable from the default scene with its
// accumulated glTF-space transform. Documents without scenes start from
// every node that is nobody's child.
func walk(doc *gltf.Document, visit func(*gltf.Node, mgl64.Mat4) error) error {
	var roots []int
	switch {
	case doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes):
		for _, n := range doc.Scenes[*doc.Scene].Nodes {
			roots = append(roots, int(n))
		}
	case len(doc.Scenes) > 0:
		for _, n := range doc.Scenes[0].Nodes {
			roots = append(roots, int(n))
		}
	default:
		child := make(map[int]bool)
		for _, n := range doc.Nodes {
			for _, c := range n.Children {
				child[int(c)] = true
			}
		}
		for i := range doc.Nodes {
			if !child[i] {
				roots = append(roots, i)
			}
		}
	}

	seen := make(map[int]bool)
	var rec func(int, mgl64.Mat4) error
	rec = func(i int, parent mgl64.Mat4) error {
		if i < 0 || i >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", i)
		}
		if seen[i] {
			return fmt.Errorf("node %d visited twice", i)
		}
		seen[i] = true
		node := doc.Nodes[i]
		world := parent.Mul4(localMatrix(node))
		if err := visit(node, world); err != nil {
			return err
		}
		for _, c := range node.Children {
			if err := rec(int(c), world); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := rec(r, mgl64.Ident4()); err != nil {
			return err
		}
	}
	return nil
}

// localMatrix prefers an explicit matrix and otherwise composes T*R*S.
// Zero-valued fields mean the glTF default.
func localMatrix(n *gltf.Node) mgl64.Mat4 {
	if n.Matrix != [16]float64{} {
		return mgl64.Mat4(n.Matrix)
	}
	t := n.Translation
	m := mgl64.Translate3D(t[0], t[1], t[2])
	if q := n.Rotation; q != [4]float64{} {
		m = m.Mul4(mgl64.Quat{W: q[3], V: mgl64.Vec3{q[0], q[1], q[2]}}.Normalize().Mat4())
	}
	if s := n.Scale; s != [3]float64{} {
		m = m.Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

func buildMesh(doc *gltf.Document, meshIdx int, world mgl64.Mat4) (*scene.Mesh, error) {
	if meshIdx < 0 || meshIdx >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIdx)
	}
	out := &scene.Mesh{}
	for pi, prim := range doc.Meshes[meshIdx].Primitives {
		switch prim.Mode {
		case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
		default:
			continue
		}
		posIdx, ok := prim.Attributes["POSITION"]
		if !ok {
			continue
		}
		if int(posIdx) >= len(doc.Accessors) {
			return nil, fmt.Errorf("primitive %d: accessor %d out of range", pi, posIdx)
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("primitive %d positions: %w", pi, err)
		}

		var indices []int
		if prim.Indices != nil {
			if int(*prim.Indices) >= len(doc.Accessors) {
				return nil, fmt.Errorf("primitive %d: accessor %d out of range", pi, *prim.Indices)
			}
			raw, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, fmt.Errorf("primitive %d indices: %w", pi, err)
			}
			indices = make([]int, len(raw))
			for i, v := range raw {
				indices[i] = int(v)
			}
		} else {
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}

		base := len(out.Vertices)
		for _, p := range positions {
			v := mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
			out.Vertices = append(out.Vertices, scene.TransformPoint(world, v))
		}
		tint := baseColor(doc, prim)
		for _, tri := range triangulate(indices, prim.Mode) {
			for _, v := range tri {
				if v < 0 || v >= len(positions) {
					return nil, fmt.Errorf("primitive %d: index %d out of range", pi, v)
				}
			}
			out.Triangles = append(out.Triangles, [3]int{base + tri[0], base + tri[1], base + tri[2]})
			out.Colors = append(out.Colors, tint)
		}
	}
	return out, nil
}

func triangulate(idx []int, mode gltf.PrimitiveMode) [][3]int {
	var tris [][3]int
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 2; i < len(idx); i++ {
			if i%2 == 0 {
				tris = append(tris, [3]int{idx[i-2], idx[i-1], idx[i]})
			} else {
				tris = append(tris, [3]int{idx[i-1], idx[i-2], idx[i]})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 2; i < len(idx); i++ {
			tris = append(tris, [3]int{idx[0], idx[i-1], idx[i]})
		}
	default:
		for i := 0; i+2 < len(idx); i += 3 {
			tris = append(tris, [3]int{idx[i], idx[i+1], idx[i+2]})
		}
	}
	return tris
}

// baseColor returns the primitive's PBR base color factor, or light grey.
func baseColor(doc *gltf.Document, prim *gltf.Primitive) color.RGBA {
	if prim.Material == nil || int(*prim.Material) >= len(doc.Materials) {
		return defaultTint
	}
	pbr := doc.Materials[*prim.Material].PBRMetallicRoughness
	if pbr == nil || pbr.BaseColorFactor == nil {
		return defaultTint
	}
	c := *pbr.BaseColorFactor
	to8 := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return color.RGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: to8(c[3])}
}
