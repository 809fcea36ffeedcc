package importer

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hschendel/stl"

	"github.com/ivlev/pcb2render/internal/scene"
)

// STLImporter reads ASCII and binary STL. STL carries no up axis; board
// exports are Z-up already, so coordinates are taken as-is.
type STLImporter struct{}

func (s *STLImporter) Import(ctx context.Context, sc *scene.Scene, path string) ([]*scene.Object, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(solid.Triangles) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyModel)
	}

	root := boardRoot(path)
	part := scene.NewObject(root.Name+".mesh", scene.KindMesh)
	part.Mesh = indexTriangles(solid.Triangles)
	part.Source = path
	part.Parent = root

	sc.Add(root, part)
	return []*scene.Object{root}, nil
}

// indexTriangles merges identical corner positions into a shared vertex list.
func indexTriangles(tris []stl.Triangle) *scene.Mesh {
	m := &scene.Mesh{Triangles: make([][3]int, len(tris))}
	index := make(map[stl.Vec3]int, len(tris))
	for i, t := range tris {
		for v, p := range t.Vertices {
			id, ok := index[p]
			if !ok {
				id = len(m.Vertices)
				index[p] = id
				m.Vertices = append(m.Vertices, mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
			}
			m.Triangles[i][v] = id
		}
	}
	return m
}
