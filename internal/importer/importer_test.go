package importer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/pcb2render/internal/geometry"
	"github.com/ivlev/pcb2render/internal/scene"
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942
)

// triangleBuffer packs three float32 positions followed by uint16 indices.
func triangleBuffer(pos [3][3]float32) []byte {
	var buf bytes.Buffer
	for _, p := range pos {
		_ = binary.Write(&buf, binary.LittleEndian, p)
	}
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2, 0})
	return buf.Bytes()
}

func triangleDoc(bufferURI string, byteLength int) map[string]any {
	buffer := map[string]any{"byteLength": byteLength}
	if bufferURI != "" {
		buffer["uri"] = bufferURI
	}
	return map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes": []any{
			map[string]any{"name": "pcb", "children": []int{1}, "translation": []float64{0, 0, 0}},
			map[string]any{"mesh": 0, "translation": []float64{10, 0, 0}},
		},
		"meshes": []any{map[string]any{
			"primitives": []any{map[string]any{
				"attributes": map[string]int{"POSITION": 0},
				"indices":    1,
				"material":   0,
			}},
		}},
		"materials": []any{map[string]any{
			"pbrMetallicRoughness": map[string]any{"baseColorFactor": []float64{0, 0.5, 0, 1}},
		}},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 6},
		},
		"buffers": []any{buffer},
	}
}

func writeGLB(t *testing.T, path string, doc map[string]any, bin []byte) {
	t.Helper()
	js, err := json.Marshal(doc)
	require.NoError(t, err)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var out bytes.Buffer
	total := 12 + 8 + len(js) + 8 + len(bin)
	_ = binary.Write(&out, binary.LittleEndian, []uint32{glbMagic, 2, uint32(total)})
	_ = binary.Write(&out, binary.LittleEndian, []uint32{uint32(len(js)), glbChunkJSON})
	out.Write(js)
	_ = binary.Write(&out, binary.LittleEndian, []uint32{uint32(len(bin)), glbChunkBIN})
	out.Write(bin)
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
}

var unitTriangle = [3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 2, 0}}

func TestImportGLB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main-board.glb")
	bin := triangleBuffer(unitTriangle)
	writeGLB(t, path, triangleDoc("", len(bin)), bin)

	sc := scene.New()
	objs, err := NewRegistry().Import(context.Background(), sc, path)
	require.NoError(t, err)
	require.Len(t, objs, 1)

	root := objs[0]
	assert.Equal(t, "main-board", root.Name)
	assert.Equal(t, scene.KindEmpty, root.Kind)
	assert.Equal(t, path, root.Source)

	meshes := sc.Meshes()
	require.Len(t, meshes, 1)
	part := meshes[0]
	assert.Same(t, root, part.Parent)
	require.Len(t, part.Mesh.Triangles, 1)
	require.Len(t, part.Mesh.Colors, 1)
	assert.Equal(t, uint8(128), part.Mesh.Colors[0].G)

	// node translation is baked and glTF +Y becomes scene +Z
	want := []mgl64.Vec3{{10, 0, 0}, {11, 0, 0}, {10, 0, 2}}
	for i, v := range part.Mesh.Vertices {
		assert.True(t, v.ApproxEqualThreshold(want[i], 1e-6), "vertex %d: %v", i, v)
	}

	// moving the root moves the board
	root.Location = mgl64.Vec3{0, 0, 5}
	b := geometry.Sample(sc)
	assert.InDelta(t, 5.0, b.Min.Z(), 1e-9)
	assert.InDelta(t, 7.0, b.Max.Z(), 1e-9)
}

func TestImportGLTFWithDataURI(t *testing.T) {
	dir := t.TempDir()
	bin := triangleBuffer(unitTriangle)
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	js, err := json.Marshal(triangleDoc(uri, len(bin)))
	require.NoError(t, err)
	path := filepath.Join(dir, "flex.gltf")
	require.NoError(t, os.WriteFile(path, js, 0o644))

	sc := scene.New()
	objs, err := NewRegistry().Import(context.Background(), sc, path)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Len(t, sc.Meshes(), 1)
	assert.Len(t, sc.Objects, 2)
}

func TestImportGLTFExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	bin := triangleBuffer(unitTriangle)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flex.bin"), bin, 0o644))
	js, err := json.Marshal(triangleDoc("flex.bin", len(bin)))
	require.NoError(t, err)
	path := filepath.Join(dir, "flex.gltf")
	require.NoError(t, os.WriteFile(path, js, 0o644))

	_, err = NewRegistry().Import(context.Background(), scene.New(), path)
	require.NoError(t, err)
}

func TestImportGLTFErrors(t *testing.T) {
	dir := t.TempDir()

	js, err := json.Marshal(map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes":  []any{map[string]any{"name": "empty"}},
	})
	require.NoError(t, err)
	empty := filepath.Join(dir, "empty.gltf")
	require.NoError(t, os.WriteFile(empty, js, 0o644))

	sc := scene.New()
	_, err = NewRegistry().Import(context.Background(), sc, empty)
	assert.ErrorIs(t, err, ErrEmptyModel)
	assert.Empty(t, sc.Objects, "failed import leaves the scene untouched")

	v1 := filepath.Join(dir, "old.gltf")
	require.NoError(t, os.WriteFile(v1, []byte(`{"asset":{"version":"1.0"}}`), 0o644))
	_, err = NewRegistry().Import(context.Background(), sc, v1)
	assert.Error(t, err)

	notGLB := filepath.Join(dir, "junk.glb")
	require.NoError(t, os.WriteFile(notGLB, bytes.Repeat([]byte{1}, 32), 0o644))
	_, err = NewRegistry().Import(context.Background(), sc, notGLB)
	assert.Error(t, err)

	_, err = NewRegistry().Import(context.Background(), sc, filepath.Join(dir, "missing.glb"))
	assert.Error(t, err)
	assert.Empty(t, sc.Objects)
}

const asciiSTL = `solid board
  facet normal 0 0 1
    outer loop
      vertex 0 0 1.6
      vertex 100 0 1.6
      vertex 100 80 1.6
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 0 0 1.6
      vertex 100 80 1.6
      vertex 0 80 1.6
    endloop
  endfacet
endsolid board
`

func TestImportASCIISTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.stl")
	require.NoError(t, os.WriteFile(path, []byte(asciiSTL), 0o644))

	sc := scene.New()
	objs, err := NewRegistry().Import(context.Background(), sc, path)
	require.NoError(t, err)
	require.Len(t, objs, 1)

	meshes := sc.Meshes()
	require.Len(t, meshes, 1)
	assert.Len(t, meshes[0].Mesh.Triangles, 2)
	assert.Len(t, meshes[0].Mesh.Vertices, 4, "shared corners are merged")

	b := geometry.Sample(sc)
	assert.Equal(t, mgl64.Vec3{100, 80, 0}, b.Size)
	assert.InDelta(t, 1.6, b.Min.Z(), 1e-6)
}

func TestImportBinarySTL(t *testing.T) {
	var buf bytes.Buffer
	header := make([]byte, 80)
	copy(header, "binary board export")
	buf.Write(header)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(1))
	_ = binary.Write(&buf, binary.LittleEndian, [12]float32{
		0, 0, 1,
		0, 0, 0,
		5, 0, 0,
		0, 5, 0,
	})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0))

	path := filepath.Join(t.TempDir(), "part.STL")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	sc := scene.New()
	_, err := NewRegistry().Import(context.Background(), sc, path)
	require.NoError(t, err)
	b := geometry.Sample(sc)
	assert.Equal(t, mgl64.Vec3{5, 5, 0}, b.Size)
}

func TestImportBinarySTLTruncated(t *testing.T) {
	data := make([]byte, 80+4+10)
	binary.LittleEndian.PutUint32(data[80:], 3)
	path := filepath.Join(t.TempDir(), "cut.stl")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	sc := scene.New()
	_, err := NewRegistry().Import(context.Background(), sc, path)
	assert.Error(t, err)
	assert.Empty(t, sc.Objects)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{".glb", ".gltf", ".stl"}, r.Extensions())

	_, err := r.Import(context.Background(), scene.New(), "board.step")
	assert.ErrorIs(t, err, ErrNoImporter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Import(ctx, scene.New(), "board.glb")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTriangulate(t *testing.T) {
	idx := []int{0, 1, 2, 3}
	assert.Equal(t, [][3]int{{0, 1, 2}}, triangulate(idx, gltf.PrimitiveTriangles))
	assert.Equal(t, [][3]int{{0, 1, 2}, {2, 1, 3}}, triangulate(idx, gltf.PrimitiveTriangleStrip))
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}}, triangulate(idx, gltf.PrimitiveTriangleFan))
}

func TestNodeLocalTRS(t *testing.T) {
	half := math.Sqrt2 / 2
	n := &gltf.Node{
		Translation: [3]float64{1, 2, 3},
		Rotation:    [4]float64{0, 0, half, half}, // 90 degrees about +Z
		Scale:       [3]float64{2, 2, 2},
	}
	p := scene.TransformPoint(localMatrix(n), mgl64.Vec3{1, 0, 0})
	assert.True(t, p.ApproxEqualThreshold(mgl64.Vec3{1, 4, 3}, 1e-9), "%v", p)

	// an explicit matrix wins over TRS
	n.Matrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 0, 0, 1}
	p = scene.TransformPoint(localMatrix(n), mgl64.Vec3{1, 0, 0})
	assert.True(t, p.ApproxEqualThreshold(mgl64.Vec3{6, 0, 0}, 1e-9), "%v", p)

	p = scene.TransformPoint(localMatrix(&gltf.Node{}), mgl64.Vec3{1, 2, 3})
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, p)
}
