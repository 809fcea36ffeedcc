package plan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/pcb2render/internal/framing"
	"github.com/ivlev/pcb2render/internal/scene"
)

func composedScene() *scene.Scene {
	sc := scene.New()

	board := scene.NewObject("main", scene.KindEmpty)
	board.Source = "/boards/main.glb"
	board.Board = 0
	board.Rotation = mgl64.Vec3{0, 0, 3.14159}
	part := scene.NewObject("main.000", scene.KindMesh)
	part.Mesh = &scene.Mesh{Vertices: []mgl64.Vec3{{0, 0, 0}, {1, 1, 0}}}
	part.Parent = board

	pivot := scene.NewObject("OrbitPivot", scene.KindEmpty)
	pivot.Location = mgl64.Vec3{0.5, 0.5, 0}
	pivot.SetKeyframe(1, mgl64.Vec3{})
	pivot.SetKeyframe(2, mgl64.Vec3{0, 0, 3.14159})
	sc.Add(board, part, pivot)
	board.SetParent(pivot)

	sc.Camera = &scene.Camera{View: "top", Projection: scene.Orthographic, OrthoScale: 3, Location: mgl64.Vec3{1, -1, 1.4}}
	sc.Lights = []*scene.Light{{Name: "Key", Energy: 500, Size: 0.5}}
	sc.FrameEnd = 2
	return sc
}

func TestNewSkipsBoardChildren(t *testing.T) {
	doc := New(composedScene(), Output{Path: "out.mp4", Animated: true}, Background{Mode: "solid", Color: "#ffffff"}, nil)

	if doc.Version != Version {
		t.Errorf("Expected version %s, got %s", Version, doc.Version)
	}
	if len(doc.Objects) != 2 {
		t.Fatalf("Expected 2 objects (board root and pivot), got %d", len(doc.Objects))
	}
	if doc.Output.FramePattern != FramePattern {
		t.Errorf("Expected default frame pattern, got %q", doc.Output.FramePattern)
	}

	boards := doc.Boards()
	if len(boards) != 1 || boards[0].Source != "/boards/main.glb" {
		t.Fatalf("Unexpected boards: %+v", boards)
	}
	if boards[0].Parent != "OrbitPivot" {
		t.Errorf("Expected board parented to pivot, got %q", boards[0].Parent)
	}
	if boards[0].ParentInverse == nil {
		t.Errorf("Expected parent inverse for board under a moved pivot")
	}
	if doc.Crop != nil {
		t.Errorf("Expected no crop")
	}
	if doc.Frames.End != 2 {
		t.Errorf("Expected frame end 2, got %d", doc.Frames.End)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	crop := &framing.Crop{MinX: 0.1, MaxX: 0.9, MinY: 0.2, MaxY: 0.8, Width: 1536, Height: 648}
	doc := New(composedScene(), Output{Path: "out.png", Width: 1920, Height: 1080, Samples: 64}, Background{Mode: "gradient", Color: "#fff", Color2: "#000"}, crop)

	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := Write(doc, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got.Version != doc.Version {
		t.Errorf("Version mismatch: %s vs %s", got.Version, doc.Version)
	}
	if len(got.Objects) != len(doc.Objects) {
		t.Fatalf("Objects mismatch: %d vs %d", len(got.Objects), len(doc.Objects))
	}
	for i := range doc.Objects {
		if got.Objects[i].Name != doc.Objects[i].Name || got.Objects[i].Source != doc.Objects[i].Source {
			t.Errorf("Object %d mismatch: %+v vs %+v", i, got.Objects[i], doc.Objects[i])
		}
		if !got.Objects[i].Rotation.ApproxEqual(doc.Objects[i].Rotation) {
			t.Errorf("Object %d rotation mismatch", i)
		}
	}
	if got.Crop == nil || got.Crop.Width != 1536 {
		t.Errorf("Crop lost: %+v", got.Crop)
	}
	if len(got.Objects[1].Keyframes) != 2 {
		t.Errorf("Expected 2 pivot keyframes, got %d", len(got.Objects[1].Keyframes))
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "location: [") {
		t.Errorf("Expected flow-style vectors in:\n%s", raw)
	}
}

func TestReadRejectsIncompatibleVersion(t *testing.T) {
	dir := t.TempDir()
	for _, v := range []string{"2.0.0", "0.9", "banana"} {
		path := filepath.Join(dir, "plan.yaml")
		if err := os.WriteFile(path, []byte("version: \""+v+"\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Read(path); !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("version %s: expected ErrUnsupportedVersion, got %v", v, err)
		}
	}

	if err := CheckVersion("1.0"); err != nil {
		t.Errorf("1.0 should be accepted: %v", err)
	}
}

func TestGeneratePath(t *testing.T) {
	path := GeneratePath("work")
	if !strings.HasPrefix(path, filepath.Join("work", "plan_")) || !strings.HasSuffix(path, ".yaml") {
		t.Errorf("Unexpected plan path: %s", path)
	}
}
