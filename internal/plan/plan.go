// Package plan describes a composed scene as a versioned YAML document for
// the host renderer.
package plan

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/pcb2render/internal/framing"
	"github.com/ivlev/pcb2render/internal/scene"
)

// Version is written into every document.
const Version = "1.1.0"

// Compatible is the range of document versions Read accepts.
const Compatible = "^1.0"

// ErrUnsupportedVersion is returned by Read for documents outside Compatible.
var ErrUnsupportedVersion = errors.New("unsupported plan version")

// FramePattern names the frames the host writes into Output.FrameDir.
const FramePattern = "frame_%04d.png"

// Document is the full render plan.
type Document struct {
	Version    string     `yaml:"version"`
	Created    string     `yaml:"created"`
	Output     Output     `yaml:"output"`
	Background Background `yaml:"background"`
	Camera     Camera     `yaml:"camera"`
	Lights     []Light    `yaml:"lights"`
	Crop       *Crop      `yaml:"crop,omitempty"`
	Objects    []Object   `yaml:"objects"`
	Frames     FrameRange `yaml:"frames"`
}

// Output describes the artifact and the intermediate frames.
type Output struct {
	Path         string `yaml:"path"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	Samples      int    `yaml:"samples"`
	FPS          int    `yaml:"fps,omitempty"`
	Animated     bool   `yaml:"animated"`
	Transparent  bool   `yaml:"transparent"`
	FrameDir     string `yaml:"frame_dir"`
	FramePattern string `yaml:"frame_pattern"`
}

type Background struct {
	Mode   string `yaml:"mode"`
	Color  string `yaml:"color,omitempty"`
	Color2 string `yaml:"color2,omitempty"`
}

type Camera struct {
	View       string     `yaml:"view"`
	Projection string     `yaml:"projection"`
	Location   mgl64.Vec3 `yaml:"location,flow"`
	Rotation   mgl64.Vec3 `yaml:"rotation,flow"`
	OrthoScale float64    `yaml:"ortho_scale,omitempty"`
	FOV        float64    `yaml:"fov,omitempty"`
}

type Light struct {
	Name     string     `yaml:"name"`
	Location mgl64.Vec3 `yaml:"location,flow"`
	Rotation mgl64.Vec3 `yaml:"rotation,flow"`
	Size     float64    `yaml:"size"`
	Energy   float64    `yaml:"energy"`
}

// Crop is the normalized border with Y growing upward.
type Crop struct {
	MinX   float64 `yaml:"min_x"`
	MaxX   float64 `yaml:"max_x"`
	MinY   float64 `yaml:"min_y"`
	MaxY   float64 `yaml:"max_y"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
}

// Object is one placed node. Objects with a Source stand for a whole board
// file; the host imports the file under that node.
type Object struct {
	Name          string      `yaml:"name"`
	Kind          string      `yaml:"kind"`
	Source        string      `yaml:"source,omitempty"`
	Parent        string      `yaml:"parent,omitempty"`
	Location      mgl64.Vec3  `yaml:"location,flow"`
	Rotation      mgl64.Vec3  `yaml:"rotation,flow"`
	Scale         mgl64.Vec3  `yaml:"scale,flow"`
	ParentInverse *mgl64.Mat4 `yaml:"parent_inverse,omitempty,flow"`
	Keyframes     []Keyframe  `yaml:"keyframes,omitempty"`
}

type Keyframe struct {
	Frame    int        `yaml:"frame"`
	Rotation mgl64.Vec3 `yaml:"rotation,flow"`
}

type FrameRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// New captures sc as a document. Mesh children of an imported board are
// left out because the host recreates them from the board's source file.
func New(sc *scene.Scene, out Output, bg Background, crop *framing.Crop) *Document {
	if out.FramePattern == "" {
		out.FramePattern = FramePattern
	}
	doc := &Document{
		Version:    Version,
		Created:    time.Now().Format(time.RFC3339),
		Output:     out,
		Background: bg,
		Frames:     FrameRange{Start: sc.FrameStart, End: sc.FrameEnd},
	}

	if cam := sc.Camera; cam != nil {
		doc.Camera = Camera{
			View:       cam.View,
			Projection: string(cam.Projection),
			Location:   cam.Location,
			Rotation:   cam.Rotation,
			OrthoScale: cam.OrthoScale,
			FOV:        cam.FOV,
		}
	}
	for _, l := range sc.Lights {
		doc.Lights = append(doc.Lights, Light{
			Name:     l.Name,
			Location: l.Location,
			Rotation: l.Rotation,
			Size:     l.Size,
			Energy:   l.Energy,
		})
	}
	if crop != nil {
		doc.Crop = &Crop{
			MinX: crop.MinX, MaxX: crop.MaxX,
			MinY: crop.MinY, MaxY: crop.MaxY,
			Width: crop.Width, Height: crop.Height,
		}
	}

	for _, o := range sc.Objects {
		if o.Parent != nil && o.Parent.Source != "" {
			continue
		}
		obj := Object{
			Name:     o.Name,
			Kind:     kindName(o.Kind),
			Source:   o.Source,
			Location: o.Location,
			Rotation: o.Rotation,
			Scale:    o.Scale,
		}
		if o.Parent != nil {
			obj.Parent = o.Parent.Name
			if !o.ParentInverse.ApproxEqual(mgl64.Ident4()) {
				inv := o.ParentInverse
				obj.ParentInverse = &inv
			}
		}
		for _, k := range o.Keyframes {
			obj.Keyframes = append(obj.Keyframes, Keyframe{Frame: k.Frame, Rotation: k.Rotation})
		}
		doc.Objects = append(doc.Objects, obj)
	}
	return doc
}

// Boards returns the objects that reference a board file, in scene order.
func (d *Document) Boards() []Object {
	var out []Object
	for _, o := range d.Objects {
		if o.Source != "" {
			out = append(out, o)
		}
	}
	return out
}

// Write writes the document to path as YAML.
func Write(doc *Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Read loads a document and checks its version against Compatible.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if err := CheckVersion(doc.Version); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CheckVersion reports whether v falls inside Compatible.
func CheckVersion(v string) error {
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, v, err)
	}
	c, err := semver.NewConstraint(Compatible)
	if err != nil {
		return err
	}
	if !c.Check(ver) {
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, v, Compatible)
	}
	return nil
}

func kindName(k scene.ObjectKind) string {
	if k == scene.KindMesh {
		return "mesh"
	}
	return "empty"
}
