// Package importer turns board model files into scene objects. Every
// successful import returns the top-level objects that belong to the board;
// callers place the board by transforming those handles only.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivlev/pcb2render/internal/scene"
)

var (
	// ErrNoImporter is returned for files with an unregistered extension.
	ErrNoImporter = errors.New("no importer for file type")
	// ErrEmptyModel is returned when a file decodes but holds no geometry.
	ErrEmptyModel = errors.New("model has no geometry")
)

// Importer loads one board file into sc and returns the board's top-level
// objects. Child objects are added to sc as well but are not returned.
type Importer interface {
	Import(ctx context.Context, sc *scene.Scene, path string) ([]*scene.Object, error)
}

// Registry selects an Importer by file extension.
type Registry struct {
	byExt map[string]Importer
}

// NewRegistry returns a registry with the glTF and STL readers installed.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Importer)}
	gltf := &GLTFImporter{}
	r.Register(".glb", gltf)
	r.Register(".gltf", gltf)
	r.Register(".stl", &STLImporter{})
	return r
}

// Register binds ext (with or without the leading dot) to imp.
func (r *Registry) Register(ext string, imp Importer) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.byExt[ext] = imp
}

// Extensions lists registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for e := range r.byExt {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) Import(ctx context.Context, sc *scene.Scene, path string) ([]*scene.Object, error) {
	ext := strings.ToLower(filepath.Ext(path))
	imp, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrNoImporter, path, strings.Join(r.Extensions(), ", "))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return imp.Import(ctx, sc, path)
}

// boardRoot creates the transform-only parent that represents one board file.
func boardRoot(path string) *scene.Object {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	root := scene.NewObject(stem, scene.KindEmpty)
	root.Source = path
	return root
}
