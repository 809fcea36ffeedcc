// Package frames provides ordered access to rendered frames, either from a
// directory written by the host or produced on demand.
package frames

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/tiff"
)

// ErrNoFrames is returned when a frame directory holds no images.
var ErrNoFrames = errors.New("no frames found")

// Source yields frames by zero-based index. Frame may be called
// concurrently for different indices.
type Source interface {
	Count() int
	Frame(index int) (image.Image, error)
}

// DirSource reads image files from a directory in lexical order.
type DirSource struct {
	paths []string
}

// NewDirSource lists dir and keeps the files whose content sniffs as PNG,
// JPEG or TIFF, regardless of extension.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p := filepath.Join(dir, entry.Name())
		ok, err := isFrameImage(p)
		if err != nil {
			return nil, err
		}
		if ok {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}
	sort.Strings(paths)

	return &DirSource{paths: paths}, nil
}

func (s *DirSource) Count() int {
	return len(s.paths)
}

// Paths returns the frame files in order.
func (s *DirSource) Paths() []string {
	return s.paths
}

func (s *DirSource) Frame(index int) (image.Image, error) {
	if index < 0 || index >= len(s.paths) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", index, len(s.paths))
	}
	f, err := os.Open(s.paths[index])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.paths[index], err)
	}
	return img, nil
}

func isFrameImage(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	kind, err := filetype.Image(head[:n])
	if err != nil {
		return false, nil
	}
	switch kind.Extension {
	case "png", "jpg", "tif":
		return true, nil
	}
	return false, nil
}

// FuncSource produces frames lazily through Render.
type FuncSource struct {
	N      int
	Render func(index int) (image.Image, error)
}

func (s *FuncSource) Count() int {
	return s.N
}

func (s *FuncSource) Frame(index int) (image.Image, error) {
	if index < 0 || index >= s.N {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", index, s.N)
	}
	return s.Render(index)
}
