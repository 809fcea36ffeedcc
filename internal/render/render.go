// Package render turns a composed scene into the output artifact, either
// through an external host renderer or the built-in preview rasterizer.
package render

import (
	"context"
	"errors"

	"github.com/ivlev/pcb2render/internal/backdrop"
	"github.com/ivlev/pcb2render/internal/framing"
	"github.com/ivlev/pcb2render/internal/plan"
	"github.com/ivlev/pcb2render/internal/scene"
	"github.com/ivlev/pcb2render/internal/video"
)

// ErrHostFailed is returned when the host command exits unsuccessfully or
// leaves no frames behind.
var ErrHostFailed = errors.New("host renderer failed")

// Settings holds everything a renderer needs besides the scene.
type Settings struct {
	Output      string
	Width       int
	Height      int
	Samples     int
	FPS         int
	Animated    bool
	Transparent bool

	Background plan.Background
	// Backdrop is painted under every frame during finishing.
	Backdrop backdrop.Backdrop
	// Crop is nil when auto-crop is off or found nothing to frame.
	Crop *framing.Crop

	Encoder string
	Quality int
	Workers int

	// WorkDir receives the plan and intermediate frames. A temporary
	// directory is used when empty.
	WorkDir string
	// PlanPath, if set, receives a copy of the plan document.
	PlanPath string
}

type Renderer interface {
	Render(ctx context.Context, sc *scene.Scene, s Settings) error
}

func (s Settings) videoParams() video.Params {
	p := video.Params{
		Width:    s.Width,
		Height:   s.Height,
		FPS:      s.FPS,
		Encoder:  s.Encoder,
		Quality:  s.Quality,
		Alpha:    s.Transparent && video.SupportsAlpha(s.Output),
		Backdrop: s.Backdrop,
		Workers:  s.Workers,
	}
	if s.Crop != nil {
		p.Crop = s.Crop.Pixels(s.Width, s.Height)
	}
	return p
}

func (s Settings) planOutput(frameDir string) plan.Output {
	return plan.Output{
		Path:        s.Output,
		Width:       s.Width,
		Height:      s.Height,
		Samples:     s.Samples,
		FPS:         s.FPS,
		Animated:    s.Animated,
		Transparent: s.Transparent,
		FrameDir:    frameDir,
	}
}
