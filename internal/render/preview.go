package render

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/ivlev/pcb2render/internal/frames"
	"github.com/ivlev/pcb2render/internal/scene"
	"github.com/ivlev/pcb2render/internal/video"
)

// PreviewRenderer rasterizes the scene on the CPU. It ignores Samples and
// produces transparent frames that finishing composites onto the backdrop.
type PreviewRenderer struct {
	Encoder video.Encoder
}

func (r *PreviewRenderer) Render(ctx context.Context, sc *scene.Scene, s Settings) error {
	if sc.Camera == nil {
		return fmt.Errorf("preview: scene has no camera")
	}
	if len(sc.Meshes()) == 0 {
		slog.Warn("Preview: scene has no mesh geometry, output will show only the background")
	}

	n := 1
	if s.Animated {
		n = sc.FrameCount()
	}
	src := &frames.FuncSource{N: n, Render: func(i int) (image.Image, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return renderFrame(sc, float64(sc.FrameStart+i), s.Width, s.Height), nil
	}}

	slog.Info("Preview rendering", "frames", n, "width", s.Width, "height", s.Height)
	return Finish(ctx, src, s, r.Encoder)
}
