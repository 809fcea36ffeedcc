package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/ivlev/pcb2render/internal/frames"
	"github.com/ivlev/pcb2render/internal/plan"
	"github.com/ivlev/pcb2render/internal/scene"
	"github.com/ivlev/pcb2render/internal/video"
)

// HostRenderer hands the scene to an external renderer as a plan document.
// The host is invoked as `<Command> -- <plan.yaml>` and must write its
// frames into the plan's frame directory using plan.FramePattern.
type HostRenderer struct {
	// Command is a shell-style command line; $VARS are expanded.
	Command string
	Encoder video.Encoder
}

func (r *HostRenderer) Render(ctx context.Context, sc *scene.Scene, s Settings) error {
	args, err := hostArgs(r.Command)
	if err != nil {
		return err
	}

	work := s.WorkDir
	if work == "" {
		work, err = os.MkdirTemp("", "pcb2render_")
		if err != nil {
			return err
		}
		defer os.RemoveAll(work)
	}
	frameDir := filepath.Join(work, "frames")
	if err := os.MkdirAll(frameDir, 0755); err != nil {
		return err
	}

	doc := plan.New(sc, s.planOutput(frameDir), s.Background, s.Crop)
	planPath := filepath.Join(work, "plan.yaml")
	if err := plan.Write(doc, planPath); err != nil {
		return err
	}
	if s.PlanPath != "" {
		if err := plan.Write(doc, s.PlanPath); err != nil {
			return err
		}
		slog.Info("Plan saved", "path", s.PlanPath)
	}

	args = append(args, "--", planPath)
	slog.Info("Starting host renderer", "cmd", args[0], "plan", planPath)
	start := time.Now()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v, output: %s", ErrHostFailed, err, outputTail(out.String(), 2000))
	}
	slog.Debug("Host renderer finished", "elapsed", time.Since(start).Round(time.Millisecond), "output", outputTail(out.String(), 500))

	src, err := frames.NewDirSource(frameDir)
	if err != nil {
		if errors.Is(err, frames.ErrNoFrames) {
			return fmt.Errorf("%w: %v", ErrHostFailed, err)
		}
		return err
	}
	if want := doc.Frames.End - doc.Frames.Start + 1; s.Animated && src.Count() != want {
		slog.Warn("Host wrote an unexpected number of frames", "got", src.Count(), "want", want)
	}
	return Finish(ctx, src, s, r.Encoder)
}

func hostArgs(command string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = true
	args, err := p.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse host command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("host command %q is empty", command)
	}
	return args, nil
}

func outputTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
