package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/pcb2render/internal/config"
	"github.com/ivlev/pcb2render/internal/engine"
	"github.com/ivlev/pcb2render/internal/importer"
	"github.com/ivlev/pcb2render/internal/render"
	"github.com/ivlev/pcb2render/internal/system"
	"github.com/ivlev/pcb2render/internal/video"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	console := system.NewConsole(os.Stdout)

	cfg, err := config.Parse(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		console.Fail("%v", err)
		return 2
	}
	cfg.BuildVersion = version

	cleanup, err := system.InitLogger(system.LogOptions{
		Console: os.Stderr,
		Verbose: cfg.Verbose,
		File:    cfg.LogFile,
	})
	if err != nil {
		console.Fail("Log setup failed: %v", err)
		return 1
	}
	defer cleanup()

	system.InitResourceLimits()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Output == "" {
		cfg.Output = defaultOutput(cfg, time.Now())
		console.Step("Output: %s", cfg.Output)
	}
	if cfg.Workers == 0 {
		cfg.Workers = system.Workers()
	}

	if cfg.Animate && !cfg.DryRun {
		if err := system.CheckFFmpeg(ctx); err != nil {
			console.Fail("%v", err)
			return 1
		}
		if cfg.VideoEncoder == "" {
			cfg.VideoEncoder = system.GetBestH264Encoder(ctx)
			if cfg.VideoEncoder != "libx264" {
				console.Step("Hardware acceleration detected: %s", cfg.VideoEncoder)
			}
		}
		if cfg.Quality == 0 {
			cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
		}
	}

	enc := &video.FFmpegEncoder{}
	var r render.Renderer
	switch cfg.Renderer {
	case config.RendererPreview:
		r = &render.PreviewRenderer{Encoder: enc}
	default:
		r = &render.HostRenderer{Command: cfg.HostCmd, Encoder: enc}
	}

	project := engine.NewRenderProject(cfg, importer.NewRegistry(), r)
	project.Console = console
	if err := project.Run(ctx); err != nil {
		console.Fail("Render failed: %v", err)
		return 1
	}

	if !cfg.DryRun {
		console.Done("Success! Result: %s", cfg.Output)
	}
	return 0
}

// defaultOutput names the artifact after the first board and the time.
func defaultOutput(cfg *config.Config, now time.Time) string {
	base := filepath.Base(cfg.Boards[0].Path)
	name := strings.ReplaceAll(strings.TrimSuffix(base, filepath.Ext(base)), " ", "_")
	ext := ".png"
	if cfg.Animate {
		ext = ".mp4"
	}
	return filepath.Join("output", fmt.Sprintf("%s_%s%s", name, now.Format("2006-01-02_15-04-05"), ext))
}
