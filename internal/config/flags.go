package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Parse builds the configuration from command-line arguments (without the
// program name). A -job file is loaded first; flags given explicitly
// override it. Positional arguments are board specs.
func Parse(args []string, usage io.Writer) (*Config, error) {
	cfg := Default()

	if jobPath := findJobFlag(args); jobPath != "" {
		if err := LoadJob(jobPath, cfg); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet("pcb2render", flag.ContinueOnError)
	if usage == nil {
		usage = io.Discard
	}
	fs.SetOutput(usage)

	boards := &boardList{boards: &cfg.Boards}
	var job string
	fs.StringVar(&job, "job", "", "YAML or TOML job file; explicit flags override its values")
	fs.Var(boards, "board", "Board file with optional offsets: path[,z=N][,x=N][,y=N] (repeatable)")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "Output image or video (default: output/<board>_<timestamp>.png|.mp4)")
	fs.Float64Var(&cfg.Scale, "scale", cfg.Scale, "Scene units per board unit (0.001 turns mm into m)")
	fs.IntVar(&cfg.Samples, "samples", cfg.Samples, "Render samples per pixel")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "Frame width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Frame height")
	fs.StringVar(&cfg.Preset, "preset", cfg.Preset, "Frame format preset: 16:9, 9:16, 4:5, 1:1")
	fs.StringVar(&cfg.View, "view", cfg.View, "Camera view: "+strings.Join(views, ", "))
	fs.StringVar(&cfg.Projection, "projection", cfg.Projection, "Projection: ortho, perspective")
	fs.Float64Var(&cfg.Distance, "distance", cfg.Distance, "Camera distance multiplier")
	fs.BoolVar(&cfg.Animate, "animate", cfg.Animate, "Render a 360 degree orbit video")
	fs.IntVar(&cfg.Frames, "frames", cfg.Frames, "Frames per orbit")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "Video frame rate")
	fs.StringVar(&cfg.Background, "background", cfg.Background, "Background: solid, gradient, transparent")
	fs.StringVar(&cfg.BgColor, "bg-color", cfg.BgColor, "Background color (#rrggbb)")
	fs.StringVar(&cfg.BgColor2, "bg-color2", cfg.BgColor2, "Second gradient color (#rrggbb)")
	fs.BoolVar(&cfg.AutoCrop, "auto-crop", cfg.AutoCrop, "Crop the frame to the boards")
	fs.Float64Var(&cfg.CropPadding, "crop-padding", cfg.CropPadding, "Auto-crop margin per side, percent")
	fs.StringVar(&cfg.Renderer, "renderer", cfg.Renderer, "Renderer: host, preview")
	fs.StringVar(&cfg.HostCmd, "host-cmd", cfg.HostCmd, "Host render command line, required with -renderer host; the plan path is appended after --")
	fs.StringVar(&cfg.PlanOut, "plan-out", cfg.PlanOut, "Keep the render plan at this path")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Compose and write the plan without rendering")
	fs.StringVar(&cfg.VideoEncoder, "encoder", cfg.VideoEncoder, "Video encoder (default: best available H.264)")
	fs.IntVar(&cfg.Quality, "quality", cfg.Quality, "Video quality (0: auto, x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit/s)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Frame workers (0: one per CPU core)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write JSON logs to this rotating file")
	fs.BoolVar(&cfg.ShowStats, "stats", cfg.ShowStats, "Print a timing report")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Debug logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, arg := range fs.Args() {
		if err := boards.Set(arg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyPreset(); err != nil {
		return nil, err
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandPaths() error {
	for i := range c.Boards {
		p, err := homedir.Expand(c.Boards[i].Path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		c.Boards[i].Path = p
	}
	for _, p := range []*string{&c.Output, &c.PlanOut, &c.LogFile} {
		if *p == "" {
			continue
		}
		exp, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		*p = exp
	}
	return nil
}

func findJobFlag(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		name := strings.TrimLeft(a, "-")
		if name == a {
			continue
		}
		if v, ok := strings.CutPrefix(name, "job="); ok {
			return v
		}
		if name == "job" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
