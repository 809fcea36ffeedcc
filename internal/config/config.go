package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalid marks command input that is rejected before any scene work.
var ErrInvalid = errors.New("invalid configuration")

const (
	ViewAngle       = "angle"
	ViewTop         = "top"
	ViewBottom      = "bottom"
	ViewFront       = "front"
	ViewSide        = "side"
	ViewPerspective = "perspective"

	ProjectionOrtho       = "ortho"
	ProjectionPerspective = "perspective"

	BackgroundSolid       = "solid"
	BackgroundGradient    = "gradient"
	BackgroundTransparent = "transparent"

	RendererHost    = "host"
	RendererPreview = "preview"
)

var (
	views       = []string{ViewAngle, ViewTop, ViewBottom, ViewFront, ViewSide, ViewPerspective}
	projections = []string{ProjectionOrtho, ProjectionPerspective}
	backgrounds = []string{BackgroundSolid, BackgroundGradient, BackgroundTransparent}
	renderers   = []string{RendererHost, RendererPreview}
)

// Presets maps a format name to its frame size.
var Presets = map[string][2]int{
	"16:9": {1920, 1080},
	"9:16": {1080, 1920},
	"4:5":  {1080, 1350},
	"1:1":  {1080, 1080},
}

// Shift is an in-plane offset in board units.
type Shift struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
}

// BoardSpec is one board of the stack. Offsets are in board units (mm)
// and are multiplied by Config.Scale at placement.
type BoardSpec struct {
	Path    string  `yaml:"path" toml:"path"`
	ZOffset float64 `yaml:"z" toml:"z"`
	Shift   Shift   `yaml:"shift" toml:"shift"`
}

type Config struct {
	Boards []BoardSpec `yaml:"boards" toml:"boards"`
	Output string      `yaml:"output" toml:"output"`

	Scale   float64 `yaml:"scale" toml:"scale"`
	Samples int     `yaml:"samples" toml:"samples"`
	Width   int     `yaml:"width" toml:"width"`
	Height  int     `yaml:"height" toml:"height"`
	Preset  string  `yaml:"preset" toml:"preset"`

	View       string  `yaml:"view" toml:"view"`
	Projection string  `yaml:"projection" toml:"projection"`
	Distance   float64 `yaml:"distance" toml:"distance"`

	Animate bool `yaml:"animate" toml:"animate"`
	Frames  int  `yaml:"frames" toml:"frames"`
	FPS     int  `yaml:"fps" toml:"fps"`

	Background string `yaml:"background" toml:"background"`
	BgColor    string `yaml:"bg_color" toml:"bg_color"`
	BgColor2   string `yaml:"bg_color2" toml:"bg_color2"`

	AutoCrop    bool    `yaml:"auto_crop" toml:"auto_crop"`
	CropPadding float64 `yaml:"crop_padding" toml:"crop_padding"`

	Renderer string `yaml:"renderer" toml:"renderer"`
	HostCmd  string `yaml:"host_cmd" toml:"host_cmd"`
	PlanOut  string `yaml:"plan_out" toml:"plan_out"`
	DryRun   bool   `yaml:"dry_run" toml:"dry_run"`

	VideoEncoder string `yaml:"encoder" toml:"encoder"`
	Quality      int    `yaml:"quality" toml:"quality"`
	Workers      int    `yaml:"workers" toml:"workers"`

	LogFile   string `yaml:"log_file" toml:"log_file"`
	ShowStats bool   `yaml:"stats" toml:"stats"`
	Verbose   bool   `yaml:"verbose" toml:"verbose"`

	BuildVersion string `yaml:"-" toml:"-"`
}

// Default returns the configuration used when neither a job file nor a flag
// sets a value.
func Default() *Config {
	return &Config{
		Scale:       0.001,
		Samples:     100,
		Width:       1920,
		Height:      1080,
		View:        ViewAngle,
		Projection:  ProjectionPerspective,
		Distance:    1.0,
		Frames:      120,
		FPS:         30,
		Background:  BackgroundSolid,
		BgColor:     "#66667F",
		BgColor2:    "#d0d4da",
		CropPadding: 5,
		Renderer:    RendererPreview,
	}
}

// ApplyPreset overrides Width and Height with the named preset.
func (c *Config) ApplyPreset() error {
	if c.Preset == "" {
		return nil
	}
	size, ok := Presets[c.Preset]
	if !ok {
		return fmt.Errorf("%w: unknown preset %q", ErrInvalid, c.Preset)
	}
	c.Width, c.Height = size[0], size[1]
	return nil
}

// Transparent reports whether the render has no backdrop.
func (c *Config) Transparent() bool {
	return c.Background == BackgroundTransparent
}

// Validate rejects malformed input and normalizes case of enum values.
// Animated renders get their frame size rounded up to even numbers.
func (c *Config) Validate() error {
	if len(c.Boards) == 0 {
		return fmt.Errorf("%w: no boards given", ErrInvalid)
	}
	for i, b := range c.Boards {
		if strings.TrimSpace(b.Path) == "" {
			return fmt.Errorf("%w: board %d has an empty path", ErrInvalid, i+1)
		}
	}

	c.View = strings.ToLower(c.View)
	c.Projection = strings.ToLower(c.Projection)
	c.Background = strings.ToLower(c.Background)
	c.Renderer = strings.ToLower(c.Renderer)

	if err := oneOf("view", c.View, views); err != nil {
		return err
	}
	if err := oneOf("projection", c.Projection, projections); err != nil {
		return err
	}
	if err := oneOf("background", c.Background, backgrounds); err != nil {
		return err
	}
	if err := oneOf("renderer", c.Renderer, renderers); err != nil {
		return err
	}

	switch {
	case c.Scale <= 0:
		return fmt.Errorf("%w: scale must be positive, got %v", ErrInvalid, c.Scale)
	case c.Samples <= 0:
		return fmt.Errorf("%w: samples must be positive, got %d", ErrInvalid, c.Samples)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalid, c.Width, c.Height)
	case c.Distance <= 0:
		return fmt.Errorf("%w: distance must be positive, got %v", ErrInvalid, c.Distance)
	case c.CropPadding < 0:
		return fmt.Errorf("%w: crop padding must not be negative, got %v", ErrInvalid, c.CropPadding)
	case c.Quality < 0:
		return fmt.Errorf("%w: quality must not be negative, got %d", ErrInvalid, c.Quality)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers)
	}

	if c.Animate {
		if c.Frames <= 0 {
			return fmt.Errorf("%w: frames must be positive, got %d", ErrInvalid, c.Frames)
		}
		if c.FPS <= 0 {
			return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalid, c.FPS)
		}
		c.Width += c.Width % 2
		c.Height += c.Height % 2
	}

	if _, err := ParseColor(c.BgColor); err != nil {
		return err
	}
	if c.Background == BackgroundGradient {
		if _, err := ParseColor(c.BgColor2); err != nil {
			return err
		}
	}
	if c.Renderer == RendererHost && strings.TrimSpace(c.HostCmd) == "" && !c.DryRun {
		return fmt.Errorf("%w: host renderer needs -host-cmd", ErrInvalid)
	}
	return nil
}

// ParseColor accepts "#rrggbb", "rrggbb" or the short "#rgb" form.
func ParseColor(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) == 4 {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%w: bad color %q", ErrInvalid, s)
	}
	return c, nil
}

func oneOf(name, v string, allowed []string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown %s %q (want one of %s)", ErrInvalid, name, v, strings.Join(allowed, ", "))
}
