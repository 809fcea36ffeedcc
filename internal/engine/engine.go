package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/pcb2render/internal/animation"
	"github.com/ivlev/pcb2render/internal/backdrop"
	"github.com/ivlev/pcb2render/internal/camera"
	"github.com/ivlev/pcb2render/internal/config"
	"github.com/ivlev/pcb2render/internal/framing"
	"github.com/ivlev/pcb2render/internal/geometry"
	"github.com/ivlev/pcb2render/internal/importer"
	"github.com/ivlev/pcb2render/internal/lighting"
	"github.com/ivlev/pcb2render/internal/plan"
	"github.com/ivlev/pcb2render/internal/render"
	"github.com/ivlev/pcb2render/internal/scene"
	"github.com/ivlev/pcb2render/internal/system"
)

// ErrNoBoardObjects is returned when an importer succeeds but hands back
// nothing to place.
var ErrNoBoardObjects = errors.New("importer returned no objects")

// RenderProject drives one composition from board files to output artifact.
type RenderProject struct {
	Config   *config.Config
	Importer importer.Importer
	Renderer render.Renderer
	Console  *system.Console
	// Out receives the stats report.
	Out io.Writer
}

// Composition is the state handed to the renderer.
type Composition struct {
	Scene *scene.Scene
	// Boards holds the top-level handles of each board in input order.
	Boards [][]*scene.Object
	Bounds geometry.Bounds
	Crop   *framing.Crop
	Orbit  *animation.Plan
	View   string
}

func NewRenderProject(cfg *config.Config, imp importer.Importer, r render.Renderer) *RenderProject {
	return &RenderProject{
		Config:   cfg,
		Importer: imp,
		Renderer: r,
		Console:  system.NewConsole(os.Stdout),
		Out:      os.Stdout,
	}
}

type timings struct {
	start, composed, rendered time.Time
}

func (p *RenderProject) Run(ctx context.Context) error {
	var t timings
	t.start = time.Now()
	cfg := p.Config

	p.Console.Step("Boards: %d | Output: %s", len(cfg.Boards), cfg.Output)
	p.Console.Step("Resolution: %dx%d | View: %s | Projection: %s", cfg.Width, cfg.Height, cfg.View, cfg.Projection)

	comp, err := p.Compose(ctx)
	if err != nil {
		return err
	}
	t.composed = time.Now()

	settings, err := p.Settings(comp)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		return p.writeDryRun(comp, settings)
	}

	p.Console.Step("Rendering with %s renderer...", cfg.Renderer)
	if err := p.Renderer.Render(ctx, comp.Scene, settings); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	t.rendered = time.Now()

	if cfg.ShowStats {
		p.report(comp, t)
	}
	return nil
}

// Compose imports and places the boards, then runs the planners in
// dependency order on a fresh scene.
func (p *RenderProject) Compose(ctx context.Context) (*Composition, error) {
	cfg := p.Config
	sc := scene.New()
	comp := &Composition{Scene: sc, View: effectiveView(cfg)}

	for i, spec := range cfg.Boards {
		p.Console.Step("Importing board %d: %s", i+1, spec.Path)
		objs, err := p.Importer.Import(ctx, sc, spec.Path)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", spec.Path, err)
		}
		if len(objs) == 0 {
			return nil, fmt.Errorf("import %s: %w", spec.Path, ErrNoBoardObjects)
		}
		place(objs, i, spec, cfg.Scale)
		comp.Boards = append(comp.Boards, objs)
		slog.Debug("Board placed", "board", i+1, "objects", len(objs), "z", spec.ZOffset*cfg.Scale)
	}
	align(comp.Boards, cfg.Boards, cfg.Scale)

	b := geometry.Sample(sc)
	slog.Info("Scene bounds", "center", b.Center, "size", b.Size)

	res, err := camera.Plan(b, camera.Request{
		View:       comp.View,
		Projection: scene.Projection(cfg.Projection),
		Multiplier: cfg.Distance,
	})
	if err != nil {
		return nil, err
	}
	sc.Camera = res.Camera

	// the view rotation invalidates b
	for _, objs := range comp.Boards {
		for _, o := range objs {
			o.Rotation = res.BoardRotation
		}
	}
	b = geometry.Sample(sc)
	camera.Recenter(sc.Camera, b)
	comp.Bounds = b
	slog.Info("Camera planned", "view", comp.View, "projection", sc.Camera.Projection,
		"distance", sc.Camera.Distance, "location", sc.Camera.Location)

	rig := lighting.Plan(b, cfg.Transparent())
	sc.Lights = rig.Lights()

	if cfg.AutoCrop {
		crop, err := framing.Plan(sc.Camera, sc, framing.Request{
			Width:    cfg.Width,
			Height:   cfg.Height,
			Padding:  cfg.CropPadding,
			Animated: cfg.Animate,
		})
		if err != nil {
			return nil, err
		}
		if crop == nil {
			p.Console.Warn("Auto-crop skipped: scene has no mesh geometry")
		} else {
			slog.Info("Auto-crop", "crop", crop.String())
		}
		comp.Crop = crop
	}

	if cfg.Animate {
		var roots []*scene.Object
		for _, objs := range comp.Boards {
			roots = append(roots, objs...)
		}
		orbit, err := animation.Build(sc, roots, b.Center, cfg.Frames)
		if err != nil {
			return nil, err
		}
		comp.Orbit = orbit
		slog.Info("Orbit animation", "frames", cfg.Frames, "fps", cfg.FPS)
	}
	return comp, nil
}

// effectiveView switches the default angle view to top for orbits, which
// read better when the boards spin flat.
func effectiveView(cfg *config.Config) string {
	if cfg.Animate && cfg.View == config.ViewAngle {
		return config.ViewTop
	}
	return cfg.View
}

// place applies the baseline orientation and the board's Z offset to its
// top-level objects. Imported geometry is already in scene units; only the
// offset is converted with scale.
func place(objs []*scene.Object, index int, spec config.BoardSpec, scale float64) {
	for _, o := range objs {
		o.Board = index
		o.Rotation = camera.BaselineRotation
		o.Location = o.Location.Add(mgl64.Vec3{0, 0, spec.ZOffset * scale})
	}
}

// align moves every non-primary board onto the first board's Y and then
// applies its explicit XY shift.
func align(boards [][]*scene.Object, specs []config.BoardSpec, scale float64) {
	if len(boards) < 2 {
		return
	}
	refY := boards[0][0].Location.Y()
	for i := 1; i < len(boards); i++ {
		shift := specs[i].Shift
		for _, o := range boards[i] {
			o.Location[1] = refY
			o.Location[0] += shift.X * scale
			o.Location[1] += shift.Y * scale
		}
	}
}

// Settings converts the configuration and composition into render settings.
func (p *RenderProject) Settings(comp *Composition) (render.Settings, error) {
	cfg := p.Config
	c1, err := config.ParseColor(cfg.BgColor)
	if err != nil {
		return render.Settings{}, err
	}
	c2, err := config.ParseColor(cfg.BgColor2)
	if err != nil && cfg.Background == config.BackgroundGradient {
		return render.Settings{}, err
	}
	bd, err := backdrop.New(cfg.Background, c1, c2)
	if err != nil {
		return render.Settings{}, err
	}

	bg := plan.Background{Mode: cfg.Background}
	if cfg.Background != config.BackgroundTransparent {
		bg.Color = c1.Hex()
	}
	if cfg.Background == config.BackgroundGradient {
		bg.Color2 = c2.Hex()
	}

	return render.Settings{
		Output:      cfg.Output,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Samples:     cfg.Samples,
		FPS:         cfg.FPS,
		Animated:    cfg.Animate,
		Transparent: cfg.Transparent(),
		Background:  bg,
		Backdrop:    bd,
		Crop:        comp.Crop,
		Encoder:     cfg.VideoEncoder,
		Quality:     cfg.Quality,
		Workers:     cfg.Workers,
		PlanPath:    cfg.PlanOut,
	}, nil
}

func (p *RenderProject) writeDryRun(comp *Composition, s render.Settings) error {
	path := s.PlanPath
	if path == "" {
		path = plan.GeneratePath(filepath.Dir(s.Output))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	doc := plan.New(comp.Scene, plan.Output{
		Path:        s.Output,
		Width:       s.Width,
		Height:      s.Height,
		Samples:     s.Samples,
		FPS:         s.FPS,
		Animated:    s.Animated,
		Transparent: s.Transparent,
	}, s.Background, s.Crop)
	if err := plan.Write(doc, path); err != nil {
		return err
	}
	p.Console.Done("Dry run, plan written: %s", path)
	return nil
}

func (p *RenderProject) report(comp *Composition, t timings) {
	total := t.rendered.Sub(t.start)
	frames := comp.Scene.FrameCount()
	if !p.Config.Animate {
		frames = 1
	}
	fps := float64(frames) / total.Seconds()

	fmt.Fprintf(p.Out,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Composition: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Frames: %d\n"+
			"Effective FPS: %.2f\n"+
			"Memory: %s\n"+
			"----------------------------\n",
		p.Config.BuildVersion, total.Seconds(), t.composed.Sub(t.start).Seconds(),
		t.rendered.Sub(t.composed).Seconds(), frames, fps, system.MemoryReport(),
	)
	slog.Info("Render finished",
		"build", p.Config.BuildVersion,
		"boards", len(comp.Boards),
		"frames", frames,
		"total", total.Round(time.Millisecond),
		"render", t.rendered.Sub(t.composed).Round(time.Millisecond),
	)
}
