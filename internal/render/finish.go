package render

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/pcb2render/internal/backdrop"
	"github.com/ivlev/pcb2render/internal/frames"
	"github.com/ivlev/pcb2render/internal/video"
)

// Finish writes the output artifact from rendered frames: a cropped image
// for stills, an encoded video for animations.
func Finish(ctx context.Context, src frames.Source, s Settings, enc video.Encoder) error {
	if src.Count() == 0 {
		return frames.ErrNoFrames
	}
	if s.Animated {
		if enc == nil {
			enc = &video.FFmpegEncoder{}
		}
		slog.Info("Encoding video", "frames", src.Count(), "output", s.Output, "encoder", s.Encoder)
		return enc.Encode(ctx, src, s.Output, s.videoParams())
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := src.Frame(0)
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}
	return WriteStill(img, s)
}

// WriteStill composites img over the backdrop, applies the crop and writes
// the image in the format named by the output extension.
func WriteStill(img image.Image, s Settings) error {
	ext := strings.ToLower(filepath.Ext(s.Output))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("unsupported still format %q", ext)
	}

	frame := clone.AsRGBA(img)
	b := s.Backdrop
	if ext != ".png" && (b == nil || !b.Opaque()) {
		slog.Warn("JPEG has no alpha channel, flattening onto white", "output", s.Output)
		b = &backdrop.Solid{Color: colorful.Color{R: 1, G: 1, B: 1}}
	}
	if b != nil {
		composed := image.NewRGBA(image.Rect(0, 0, frame.Rect.Dx(), frame.Rect.Dy()))
		backdrop.Composite(composed, frame, b)
		frame = composed
	}

	if s.Crop != nil {
		rect := s.Crop.Pixels(frame.Rect.Dx(), frame.Rect.Dy()).Add(frame.Rect.Min)
		if !rect.In(frame.Rect) {
			return fmt.Errorf("crop %v outside frame %v", rect, frame.Rect)
		}
		frame = transform.Crop(frame, rect)
		slog.Debug("Cropped still", "rect", rect)
	}

	if err := os.MkdirAll(filepath.Dir(s.Output), 0755); err != nil {
		return err
	}
	f, err := os.Create(s.Output)
	if err != nil {
		return err
	}

	if ext == ".png" {
		err = png.Encode(f, frame)
	} else {
		err = jpeg.Encode(f, frame, &jpeg.Options{Quality: 95})
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(s.Output)
		return fmt.Errorf("write %s: %w", s.Output, err)
	}
	return nil
}
