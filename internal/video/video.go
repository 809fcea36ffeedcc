// Package video encodes ordered frames into a video file through ffmpeg.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/pcb2render/internal/backdrop"
	"github.com/ivlev/pcb2render/internal/frames"
	"github.com/ivlev/pcb2render/internal/system"
)

type Params struct {
	// Width and Height are the size every input frame must have.
	Width, Height int
	FPS           int
	// Crop is applied by ffmpeg; the zero rectangle keeps the full frame.
	Crop    image.Rectangle
	Encoder string
	Quality int
	// Alpha keeps transparency when the container supports it.
	Alpha bool
	// Backdrop, if set, is painted under every frame before encoding.
	Backdrop backdrop.Backdrop
	// Workers bounds how many frames are decoded ahead of the writer.
	Workers int
}

type Encoder interface {
	Encode(ctx context.Context, src frames.Source, out string, p Params) error
}

type FFmpegEncoder struct {
	// Binary defaults to "ffmpeg".
	Binary string
}

// SupportsAlpha reports whether the container of path can carry an alpha
// channel with the codecs used here.
func SupportsAlpha(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mov", ".webm":
		return true
	}
	return false
}

func (e *FFmpegEncoder) Encode(ctx context.Context, src frames.Source, out string, p Params) error {
	n := src.Count()
	if n == 0 {
		return fmt.Errorf("no frames to encode")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", p.Width, p.Height)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}

	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	args := buildFFmpegArgs(p, out)
	slog.Debug("Starting ffmpeg", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	// On a frame error stdin is closed early and ffmpeg finishes on its own;
	// the partial file is removed below.
	pipeErr := e.stream(ctx, stdin, src, p)
	stdin.Close()
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		os.Remove(out)
		return ctx.Err()
	case waitErr != nil:
		os.Remove(out)
		return fmt.Errorf("ffmpeg error: %v, output: %s", waitErr, tail(stderr.String(), 2000))
	case pipeErr != nil:
		os.Remove(out)
		return pipeErr
	}
	return nil
}

// stream prepares frames on up to p.Workers goroutines and writes them to w
// strictly in index order.
func (e *FFmpegEncoder) stream(ctx context.Context, w io.Writer, src frames.Source, p Params) error {
	n := src.Count()
	lookahead := p.Workers
	if lookahead < 1 {
		lookahead = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	slots := make([]chan *image.RGBA, n)
	for i := range slots {
		slots[i] = make(chan *image.RGBA, 1)
	}
	sem := make(chan struct{}, lookahead)

	g.Go(func() error {
		for i := 0; i < n; i++ {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			i := i
			g.Go(func() error {
				img, err := src.Frame(i)
				if err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
				rgba, err := prepareFrame(img, p)
				if err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
				slots[i] <- rgba
				return nil
			})
		}
		return nil
	})

	g.Go(func() error {
		for i := 0; i < n; i++ {
			var img *image.RGBA
			select {
			case img = <-slots[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			err := writeRawRGBA(w, img)
			system.PutImage(img)
			<-sem
			if err != nil {
				return fmt.Errorf("write raw error: %w", err)
			}
		}
		return nil
	})

	return g.Wait()
}

func buildFFmpegArgs(p Params, out string) []string {
	fps := p.FPS
	if fps <= 0 {
		fps = 30
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
	}
	if !p.Crop.Empty() {
		args = append(args, "-vf", fmt.Sprintf("crop=%d:%d:%d:%d", p.Crop.Dx(), p.Crop.Dy(), p.Crop.Min.X, p.Crop.Min.Y))
	}

	ext := strings.ToLower(filepath.Ext(out))
	switch {
	case p.Alpha && ext == ".mov":
		args = append(args, "-c:v", "prores_ks", "-profile:v", "4444", "-pix_fmt", "yuva444p10le")
	case p.Alpha && ext == ".webm":
		args = append(args, "-c:v", "libvpx-vp9", "-pix_fmt", "yuva420p", "-b:v", "0", "-crf", fmt.Sprintf("%d", qualityOr(p.Quality, 30)))
	default:
		enc := p.Encoder
		if enc == "" {
			enc = "libx264"
		}
		args = append(args, "-c:v", enc, "-pix_fmt", "yuv420p")
		switch enc {
		case "h264_videotoolbox":
			args = append(args, "-b:v", fmt.Sprintf("%dk", qualityOr(p.Quality, 75)*100))
		case "h264_nvenc":
			args = append(args, "-cq", fmt.Sprintf("%d", qualityOr(p.Quality, 28)))
		default:
			args = append(args, "-crf", fmt.Sprintf("%d", qualityOr(p.Quality, 23)), "-preset", "medium")
		}
		if ext == ".mp4" || ext == ".mov" {
			args = append(args, "-movflags", "+faststart")
		}
	}

	return append(args, out)
}

func qualityOr(q, def int) int {
	if q <= 0 {
		return def
	}
	return q
}

// prepareFrame returns a pooled, tightly packed RGBA copy of img with the
// backdrop underneath.
func prepareFrame(img image.Image, p Params) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Dx() != p.Width || b.Dy() != p.Height {
		return nil, fmt.Errorf("frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), p.Width, p.Height)
	}
	dst := system.GetImage(image.Rect(0, 0, p.Width, p.Height))
	if p.Backdrop != nil {
		backdrop.Composite(dst, img, p.Backdrop)
		return dst, nil
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 {
		_, err := w.Write(img.Pix[:b.Dy()*img.Stride])
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		if _, err := w.Write(img.Pix[off : off+b.Dx()*4]); err != nil {
			return err
		}
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
