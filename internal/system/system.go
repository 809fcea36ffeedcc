package system

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open file limit; long orbits keep many frame
// files and pipes open at once.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		slog.Warn("Could not read open file limit", "error", err)
		return
	}

	want := uint64(2048)
	if want > rLimit.Max {
		want = rLimit.Max
	}
	if rLimit.Cur >= want {
		return
	}
	rLimit.Cur = want

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		slog.Warn("Could not raise open file limit", "error", err)
		return
	}
	slog.Debug("Raised open file limit", "limit", rLimit.Cur)
}

// h264Preference lists hardware encoders before the software fallback.
var h264Preference = []string{"h264_videotoolbox", "h264_nvenc"}

// GetBestH264Encoder asks ffmpeg for its encoders once and returns the first
// hardware H.264 encoder found, or libx264.
func GetBestH264Encoder(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, name := range h264Preference {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}

// DefaultQuality returns the quality value that suits encoder when the user
// did not set one.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

// CheckFFmpeg verifies that ffmpeg can be started.
func CheckFFmpeg(ctx context.Context) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	if err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg does not start: %w", err)
	}
	return nil
}

// Workers returns the default worker count: one per physical core, or the
// logical count when gopsutil cannot tell.
func Workers() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	return n
}

// MemoryReport describes host memory for the stats report.
func MemoryReport() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return "unavailable"
	}
	return fmt.Sprintf("%.1f GiB total, %.1f GiB available (%.0f%% used)",
		float64(vm.Total)/(1<<30), float64(vm.Available)/(1<<30), vm.UsedPercent)
}
