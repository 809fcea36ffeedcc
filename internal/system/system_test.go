package system

import (
	"bytes"
	"encoding/json"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickEncoder(t *testing.T) {
	tests := []struct {
		listing string
		want    string
	}{
		{" V....D h264_videotoolbox VideoToolbox H.264 Encoder\n V....D libx264", "h264_videotoolbox"},
		{" V....D libx264 libx264 H.264\n V....D h264_nvenc NVIDIA NVENC", "h264_nvenc"},
		{" V....D libx264 libx264 H.264", "libx264"},
		{"", "libx264"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pickEncoder(tt.listing))
	}
}

func TestDefaultQuality(t *testing.T) {
	assert.Equal(t, 75, DefaultQuality("h264_videotoolbox"))
	assert.Equal(t, 28, DefaultQuality("h264_nvenc"))
	assert.Equal(t, 23, DefaultQuality("libx264"))
	assert.Equal(t, 23, DefaultQuality("libvpx-vp9"))
}

func TestWorkersPositive(t *testing.T) {
	assert.GreaterOrEqual(t, Workers(), 1)
	assert.NotEmpty(t, MemoryReport())
}

func TestImagePool(t *testing.T) {
	p := NewImagePool()
	rect := image.Rect(0, 0, 8, 4)

	img := p.Get(rect)
	require.NotNil(t, img)
	assert.Equal(t, rect, img.Rect)
	p.Put(img)

	again := p.Get(rect)
	assert.Equal(t, rect, again.Rect)

	other := p.Get(image.Rect(0, 0, 2, 2))
	assert.Equal(t, 2, other.Rect.Dx())

	// unknown sizes and nil are ignored
	p.Put(image.NewRGBA(image.Rect(0, 0, 5, 5)))
	p.Put(nil)
}

func TestInitLoggerWritesJSONFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "pcb2render.log")
	cleanup, err := InitLogger(LogOptions{Console: &console, File: logPath})
	require.NoError(t, err)

	slog.Debug("Sampled bounds", "size", 12.5)
	slog.Info("Camera planned", "view", "angle")
	slog.Warn("Board has no color")
	cleanup()

	assert.NotContains(t, console.String(), "Sampled bounds")
	assert.Contains(t, console.String(), "Camera planned")
	assert.Contains(t, console.String(), "view=angle")
	assert.Contains(t, console.String(), "Board has no color")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "Sampled bounds", rec["msg"])
	assert.Equal(t, 12.5, rec["size"])
}

func TestInitLoggerVerboseConsole(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var console bytes.Buffer
	cleanup, err := InitLogger(LogOptions{Console: &console, Verbose: true})
	require.NoError(t, err)
	defer cleanup()

	slog.With("stage", "camera").Debug("Planned camera")
	assert.Contains(t, console.String(), "stage=camera")
}

func TestConsoleMarkers(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out)
	c.Step("Importing %d boards", 2)
	c.Warn("slow")
	c.Fail("broken")
	c.Done("Result: %s", "out.png")

	assert.Equal(t, "[*] Importing 2 boards\n[!] slow\n[-] broken\n[+++] Result: out.png\n", out.String())
}
