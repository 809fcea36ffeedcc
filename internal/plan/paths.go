package plan

import (
	"fmt"
	"path/filepath"
	"time"
)

// GeneratePath creates a timestamped plan filename inside dir.
func GeneratePath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("plan_%s.yaml", timestamp))
}
