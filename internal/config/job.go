package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadJob decodes a YAML (.yaml, .yml) or TOML (.toml) job file over cfg.
// Keys missing from the file keep their current values.
func LoadJob(path string, cfg *Config) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read job file: %v", ErrInvalid, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: job file %s: want .yaml, .yml or .toml", ErrInvalid, path)
	}
	if err != nil {
		return fmt.Errorf("%w: parse job file %s: %v", ErrInvalid, path, err)
	}

	// Relative board paths are resolved against the job file.
	dir := filepath.Dir(path)
	for i, b := range cfg.Boards {
		if b.Path != "" && !filepath.IsAbs(b.Path) && !strings.HasPrefix(b.Path, "~") {
			cfg.Boards[i].Path = filepath.Join(dir, b.Path)
		}
	}
	return nil
}
