// Package manifest handles arkaan.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents an arkaan.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Source  Source      `toml:"source"`
	Limits  Limits      `toml:"limits"`
	Cache   CacheConfig `toml:"cache"`

	// Dir is the directory containing the arkaan.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Limits overrides the VM resource caps. Zero fields keep the defaults.
type Limits struct {
	StackSlots int `toml:"stack-slots"`
	Frames     int `toml:"frames"`
	MaxList    int `toml:"max-list"`
	MaxString  int `toml:"max-string"`
	MaxSteps   int `toml:"max-steps"`
}

// CacheConfig configures the compiled-chunk cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load parses an arkaan.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "arkaan.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kan nie %s lees nie: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("ontleedfout in %s: %w", path, err)
	}

	m.Dir = dir
	return &m, nil
}

// Find walks up from dir looking for an arkaan.toml. Returns nil without an
// error when no manifest exists; running loose scripts needs none.
func Find(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(abs, "arkaan.toml")); err == nil {
			return Load(abs)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return nil, nil
		}
		abs = parent
	}
}

// CachePath resolves the cache location: the manifest's path relative to its
// directory, or defaultPath when unset.
func (m *Manifest) CachePath(defaultPath string) string {
	if m == nil || m.Cache.Path == "" {
		return defaultPath
	}
	if filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}
