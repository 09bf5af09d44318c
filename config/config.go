// Package config handles morph.toml engine configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/morph/vm"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "morph.toml"

var log = commonlog.GetLogger("morph.config")

// Config represents a morph.toml configuration.
type Config struct {
	Array ArrayConfig `toml:"array"`
	Cache CacheConfig `toml:"cache"`
	Log   LogConfig   `toml:"log"`

	// Dir is the directory containing the morph.toml file (set at load time).
	Dir string `toml:"-"`
}

// ArrayConfig tunes indexed storage.
type ArrayConfig struct {
	MinDense     uint32 `toml:"min-dense"`
	GrowthFactor uint32 `toml:"growth-factor"`
	SparseLength uint32 `toml:"sparse-length"`
}

// CacheConfig configures lookup sites.
type CacheConfig struct {
	Stats bool `toml:"stats"`
}

// LogConfig configures the commonlog backend.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	opts := vm.DefaultOptions()
	return &Config{
		Array: ArrayConfig{
			MinDense:     opts.MinDense,
			GrowthFactor: opts.GrowthFactor,
			SparseLength: opts.SparseLength,
		},
		Cache: CacheConfig{Stats: opts.CacheStats},
	}
}

// Load parses a morph.toml file from the given directory. Keys missing from
// the file keep their defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("%s: unknown key %q", path, key.String())
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a morph.toml file, then loads
// it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate rejects settings the engine cannot honor.
func (c *Config) Validate() error {
	if c.Array.MinDense == 0 {
		return fmt.Errorf("array.min-dense must be positive")
	}
	if c.Array.GrowthFactor < 2 {
		return fmt.Errorf("array.growth-factor must be at least 2, got %d", c.Array.GrowthFactor)
	}
	if c.Array.SparseLength < c.Array.MinDense {
		return fmt.Errorf("array.sparse-length (%d) is below array.min-dense (%d)", c.Array.SparseLength, c.Array.MinDense)
	}
	if c.Log.Verbosity < -1 {
		return fmt.Errorf("log.verbosity must be -1 or more, got %d", c.Log.Verbosity)
	}
	return nil
}

// EngineOptions converts the configuration into engine options.
func (c *Config) EngineOptions() vm.Options {
	return vm.Options{
		MinDense:     c.Array.MinDense,
		GrowthFactor: c.Array.GrowthFactor,
		SparseLength: c.Array.SparseLength,
		CacheStats:   c.Cache.Stats,
	}
}

// LogPath returns the log file path, or nil for stderr.
func (c *Config) LogPath() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.Log.File
	if !filepath.IsAbs(path) && c.Dir != "" {
		path = filepath.Join(c.Dir, path)
	}
	return &path
}
