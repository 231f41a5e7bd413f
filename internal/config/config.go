// Package config handles softpal.toml settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"softpal/internal/analysis"
)

// FileName is the config file looked up by FindAndLoad.
const FileName = "softpal.toml"

// Config holds settings that can also be given as flags. Flags win.
type Config struct {
	Debug   bool     `toml:"debug" json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	NoColor bool     `toml:"no_color" json:"no_color" jsonschema:"title=No Color,description=Disable colored dump output"`
	Style   string   `toml:"style" json:"style,omitempty" jsonschema:"title=Style,description=Chroma style for dump highlighting,default=sv20-dark"`
	Width   int      `toml:"width" json:"width,omitempty" jsonschema:"title=Width,description=Wrap width for the markdown summary,minimum=20,default=80"`
	Kinds   []string `toml:"kinds" json:"kinds,omitempty" jsonschema:"title=Kinds,description=Report kinds to keep,enum=name,enum=message"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-" json:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{Width: 80}
}

// Load parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if c.Width < 20 {
		c.Width = 20
	}
	if _, err := c.KindFilter(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir looking for softpal.toml, then tries
// $XDG_CONFIG_HOME/softpal. Defaults are returned when neither has one.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if xdg, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(xdg, "softpal", FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// KindFilter converts Kinds into a report filter. An empty list keeps all.
func (c *Config) KindFilter() (analysis.KindFilter, error) {
	var f analysis.KindFilter
	for _, k := range c.Kinds {
		var kind analysis.TextKind
		if err := kind.UnmarshalText([]byte(k)); err != nil {
			return nil, err
		}
		f = append(f, kind)
	}
	return f, nil
}
