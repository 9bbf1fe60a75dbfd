// Package config reads and writes the imgkit TOML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"imgkit/internal/bitmap"
	"imgkit/internal/mosaic"
)

// Engines accepted by the engine key.
const (
	EngineNative = "native"
	EngineOpenCV = "opencv"
)

const configFile = "config.toml"

// Config holds user defaults for the command line tools.
type Config struct {
	Engine        string `toml:"engine"`         // native or opencv
	EdgeThickness int    `toml:"edge_thickness"` // stitching strip width
	SaveDepth     int    `toml:"save_depth"`     // 8, 16, 24, 32, or 0 to follow the image
	FillColour    string `toml:"fill_colour"`    // #rrggbb or #rrggbbaa
	Blend         string `toml:"blend"`          // mosaic blend mode
	Debug         bool   `toml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine:        EngineNative,
		EdgeThickness: 40,
		SaveDepth:     0,
		FillColour:    "#000000",
		Blend:         "gradient",
		Debug:         false,
	}
}

// Dir returns $XDG_CONFIG_HOME/imgkit, falling back to ~/.config/imgkit.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, "imgkit")
}

// Path returns the default configuration file path.
func Path() string {
	return filepath.Join(Dir(), configFile)
}

// Load reads the configuration at path. Keys missing from the file keep
// their defaults, and a missing file yields the defaults.
func Load(path string) (*Config, error) {
	conf := Default()
	if _, err := toml.DecodeFile(path, conf); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return conf, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buffer.Bytes(), 0644)
}

// Validate checks every key.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineNative, EngineOpenCV:
	default:
		return fmt.Errorf("engine %q: want %s or %s", c.Engine, EngineNative, EngineOpenCV)
	}
	if c.EdgeThickness < 4 {
		return fmt.Errorf("edge_thickness %d: must be at least 4", c.EdgeThickness)
	}
	if c.SaveDepth != 0 {
		if _, err := bitmap.ParseSaveBitDepth(c.SaveDepth); err != nil {
			return err
		}
	}
	if _, err := c.Fill(); err != nil {
		return err
	}
	if _, err := c.BlendMode(); err != nil {
		return err
	}
	return nil
}

// Fill parses FillColour.
func (c *Config) Fill() (color.Color, error) {
	return ParseColour(c.FillColour)
}

// BlendMode parses Blend.
func (c *Config) BlendMode() (mosaic.BlendMode, error) {
	return mosaic.ParseBlendMode(c.Blend)
}

// ParseColour parses #rrggbb or #rrggbbaa.
func ParseColour(s string) (color.Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, fmt.Errorf("colour %q: want #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("colour %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
