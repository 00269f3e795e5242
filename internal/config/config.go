// Package config handles bwterrain configuration loading and management.
package config

import (
	"fmt"
	"strings"

	"github.com/Faultbox/bwterrain/pkg/texid"
)

// Config holds all tool settings.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Collision CollisionConfig `yaml:"collision"`
	Textures  TexturesConfig  `yaml:"textures"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// TerrainConfig controls how terrain files are read and written.
type TerrainConfig struct {
	Compression                 string `yaml:"compression"`       // auto, none, gzip, zstd
	CompressionLevel            int    `yaml:"compression_level"` // 0 = library default
	CanonicalizeMaterialsOnLoad bool   `yaml:"canonicalize_materials_on_load"`
}

// CollisionConfig controls collision map rendering.
type CollisionConfig struct {
	ImageFormat  string `yaml:"image_format"` // png or bmp
	FlipVertical bool   `yaml:"flip_vertical"`
}

// TexturesConfig holds the texture resource id sequence.
type TexturesConfig struct {
	IDBase uint32 `yaml:"id_base"`
	IDStep uint32 `yaml:"id_step"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Terrain: TerrainConfig{
			Compression:                 "auto",
			CompressionLevel:            0,
			CanonicalizeMaterialsOnLoad: true,
		},
		Collision: CollisionConfig{
			ImageFormat:  "png",
			FlipVertical: true,
		},
		Textures: TexturesConfig{
			IDBase: texid.DefaultBase,
			IDStep: texid.DefaultStep,
		},
	}
}

// Validate checks values that cannot be caught by YAML typing.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Terrain.Compression) {
	case "", "auto", "none", "gzip", "zstd":
	default:
		return fmt.Errorf("terrain.compression: unknown value %q", c.Terrain.Compression)
	}
	switch strings.ToLower(c.Collision.ImageFormat) {
	case "png", "bmp":
	default:
		return fmt.Errorf("collision.image_format: unknown value %q", c.Collision.ImageFormat)
	}
	if c.Textures.IDStep == 0 {
		return fmt.Errorf("textures.id_step must be positive")
	}
	return nil
}
