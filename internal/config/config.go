// Package config handles ply2uv configuration loading and management.
package config

import "github.com/Fizz14/ply2uv/pkg/ply"

// Config holds all tool settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	STL     STLConfig     `yaml:"stl"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig selects which optional layers an export writes. A layer is
// written only when it is enabled here and the source mesh has it.
type ExportConfig struct {
	UV0   bool `yaml:"uv0"`
	UV1   bool `yaml:"uv1"`
	Color bool `yaml:"color"`
	// RequireUV cancels exports of meshes without a UV layer.
	RequireUV bool `yaml:"require_uv"`
}

// Features returns the enabled layers as codec flags.
func (e ExportConfig) Features() ply.LayoutFlags {
	return ply.LayoutFlags{UV0: e.UV0, UV1: e.UV1, Color: e.Color}
}

// STLConfig holds STL conversion settings.
type STLConfig struct {
	Ratio float64 `yaml:"ratio"` // Fraction of triangles to keep
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			UV0:   true,
			UV1:   true,
			Color: true,
		},
		STL: STLConfig{
			Ratio: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
