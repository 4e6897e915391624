package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical mapping defaults file.
const DefaultConfigPath = "config/armap.defaults.json"

// Color is an RGBA tuple with components in [0,1].
type Color [4]float32

// MapConfig represents the root configuration for point aggregation,
// map persistence and replay. Every field is optional; the Get* methods
// supply defaults for fields left unset, so partial configs are safe.
type MapConfig struct {
	// Aggregator params
	MaxPoints           *int     `json:"max_points,omitempty" yaml:"max_points,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	FullReplace         *bool    `json:"full_replace,omitempty" yaml:"full_replace,omitempty"`

	// Visualisation params
	PointSize      *float64 `json:"point_size,omitempty" yaml:"point_size,omitempty"`
	LivePointColor *Color   `json:"live_point_color,omitempty" yaml:"live_point_color,omitempty"`
	MapPointColor  *Color   `json:"map_point_color,omitempty" yaml:"map_point_color,omitempty"`
	PlaneColor     *Color   `json:"plane_color,omitempty" yaml:"plane_color,omitempty"`
	PlaneThickness *float64 `json:"plane_thickness,omitempty" yaml:"plane_thickness,omitempty"`

	// Persistence params
	MapFilename *string `json:"map_filename,omitempty" yaml:"map_filename,omitempty"`
	MapDir      *string `json:"map_dir,omitempty" yaml:"map_dir,omitempty"`
}

// EmptyMapConfig returns a MapConfig with all fields set to nil.
func EmptyMapConfig() *MapConfig {
	return &MapConfig{}
}

// LoadMapConfig loads a MapConfig from a JSON or YAML file, chosen by
// extension (.json, .yaml, .yml). The file must be under 1MB.
func LoadMapConfig(path string) (*MapConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyMapConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *MapConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadMapConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *MapConfig) Validate() error {
	if c.MaxPoints != nil && *c.MaxPoints < 0 {
		return fmt.Errorf("max_points must be non-negative, got %d", *c.MaxPoints)
	}
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}
	if c.PointSize != nil && *c.PointSize <= 0 {
		return fmt.Errorf("point_size must be positive, got %f", *c.PointSize)
	}
	if c.PlaneThickness != nil && *c.PlaneThickness <= 0 {
		return fmt.Errorf("plane_thickness must be positive, got %f", *c.PlaneThickness)
	}
	for name, col := range map[string]*Color{
		"live_point_color": c.LivePointColor,
		"map_point_color":  c.MapPointColor,
		"plane_color":      c.PlaneColor,
	} {
		if col == nil {
			continue
		}
		for _, v := range col {
			if v < 0 || v > 1 {
				return fmt.Errorf("%s components must be between 0 and 1, got %v", name, *col)
			}
		}
	}
	if c.MapFilename != nil {
		if *c.MapFilename == "" || filepath.Base(*c.MapFilename) != *c.MapFilename {
			return fmt.Errorf("map_filename must be a bare file name, got %q", *c.MapFilename)
		}
	}
	return nil
}

// GetMaxPoints returns the max_points value or the default.
func (c *MapConfig) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return 2000
	}
	return *c.MaxPoints
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *MapConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return 0.5
	}
	return *c.ConfidenceThreshold
}

// GetFullReplace returns the full_replace value or the default.
func (c *MapConfig) GetFullReplace() bool {
	if c.FullReplace == nil {
		return true
	}
	return *c.FullReplace
}

// GetPointSize returns the point_size value or the default.
func (c *MapConfig) GetPointSize() float64 {
	if c.PointSize == nil {
		return 0.02
	}
	return *c.PointSize
}

// GetLivePointColor returns the live_point_color value or the default (white).
func (c *MapConfig) GetLivePointColor() Color {
	if c.LivePointColor == nil {
		return Color{1, 1, 1, 1}
	}
	return *c.LivePointColor
}

// GetMapPointColor returns the map_point_color value or the default (green).
func (c *MapConfig) GetMapPointColor() Color {
	if c.MapPointColor == nil {
		return Color{0, 1, 0, 1}
	}
	return *c.MapPointColor
}

// GetPlaneColor returns the plane_color value or the default.
func (c *MapConfig) GetPlaneColor() Color {
	if c.PlaneColor == nil {
		return Color{0, 0.8, 1, 0.3}
	}
	return *c.PlaneColor
}

// GetPlaneThickness returns the plane_thickness value or the default.
func (c *MapConfig) GetPlaneThickness() float64 {
	if c.PlaneThickness == nil {
		return 0.01
	}
	return *c.PlaneThickness
}

// GetMapFilename returns the map_filename value or the default.
func (c *MapConfig) GetMapFilename() string {
	if c.MapFilename == nil || *c.MapFilename == "" {
		return "ar_map.json"
	}
	return *c.MapFilename
}

// GetMapDir returns the map_dir value or the default.
func (c *MapConfig) GetMapDir() string {
	if c.MapDir == nil || *c.MapDir == "" {
		return "maps"
	}
	return *c.MapDir
}
