// Package config provides configuration loading and management for ndvoxel.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"ndvoxel/pkg/boundary"
	"ndvoxel/pkg/region"
)

// Filter names accepted in Config.Filter.Name
const (
	FilterMean              = "mean"
	FilterMedian            = "median"
	FilterStdDev            = "stddev"
	FilterLaplacian         = "laplacian"
	FilterGradientMagnitude = "gradient"
	FilterObjectBoundary    = "boundary"
)

var knownFilters = map[string]bool{
	FilterMean:              true,
	FilterMedian:            true,
	FilterStdDev:            true,
	FilterLaplacian:         true,
	FilterGradientMagnitude: true,
	FilterObjectBoundary:    true,
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many goroutines process output chunks
		NumWorkers int `yaml:"numWorkers"`

		// ChunksPerWorker oversplits the output region for load balancing
		ChunksPerWorker int `yaml:"chunksPerWorker"`

		// SliceGap is the physical distance between consecutive slices in mm
		SliceGap float64 `yaml:"sliceGap"`
	} `yaml:"processing"`

	// Filter parameters
	Filter struct {
		// Name selects the neighborhood filter to run
		Name string `yaml:"name"`

		// Radius is the neighborhood radius on every axis
		Radius int `yaml:"radius"`

		// ObjectValue is the foreground value for the boundary filter
		ObjectValue float64 `yaml:"objectValue"`

		// Region optionally restricts processing to part of the volume
		Region *region.Region `yaml:"region,omitempty"`
	} `yaml:"filter"`

	// Boundary condition parameters
	Boundary struct {
		// Kind is one of constant, zeroflux, periodic, mirror
		Kind string `yaml:"kind"`

		// Constant is the value used by the constant condition
		Constant float64 `yaml:"constant"`

		// Enabled controls whether the boundary filter substitutes
		// out-of-buffer pixels or skips them
		Enabled bool `yaml:"enabled"`
	} `yaml:"boundary"`

	// Output parameters
	Output struct {
		// Format is the slice image format, jpeg or png
		Format string `yaml:"format"`

		// Axes lists the axes along which output slices are written
		Axes []string `yaml:"axes"`

		// Metrics enables comparison of output against input
		Metrics bool `yaml:"metrics"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// File is an optional rotating JSON log file
		File string `yaml:"file"`

		// Development switches to colored console output
		Development bool `yaml:"development"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.ChunksPerWorker = 4
	cfg.Processing.SliceGap = 1.0

	cfg.Filter.Name = FilterMean
	cfg.Filter.Radius = 1
	cfg.Filter.ObjectValue = 1.0

	cfg.Boundary.Kind = string(boundary.KindZeroFluxNeumann)
	cfg.Boundary.Constant = 0
	cfg.Boundary.Enabled = true

	cfg.Output.Format = "png"
	cfg.Output.Axes = []string{"z"}
	cfg.Output.Metrics = true

	cfg.Logging.Level = "info"
	cfg.Logging.Development = true

	return cfg
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Processing.NumWorkers < 1 {
		return fmt.Errorf("processing.numWorkers must be at least 1, got %d", c.Processing.NumWorkers)
	}
	if c.Processing.SliceGap <= 0 {
		return fmt.Errorf("processing.sliceGap must be positive, got %g", c.Processing.SliceGap)
	}
	if !knownFilters[c.Filter.Name] {
		return fmt.Errorf("filter.name %q is not a known filter", c.Filter.Name)
	}
	if c.Filter.Radius < 0 {
		return fmt.Errorf("filter.radius must be non-negative, got %d", c.Filter.Radius)
	}
	if _, err := boundary.ParseKind(c.Boundary.Kind); err != nil {
		return fmt.Errorf("boundary.kind: %w", err)
	}
	switch c.Output.Format {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("output.format %q must be png or jpeg", c.Output.Format)
	}
	for _, a := range c.Output.Axes {
		switch a {
		case "x", "y", "z", "X", "Y", "Z":
		default:
			return fmt.Errorf("output.axes: invalid axis %q", a)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
