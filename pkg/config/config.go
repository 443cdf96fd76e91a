// Package config provides configuration loading and management for mrdrecon.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mrdrecon/pkg/simulation"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Simulation parameters of the synthetic dataset
	Simulation struct {
		// Matrix is the recon matrix size along x and y
		Matrix int `yaml:"matrix"`

		// Coils is the number of receive channels
		Coils int `yaml:"coils"`

		// Oversampling is the readout oversampling factor
		Oversampling int `yaml:"oversampling"`

		// Repetitions is the number of times k-space is fully sampled
		Repetitions int `yaml:"repetitions"`

		// NoiseLevel is the standard deviation of the complex Gaussian noise
		NoiseLevel float64 `yaml:"noiseLevel"`

		// NoiseScans is the number of noise-only readouts ahead of the data
		NoiseScans int `yaml:"noiseScans"`

		// Seed makes the noise reproducible
		Seed uint64 `yaml:"seed"`

		// FieldOfView is the in-plane field of view in mm
		FieldOfView float32 `yaml:"fieldOfView"`

		// SliceThickness is the slice thickness in mm
		SliceThickness float32 `yaml:"sliceThickness"`
	} `yaml:"simulation"`

	// Reconstruction parameters
	Reconstruction struct {
		// PassthroughAcquisitions also emits the acquisitions after oversampling removal
		PassthroughAcquisitions bool `yaml:"passthroughAcquisitions"`

		// Threshold is the relative error a noiseless reconstruction must stay below
		Threshold float64 `yaml:"threshold"`
	} `yaml:"reconstruction"`

	// Output parameters
	Output struct {
		// Directory receives the exported images
		Directory string `yaml:"directory"`

		// Prefix is prepended to every image file name
		Prefix string `yaml:"prefix"`

		// Heatmap also renders every image as a heat map
		Heatmap bool `yaml:"heatmap"`

		// Verbose prints every generated file
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is a zerolog level name
		Level string `yaml:"level"`

		// Format is "console" or "json"
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	sim := simulation.DefaultParams()
	cfg.Simulation.Matrix = sim.Matrix
	cfg.Simulation.Coils = sim.Coils
	cfg.Simulation.Oversampling = sim.Oversampling
	cfg.Simulation.Repetitions = sim.Repetitions
	cfg.Simulation.NoiseLevel = sim.NoiseLevel
	cfg.Simulation.NoiseScans = sim.NoiseScans
	cfg.Simulation.Seed = sim.Seed
	cfg.Simulation.FieldOfView = sim.FieldOfView
	cfg.Simulation.SliceThickness = sim.SliceThickness

	cfg.Reconstruction.PassthroughAcquisitions = false
	cfg.Reconstruction.Threshold = 2e-5

	cfg.Output.Directory = "output"
	cfg.Output.Prefix = "image_"
	cfg.Output.Heatmap = false
	cfg.Output.Verbose = false

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"

	return cfg
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.Matrix < 2:
		return fmt.Errorf("%w: simulation.matrix must be at least 2, got %d", ErrInvalidConfig, s.Matrix)
	case s.Coils <= 0:
		return fmt.Errorf("%w: simulation.coils must be positive, got %d", ErrInvalidConfig, s.Coils)
	case s.Oversampling <= 0:
		return fmt.Errorf("%w: simulation.oversampling must be positive, got %d", ErrInvalidConfig, s.Oversampling)
	case s.Repetitions <= 0:
		return fmt.Errorf("%w: simulation.repetitions must be positive, got %d", ErrInvalidConfig, s.Repetitions)
	case s.NoiseLevel < 0:
		return fmt.Errorf("%w: simulation.noiseLevel must not be negative, got %g", ErrInvalidConfig, s.NoiseLevel)
	case s.NoiseScans < 0:
		return fmt.Errorf("%w: simulation.noiseScans must not be negative, got %d", ErrInvalidConfig, s.NoiseScans)
	case s.FieldOfView <= 0 || s.SliceThickness <= 0:
		return fmt.Errorf("%w: simulation field of view must be positive", ErrInvalidConfig)
	case c.Reconstruction.Threshold <= 0:
		return fmt.Errorf("%w: reconstruction.threshold must be positive, got %g", ErrInvalidConfig, c.Reconstruction.Threshold)
	case c.Output.Directory == "":
		return fmt.Errorf("%w: output.directory is empty", ErrInvalidConfig)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// SimulationParams converts the simulation section.
func (c *Config) SimulationParams() simulation.Params {
	s := c.Simulation
	return simulation.Params{
		Matrix:         s.Matrix,
		Coils:          s.Coils,
		Oversampling:   s.Oversampling,
		Repetitions:    s.Repetitions,
		NoiseLevel:     s.NoiseLevel,
		NoiseScans:     s.NoiseScans,
		Seed:           s.Seed,
		FieldOfView:    s.FieldOfView,
		SliceThickness: s.SliceThickness,
	}
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
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
	return SaveConfig(DefaultConfig(), configPath)
}
