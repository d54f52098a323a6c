// Package config holds the run configuration for the gravcomp harness.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRateHz   = 200.0
	DefaultDuration = 5.0
	DefaultDataDir  = ".gravcomp"
)

type Config struct {
	// URDF is the path to the robot description file.
	URDF string `yaml:"urdf"`
	// Joints is the ordered list of controlled joint names.
	Joints []string `yaml:"joints"`
	// RateHz is the control loop frequency.
	RateHz float64 `yaml:"rate_hz"`
	// Duration is the simulated run length in seconds.
	Duration float64 `yaml:"duration"`
	// InitialPositions seeds the plant's joint positions by name.
	InitialPositions map[string]float64 `yaml:"initial_positions"`
	// Unsensed lists joints the simulated robot exposes no state
	// handle for.
	Unsensed []string `yaml:"unsensed"`
	// DataDir is where runs are stored.
	DataDir string `yaml:"data_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		RateHz:   DefaultRateHz,
		Duration: DefaultDuration,
		DataDir:  DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations the harness cannot run.
func (c *Config) Validate() error {
	if c.URDF == "" {
		return fmt.Errorf("config: urdf path is required")
	}
	if c.RateHz <= 0 {
		return fmt.Errorf("config: rate_hz must be positive, got %g", c.RateHz)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %g", c.Duration)
	}
	return nil
}
