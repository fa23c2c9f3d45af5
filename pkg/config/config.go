// Package config holds the run parameters of a simulation and loads them from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/utils"
	"gopkg.in/yaml.v3"
)

// Config holds the values fixed for the lifetime of one run
type Config struct {
	Mode               core.Mode   `yaml:"mode" json:"mode"`
	Cycles             int         `yaml:"cycles" json:"cycles"`
	Timing             core.Timing `yaml:"timing" json:"timing"`
	ArrivalProbability float64     `yaml:"arrival_probability" json:"arrival_probability"`
	// Seed feeds the arrival sources; 0 picks a random seed per run
	Seed uint64 `yaml:"seed" json:"seed"`
}

// Defaults
const (
	DefaultMode               = core.ModeShared
	DefaultCycles             = 10
	DefaultTick               = 100 * time.Millisecond
	DefaultGreen              = 3 * time.Second
	DefaultYellow             = 1 * time.Second
	DefaultArrivalProbability = 0.3
)

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Mode:   DefaultMode,
		Cycles: DefaultCycles,
		Timing: core.Timing{
			Tick:   DefaultTick,
			Green:  DefaultGreen,
			Yellow: DefaultYellow,
		},
		ArrivalProbability: DefaultArrivalProbability,
	}
}

// Validate checks every field and reports all problems at once
func (c Config) Validate() error {
	ec := utils.NewErrorCollector()

	if _, err := core.ParseMode(string(c.Mode)); err != nil {
		ec.Add(err)
	}
	if c.Cycles <= 0 {
		ec.Add(utils.NewConfigurationError("cycles", "cycles must be a positive integer").WithDetail("value", c.Cycles))
	}
	if c.ArrivalProbability < 0 || c.ArrivalProbability > 1 {
		ec.Add(utils.NewConfigurationError("arrival_probability", "arrival probability must be within [0, 1]").
			WithDetail("value", c.ArrivalProbability))
	}
	if err := c.Timing.Validate(); err != nil {
		ec.Add(err)
	}

	return ec.Err()
}

// Normalize resolves mode aliases
func (c Config) Normalize() (Config, error) {
	mode, err := core.ParseMode(string(c.Mode))
	if err != nil {
		return c, err
	}
	c.Mode = mode
	return c, nil
}

// Parse decodes YAML on top of the defaults and validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, utils.ErrInvalidConfiguration.WithComponent("config").WithCause(err)
	}

	cfg, err := cfg.Normalize()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML file
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}
