// Package builders provides a fluent builder for constructing simulations
package builders

import (
	"time"

	"github.com/anggasct/crossing/pkg/config"
	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/isolated"
	"github.com/anggasct/crossing/pkg/observers"
	"github.com/anggasct/crossing/pkg/sharedmem"
	"github.com/anggasct/crossing/pkg/utils"
)

// SimulationBuilder provides a fluent interface for configuring a run
type SimulationBuilder struct {
	cfg       config.Config
	observers []core.Observer
}

// NewSimulationBuilder starts from the default configuration
func NewSimulationBuilder() *SimulationBuilder {
	return &SimulationBuilder{
		cfg:       config.Default(),
		observers: make([]core.Observer, 0),
	}
}

// WithConfig replaces the whole configuration
func (b *SimulationBuilder) WithConfig(cfg config.Config) *SimulationBuilder {
	b.cfg = cfg
	return b
}

// WithMode selects the backend. Aliases such as "threads" are accepted.
func (b *SimulationBuilder) WithMode(mode string) *SimulationBuilder {
	b.cfg.Mode = core.Mode(mode)
	return b
}

// WithCycles sets the number of full cycles to run
func (b *SimulationBuilder) WithCycles(cycles int) *SimulationBuilder {
	b.cfg.Cycles = cycles
	return b
}

// WithTiming sets tick, green and yellow durations
func (b *SimulationBuilder) WithTiming(tick, green, yellow time.Duration) *SimulationBuilder {
	b.cfg.Timing = core.Timing{Tick: tick, Green: green, Yellow: yellow}
	return b
}

// WithArrivalProbability sets the per-tick arrival probability of every direction
func (b *SimulationBuilder) WithArrivalProbability(p float64) *SimulationBuilder {
	b.cfg.ArrivalProbability = p
	return b
}

// WithSeed fixes the arrival streams
func (b *SimulationBuilder) WithSeed(seed uint64) *SimulationBuilder {
	b.cfg.Seed = seed
	return b
}

// WithObserver registers an observer; nil is ignored
func (b *SimulationBuilder) WithObserver(o core.Observer) *SimulationBuilder {
	if o != nil {
		b.observers = append(b.observers, o)
	}
	return b
}

// AddLoggingObserver adds a logging observer writing to stderr
func (b *SimulationBuilder) AddLoggingObserver(level observers.LogLevel) *SimulationBuilder {
	o := observers.NewDefaultLoggingObserver()
	o.SetLevel(level)
	return b.WithObserver(o)
}

// AddMetricsObserver registers a metrics observer the caller keeps a handle on
func (b *SimulationBuilder) AddMetricsObserver(m *observers.MetricsObserver) *SimulationBuilder {
	if m == nil {
		return b
	}
	return b.WithObserver(m)
}

// Config returns the configuration as currently set
func (b *SimulationBuilder) Config() config.Config {
	return b.cfg
}

// Build validates the configuration and constructs the backend it names
func (b *SimulationBuilder) Build() (core.Simulation, error) {
	mode, err := core.ParseMode(string(b.cfg.Mode))
	if err != nil {
		return nil, utils.ErrNotImplemented.
			WithComponent("builders").
			WithDetail("mode", string(b.cfg.Mode)).
			WithCause(err)
	}

	cfg := b.cfg
	cfg.Mode = mode
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case core.ModeShared:
		return sharedmem.New(cfg, b.observers...), nil
	case core.ModeIsolated:
		e, err := isolated.New(cfg, b.observers...)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, utils.ErrNotImplemented.WithComponent("builders").WithDetail("mode", string(cfg.Mode))
}
