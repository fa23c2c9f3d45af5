// Package crossing simulates a four-way signalised intersection. One controller
// alternates the north/south and east/west pairs through green, yellow and red while
// four direction workers queue arriving vehicles and release one per tick on green.
// Two interchangeable backends run the same protocol: a shared-memory one and an
// isolated-worker one that reaches state only through a coordination store.
package crossing

import (
	"github.com/anggasct/crossing/pkg/builders"
	"github.com/anggasct/crossing/pkg/config"
	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/observers"
	"github.com/anggasct/crossing/pkg/utils"
)

// Core types
type (
	// Simulation is the engine contract shared by both backends
	Simulation = core.Simulation

	// Snapshot is a consistent copy of the intersection at one instant
	Snapshot = core.Snapshot

	// DirectionStats is the per-approach part of a snapshot
	DirectionStats = core.DirectionStats

	// Direction is one of N, S, E, W
	Direction = core.Direction

	// LightState is the signal shown to one approach
	LightState = core.LightState

	// Mode selects the backend
	Mode = core.Mode

	// Observer receives phase and light notifications
	Observer = core.Observer

	// ExtendedObserver also receives run, vehicle and error notifications
	ExtendedObserver = core.ExtendedObserver

	// Config holds the run parameters
	Config = config.Config

	// SimulationBuilder provides a fluent interface for building simulations
	SimulationBuilder = builders.SimulationBuilder
)

// Re-export observer types
type (
	// LoggingObserver logs simulation events
	LoggingObserver = observers.LoggingObserver

	// MetricsObserver aggregates phase and vehicle metrics
	MetricsObserver = observers.MetricsObserver

	// ValidationObserver checks light and phase sequences
	ValidationObserver = observers.ValidationObserver

	// SimulationError is the coded error returned across the module
	SimulationError = utils.SimulationError
)

// Re-export constants
const (
	North = core.North
	South = core.South
	East  = core.East
	West  = core.West

	LightOff    = core.LightOff
	LightRed    = core.LightRed
	LightYellow = core.LightYellow
	LightGreen  = core.LightGreen

	ModeShared   = core.ModeShared
	ModeIsolated = core.ModeIsolated
)

// Re-export constructors and sentinels
var (
	// DefaultConfig returns the default run parameters
	DefaultConfig = config.Default

	// LoadConfig reads a YAML configuration file
	LoadConfig = config.Load

	// NewSimulationBuilder creates a builder starting from the defaults
	NewSimulationBuilder = builders.NewSimulationBuilder

	// NewLoggingObserver creates a logging observer with default settings
	NewLoggingObserver = observers.NewDefaultLoggingObserver

	// NewMetricsObserver creates a metrics observer
	NewMetricsObserver = observers.NewMetricsObserver

	// NewValidationObserver creates a validation observer
	NewValidationObserver = observers.NewValidationObserver

	ErrNotImplemented       = utils.ErrNotImplemented
	ErrAlreadyStarted       = utils.ErrAlreadyStarted
	ErrStopped              = utils.ErrStopped
	ErrStoreClosed          = utils.ErrStoreClosed
	ErrInvalidConfiguration = utils.ErrInvalidConfiguration
)

// New builds the backend named by cfg.Mode
func New(cfg Config, obs ...Observer) (Simulation, error) {
	b := builders.NewSimulationBuilder().WithConfig(cfg)
	for _, o := range obs {
		b.WithObserver(o)
	}
	return b.Build()
}
