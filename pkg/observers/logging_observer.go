// Package observers provides observers for monitoring simulation runs
package observers

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/anggasct/crossing/pkg/core"
	"github.com/charmbracelet/log"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// LogError logs only errors
	LogError LogLevel = iota
	// LogWarning logs errors and warnings
	LogWarning
	// LogInfo logs errors, warnings, run and phase events
	LogInfo
	// LogDebug adds light changes and every vehicle
	LogDebug
)

// Charm maps the level onto the charmbracelet/log level
func (l LogLevel) Charm() log.Level {
	switch l {
	case LogError:
		return log.ErrorLevel
	case LogWarning:
		return log.WarnLevel
	case LogDebug:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// ParseLogLevel maps a level name to a LogLevel, defaulting to LogInfo
func ParseLogLevel(name string) LogLevel {
	switch name {
	case "error":
		return LogError
	case "warn", "warning":
		return LogWarning
	case "debug":
		return LogDebug
	default:
		return LogInfo
	}
}

// LoggingObserver logs simulation events through a structured logger
type LoggingObserver struct {
	level  LogLevel
	logger *log.Logger
	mutex  sync.RWMutex
}

var _ core.ExtendedObserver = (*LoggingObserver)(nil)

// NewLoggingObserver creates a logging observer writing to w
func NewLoggingObserver(w io.Writer, level LogLevel, prefix string) *LoggingObserver {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level.Charm(),
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return &LoggingObserver{level: level, logger: logger}
}

// NewDefaultLoggingObserver creates a logging observer on stderr at LogInfo
func NewDefaultLoggingObserver() *LoggingObserver {
	return NewLoggingObserver(os.Stderr, LogInfo, "crossing")
}

// NewLoggingObserverWithLogger wraps an existing logger
func NewLoggingObserverWithLogger(logger *log.Logger, level LogLevel) *LoggingObserver {
	logger.SetLevel(level.Charm())
	return &LoggingObserver{level: level, logger: logger}
}

// SetFormatter switches between text, logfmt and JSON output
func (o *LoggingObserver) SetFormatter(f log.Formatter) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.logger.SetFormatter(f)
}

// SetLevel changes the level filter
func (o *LoggingObserver) SetLevel(level LogLevel) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.level = level
	o.logger.SetLevel(level.Charm())
}

// Logger exposes the underlying logger
func (o *LoggingObserver) Logger() *log.Logger {
	return o.logger
}

func (o *LoggingObserver) enabled(level LogLevel) bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return level <= o.level
}

// OnRunStarted logs the run parameters
func (o *LoggingObserver) OnRunStarted(info core.RunInfo) {
	o.logger.Info("run started",
		"run", info.RunID, "mode", info.Mode, "cycles", info.CyclesTarget,
		"tick", info.Timing.Tick, "green", info.Timing.Green, "yellow", info.Timing.Yellow,
		"arrival", info.Arrival)
}

// OnRunEnded logs the total elapsed time
func (o *LoggingObserver) OnRunEnded(info core.RunInfo, elapsed time.Duration) {
	o.logger.Info("run ended", "run", info.RunID, "mode", info.Mode, "elapsed", elapsed.Round(time.Millisecond))
}

// OnPhaseApplied logs phase changes
func (o *LoggingObserver) OnPhaseApplied(event core.PhaseEvent) {
	o.logger.Info("phase applied", "phase", event.Phase, "cycle", event.Cycle, "green", event.Green)
}

// OnLightChanged logs light transitions
func (o *LoggingObserver) OnLightChanged(event core.LightEvent) {
	if !o.enabled(LogDebug) {
		return
	}
	o.logger.Debug("light changed", "direction", event.Direction, "from", event.From, "to", event.To, "cycle", event.Cycle)
}

// OnVehicleArrived logs arrivals
func (o *LoggingObserver) OnVehicleArrived(v core.Vehicle) {
	if !o.enabled(LogDebug) {
		return
	}
	o.logger.Debug("vehicle arrived", "id", v.ID, "direction", v.Origin)
}

// OnVehicleCrossed logs departures
func (o *LoggingObserver) OnVehicleCrossed(v core.Vehicle, wait time.Duration) {
	if !o.enabled(LogDebug) {
		return
	}
	o.logger.Debug("vehicle crossed", "id", v.ID, "direction", v.Origin, "wait", wait.Round(time.Millisecond))
}

// OnError logs errors
func (o *LoggingObserver) OnError(err error) {
	o.logger.Error("simulation error", "err", err)
}
