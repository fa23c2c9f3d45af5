package observers

import (
	"fmt"
	"sync"

	"github.com/anggasct/crossing/pkg/core"
)

// ValidationObserver checks controller notifications against the light and phase rules
type ValidationObserver struct {
	core.BaseObserver
	allowedTransitions map[core.LightState]map[core.LightState]bool
	runID              string
	lastPhase          *core.PhaseEvent
	violations         []string
	mutex              sync.RWMutex
}

var _ core.ExtendedObserver = (*ValidationObserver)(nil)

// NewValidationObserver creates a validator preloaded with the red, green, yellow, red cycle
func NewValidationObserver() *ValidationObserver {
	o := &ValidationObserver{
		allowedTransitions: make(map[core.LightState]map[core.LightState]bool),
		violations:         make([]string, 0),
	}
	o.AddAllowedTransition(core.LightRed, core.LightGreen)
	o.AddAllowedTransition(core.LightGreen, core.LightYellow)
	o.AddAllowedTransition(core.LightYellow, core.LightRed)
	return o
}

// AddAllowedTransition adds an allowed light transition
func (o *ValidationObserver) AddAllowedTransition(from, to core.LightState) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, exists := o.allowedTransitions[from]; !exists {
		o.allowedTransitions[from] = make(map[core.LightState]bool)
	}
	o.allowedTransitions[from][to] = true
}

// OnRunStarted starts over when a different run begins
func (o *ValidationObserver) OnRunStarted(info core.RunInfo) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if info.RunID == o.runID {
		return
	}
	o.runID = info.RunID
	o.lastPhase = nil
	o.violations = make([]string, 0)
}

// OnLightChanged validates a light transition
func (o *ValidationObserver) OnLightChanged(event core.LightEvent) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.allowedTransitions[event.From][event.To] {
		o.violations = append(o.violations, fmt.Sprintf(
			"invalid light transition %s -> %s for %s in cycle %d",
			event.From, event.To, event.Direction, event.Cycle))
	}
}

// OnPhaseApplied validates phase alternation and cycle counting
func (o *ValidationObserver) OnPhaseApplied(event core.PhaseEvent) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if len(event.Green) != 2 || len(event.Red) != 2 {
		o.violations = append(o.violations, fmt.Sprintf(
			"phase %d must have two green and two red approaches", event.Phase))
	}

	// phase bookkeeping never spans runs
	if o.lastPhase != nil && o.lastPhase.RunID != event.RunID {
		o.lastPhase = nil
	}

	if o.lastPhase == nil {
		if event.Phase != 0 || event.Cycle != 0 {
			o.violations = append(o.violations, fmt.Sprintf(
				"run must start at phase 0 cycle 0, got phase %d cycle %d", event.Phase, event.Cycle))
		}
	} else {
		if event.Phase == o.lastPhase.Phase {
			o.violations = append(o.violations, fmt.Sprintf(
				"phase %d applied twice in a row", event.Phase))
		}
		if event.Cycle != o.lastPhase.Cycle+1 {
			o.violations = append(o.violations, fmt.Sprintf(
				"cycle jumped from %d to %d", o.lastPhase.Cycle, event.Cycle))
		}
	}

	ev := event
	o.lastPhase = &ev
}

// OnError records errors as violations
func (o *ValidationObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.violations = append(o.violations, fmt.Sprintf("error occurred: %v", err))
}

// GetViolations returns all validation violations
func (o *ValidationObserver) GetViolations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make([]string, len(o.violations))
	copy(result, o.violations)
	return result
}

// HasViolations returns whether any violations occurred
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset resets the validation state
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.runID = ""
	o.lastPhase = nil
	o.violations = make([]string, 0)
}
