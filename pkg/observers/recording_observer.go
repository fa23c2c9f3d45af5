package observers

import (
	"sync"
	"time"

	"github.com/anggasct/crossing/pkg/core"
)

// RecordingObserver captures every notification; it backs tests and offline analysis
type RecordingObserver struct {
	mutex   sync.RWMutex
	phases  []core.PhaseEvent
	lights  []core.LightEvent
	arrived []core.Vehicle
	crossed []core.Vehicle
	waits   []time.Duration
	errors  []error
	started []core.RunInfo
	ended   []time.Duration
}

var _ core.ExtendedObserver = (*RecordingObserver)(nil)

// NewRecordingObserver creates an empty recorder
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (o *RecordingObserver) OnPhaseApplied(event core.PhaseEvent) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.phases = append(o.phases, event)
}

func (o *RecordingObserver) OnLightChanged(event core.LightEvent) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.lights = append(o.lights, event)
}

func (o *RecordingObserver) OnRunStarted(info core.RunInfo) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.started = append(o.started, info)
}

func (o *RecordingObserver) OnRunEnded(info core.RunInfo, elapsed time.Duration) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.ended = append(o.ended, elapsed)
}

func (o *RecordingObserver) OnVehicleArrived(v core.Vehicle) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.arrived = append(o.arrived, v)
}

func (o *RecordingObserver) OnVehicleCrossed(v core.Vehicle, wait time.Duration) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.crossed = append(o.crossed, v)
	o.waits = append(o.waits, wait)
}

func (o *RecordingObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.errors = append(o.errors, err)
}

// Phases returns every applied phase in notification order
func (o *RecordingObserver) Phases() []core.PhaseEvent {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]core.PhaseEvent(nil), o.phases...)
}

// LightHistory returns the sequence of lights shown to d, starting with the light
// it had before the first recorded change
func (o *RecordingObserver) LightHistory(d core.Direction) []core.LightState {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	var history []core.LightState
	for _, ev := range o.lights {
		if ev.Direction != d {
			continue
		}
		if len(history) == 0 {
			history = append(history, ev.From)
		}
		history = append(history, ev.To)
	}
	return history
}

// Arrived returns the vehicles that joined d's queue
func (o *RecordingObserver) Arrived(d core.Direction) []core.Vehicle {
	return o.vehicles(o.arrivedList(), d)
}

// Crossed returns the vehicles that left d's queue
func (o *RecordingObserver) Crossed(d core.Direction) []core.Vehicle {
	return o.vehicles(o.crossedList(), d)
}

func (o *RecordingObserver) arrivedList() []core.Vehicle {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]core.Vehicle(nil), o.arrived...)
}

func (o *RecordingObserver) crossedList() []core.Vehicle {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]core.Vehicle(nil), o.crossed...)
}

func (o *RecordingObserver) vehicles(all []core.Vehicle, d core.Direction) []core.Vehicle {
	var out []core.Vehicle
	for _, v := range all {
		if v.Origin == d {
			out = append(out, v)
		}
	}
	return out
}

// Errors returns every reported error
func (o *RecordingObserver) Errors() []error {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]error(nil), o.errors...)
}

// Started reports how many runs announced their start
func (o *RecordingObserver) Started() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.started)
}

// Ended returns the elapsed times reported at the end of each run
func (o *RecordingObserver) Ended() []time.Duration {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]time.Duration(nil), o.ended...)
}
