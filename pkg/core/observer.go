package core

import (
	"fmt"
	"sync"
	"time"
)

// Observer receives controller notifications
type Observer interface {
	// OnPhaseApplied is called after a phase has been applied to all four approaches
	OnPhaseApplied(event PhaseEvent)

	// OnLightChanged is called for every approach whose light changed
	OnLightChanged(event LightEvent)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver interface {
	Observer

	// OnRunStarted is called once per run, before any worker leaves the start barrier
	OnRunStarted(info RunInfo)

	// OnRunEnded is called when the controller finishes
	OnRunEnded(info RunInfo, elapsed time.Duration)

	// OnVehicleArrived is called when a vehicle joins a queue
	OnVehicleArrived(v Vehicle)

	// OnVehicleCrossed is called when a vehicle leaves its queue
	OnVehicleCrossed(v Vehicle, wait time.Duration)

	// OnError is called for worker and cleanup errors
	OnError(err error)
}

// BaseObserver provides a default implementation with no-op methods
type BaseObserver struct{}

func (o *BaseObserver) OnPhaseApplied(event PhaseEvent)                {}
func (o *BaseObserver) OnLightChanged(event LightEvent)                {}
func (o *BaseObserver) OnRunStarted(info RunInfo)                      {}
func (o *BaseObserver) OnRunEnded(info RunInfo, elapsed time.Duration) {}
func (o *BaseObserver) OnVehicleArrived(v Vehicle)                     {}
func (o *BaseObserver) OnVehicleCrossed(v Vehicle, wait time.Duration) {}
func (o *BaseObserver) OnError(err error)                              {}

// ObserverManager fans notifications out to a set of observers.
// Observers run on the notifying worker, never inside a critical section,
// and a panicking observer is reported through OnError instead of crashing the worker.
type ObserverManager struct {
	observers []Observer
	mutex     sync.RWMutex
}

// NewObserverManager creates a new observer manager
func NewObserverManager(observers ...Observer) *ObserverManager {
	om := &ObserverManager{
		observers: make([]Observer, 0, len(observers)),
	}
	for _, o := range observers {
		om.AddObserver(o)
	}
	return om
}

// AddObserver adds an observer to the manager
func (om *ObserverManager) AddObserver(observer Observer) {
	if observer == nil {
		return
	}
	om.mutex.Lock()
	defer om.mutex.Unlock()
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager) RemoveObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			break
		}
	}
}

func (om *ObserverManager) snapshot() []Observer {
	om.mutex.RLock()
	defer om.mutex.RUnlock()
	observers := make([]Observer, len(om.observers))
	copy(observers, om.observers)
	return observers
}

// each calls fn for every observer, recovering panics
func (om *ObserverManager) each(hook string, fn func(Observer)) {
	for _, observer := range om.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if extObs, ok := observer.(ExtendedObserver); ok && hook != "OnError" {
						func() {
							defer func() { recover() }()
							extObs.OnError(fmt.Errorf("observer panic in %s: %v", hook, r))
						}()
					}
				}
			}()
			fn(observer)
		}()
	}
}

// eachExtended is each restricted to ExtendedObserver implementations
func (om *ObserverManager) eachExtended(hook string, fn func(ExtendedObserver)) {
	om.each(hook, func(o Observer) {
		if extObs, ok := o.(ExtendedObserver); ok {
			fn(extObs)
		}
	})
}

// NotifyPhaseApplied notifies all observers of a phase application
func (om *ObserverManager) NotifyPhaseApplied(event PhaseEvent) {
	om.each("OnPhaseApplied", func(o Observer) { o.OnPhaseApplied(event) })
}

// NotifyLightChanges turns recorded changes into events and notifies all observers
func (om *ObserverManager) NotifyLightChanges(runID string, cycle int, changes []LightChange) {
	for _, c := range changes {
		event := NewLightEvent(runID, c.Direction, c.From, c.To, cycle)
		om.each("OnLightChanged", func(o Observer) { o.OnLightChanged(event) })
	}
}

// NotifyRunStarted notifies all observers that the run started
func (om *ObserverManager) NotifyRunStarted(info RunInfo) {
	om.eachExtended("OnRunStarted", func(o ExtendedObserver) { o.OnRunStarted(info) })
}

// NotifyRunEnded notifies all observers that the controller finished
func (om *ObserverManager) NotifyRunEnded(info RunInfo, elapsed time.Duration) {
	om.eachExtended("OnRunEnded", func(o ExtendedObserver) { o.OnRunEnded(info, elapsed) })
}

// NotifyVehicleArrived notifies all observers of an arrival
func (om *ObserverManager) NotifyVehicleArrived(v Vehicle) {
	om.eachExtended("OnVehicleArrived", func(o ExtendedObserver) { o.OnVehicleArrived(v) })
}

// NotifyVehicleCrossed notifies all observers of a crossing
func (om *ObserverManager) NotifyVehicleCrossed(v Vehicle, wait time.Duration) {
	om.eachExtended("OnVehicleCrossed", func(o ExtendedObserver) { o.OnVehicleCrossed(v, wait) })
}

// NotifyError notifies all observers of errors
func (om *ObserverManager) NotifyError(err error) {
	if err == nil {
		return
	}
	om.eachExtended("OnError", func(o ExtendedObserver) { o.OnError(err) })
}
