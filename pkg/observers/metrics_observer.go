package observers

import (
	"fmt"
	"sync"
	"time"

	"github.com/anggasct/crossing/pkg/core"
	"github.com/samber/lo"
)

// MetricsObserver collects counters about a run
type MetricsObserver struct {
	core.BaseObserver
	runID            string
	phaseVisits      map[int]int
	phaseTimeSpent   map[int]time.Duration
	lastPhaseEntry   map[int]time.Time
	arrivals         map[core.Direction]int
	crossings        map[core.Direction]int
	totalWait        map[core.Direction]time.Duration
	transitionCounts map[string]int
	errorCount       int
	mutex            sync.RWMutex
}

var _ core.ExtendedObserver = (*MetricsObserver)(nil)

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	o := &MetricsObserver{}
	o.Reset()
	return o
}

// OnRunStarted drops the counters of a previous run
func (o *MetricsObserver) OnRunStarted(info core.RunInfo) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if info.RunID != o.runID {
		o.reset()
		o.runID = info.RunID
	}
}

// OnPhaseApplied closes the previous phase's timer and opens the new one
func (o *MetricsObserver) OnPhaseApplied(event core.PhaseEvent) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.closePhases(event.Timestamp)
	o.phaseVisits[event.Phase]++
	o.lastPhaseEntry[event.Phase] = event.Timestamp
}

// OnRunEnded closes the open phase timer
func (o *MetricsObserver) OnRunEnded(info core.RunInfo, elapsed time.Duration) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.closePhases(time.Now())
}

func (o *MetricsObserver) closePhases(now time.Time) {
	for p, entry := range o.lastPhaseEntry {
		o.phaseTimeSpent[p] += now.Sub(entry)
		delete(o.lastPhaseEntry, p)
	}
}

// OnLightChanged records light transition counts
func (o *MetricsObserver) OnLightChanged(event core.LightEvent) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.transitionCounts[fmt.Sprintf("%s->%s", event.From, event.To)]++
}

// OnVehicleArrived records an arrival
func (o *MetricsObserver) OnVehicleArrived(v core.Vehicle) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.arrivals[v.Origin]++
}

// OnVehicleCrossed records a crossing and its wait
func (o *MetricsObserver) OnVehicleCrossed(v core.Vehicle, wait time.Duration) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.crossings[v.Origin]++
	o.totalWait[v.Origin] += wait
}

// OnError records error metrics
func (o *MetricsObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.errorCount++
}

// GetPhaseVisitCounts returns how many times each phase was applied
func (o *MetricsObserver) GetPhaseVisitCounts() map[int]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.phaseVisits)
}

// GetPhaseTimeSpent returns the time spent in each closed phase
func (o *MetricsObserver) GetPhaseTimeSpent() map[int]time.Duration {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.phaseTimeSpent)
}

// GetArrivals returns arrivals per direction
func (o *MetricsObserver) GetArrivals() map[core.Direction]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.arrivals)
}

// GetCrossings returns crossings per direction
func (o *MetricsObserver) GetCrossings() map[core.Direction]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.crossings)
}

// GetAverageWait returns the mean wait of crossed vehicles from d
func (o *MetricsObserver) GetAverageWait(d core.Direction) time.Duration {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	if o.crossings[d] == 0 {
		return 0
	}
	return o.totalWait[d] / time.Duration(o.crossings[d])
}

// GetTransitionCounts returns counts keyed by "FROM->TO"
func (o *MetricsObserver) GetTransitionCounts() map[string]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.transitionCounts)
}

// GetErrorCount returns the number of errors
func (o *MetricsObserver) GetErrorCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.errorCount
}

// Reset resets all metrics
func (o *MetricsObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.reset()
	o.runID = ""
}

func (o *MetricsObserver) reset() {
	o.phaseVisits = make(map[int]int)
	o.phaseTimeSpent = make(map[int]time.Duration)
	o.lastPhaseEntry = make(map[int]time.Time)
	o.arrivals = make(map[core.Direction]int)
	o.crossings = make(map[core.Direction]int)
	o.totalWait = make(map[core.Direction]time.Duration)
	o.transitionCounts = make(map[string]int)
	o.errorCount = 0
}
