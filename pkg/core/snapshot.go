package core

import (
	"math"
	"time"

	"github.com/samber/lo"
)

// DirectionStats is the observable state of one approach
type DirectionStats struct {
	Light       LightState `json:"light"`
	QueueLength int        `json:"queue_length"`
	Arrivals    int        `json:"arrivals"`
	Crossed     int        `json:"crossed"`
	// AverageWait is in seconds
	AverageWait float64 `json:"average_wait"`
}

// RoundedWait returns the average wait rounded to two decimals for display
func (s DirectionStats) RoundedWait() float64 {
	return math.Round(s.AverageWait*100) / 100
}

// Snapshot is a point-in-time, internally consistent copy of the intersection.
// Each call to Simulation.Snapshot returns a fresh value.
type Snapshot struct {
	RunID      string                       `json:"run_id"`
	Mode       Mode                         `json:"mode"`
	Cycle      int                          `json:"cycle"`
	Phase      int                          `json:"phase"`
	Directions map[Direction]DirectionStats `json:"directions"`
	Running    bool                         `json:"running"`
	Ended      bool                         `json:"ended"`
	Offline    bool                         `json:"offline"`
	// Elapsed is set once the controller has finished
	Elapsed time.Duration `json:"elapsed"`
	TakenAt time.Time     `json:"taken_at"`
}

// OfflineSnapshot returns the degraded snapshot reported once state is gone
func OfflineSnapshot(runID string, mode Mode) Snapshot {
	dirs := make(map[Direction]DirectionStats, len(Directions))
	for _, d := range Directions {
		dirs[d] = DirectionStats{Light: LightOff}
	}
	return Snapshot{
		RunID:      runID,
		Mode:       mode,
		Directions: dirs,
		Offline:    true,
		TakenAt:    time.Now(),
	}
}

// Stats returns the counters of d
func (s Snapshot) Stats(d Direction) DirectionStats {
	return s.Directions[d]
}

// Light returns the light shown to d
func (s Snapshot) Light(d Direction) LightState {
	return s.Directions[d].Light
}

// TotalCrossed sums crossings over every direction
func (s Snapshot) TotalCrossed() int {
	return lo.SumBy(lo.Values(s.Directions), func(st DirectionStats) int {
		return st.Crossed
	})
}
