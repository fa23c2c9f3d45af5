package core

import "time"

// Parties is the number of workers in a run: one per direction plus the controller
const Parties = len(Directions) + 1

// Simulation is the engine contract consumed by renderers and the CLI
type Simulation interface {
	// Start launches every worker
	Start() error
	// Stop cancels the run and blocks until every worker has exited and resources are released
	Stop() error
	// Snapshot returns a consistent copy of the intersection; it never fails
	Snapshot() Snapshot
	// Done is closed once every worker has exited
	Done() <-chan struct{}
	// Info describes the run
	Info() RunInfo
}

// RunInfo identifies one run
type RunInfo struct {
	RunID        string    `json:"run_id"`
	Mode         Mode      `json:"mode"`
	CyclesTarget int       `json:"cycles_target"`
	Timing       Timing    `json:"timing"`
	Arrival      float64   `json:"arrival_probability"`
	StartedAt    time.Time `json:"started_at"`
}
