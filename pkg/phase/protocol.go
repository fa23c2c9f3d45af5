package phase

import (
	"time"
)

// Driver is the backend side of the cycle protocol. Each method runs as one
// critical section of the backend's exclusion primitive.
type Driver interface {
	// ApplyPhase applies the controller's current phase to all four queues atomically
	ApplyPhase() error
	// SetYellow turns the current green pair yellow
	SetYellow() error
	// AdvancePhase advances the controller, applies the new phase and returns the completed cycle count
	AdvancePhase() (cycle int, err error)
	// Alive reports the liveness flag
	Alive() bool
	// Finish records the elapsed time, marks the run ended and clears liveness
	Finish(elapsed time.Duration) error
}

// Hold waits for duration, polling the driver's liveness every tick.
// It returns false as soon as the run is cancelled.
func Hold(d Driver, duration, tick time.Duration) bool {
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if !d.Alive() {
			return false
		}
		time.Sleep(tick)
	}
	return d.Alive()
}

// Result summarises a finished controller run
type Result struct {
	Cycles    int
	Elapsed   time.Duration
	Cancelled bool
}

// Run drives the controller until cyclesTarget cycles completed or the run is cancelled.
// Finish is always called, even when an earlier step failed.
func Run(d Driver, green, yellow, tick time.Duration, cyclesTarget int) (res Result, err error) {
	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
		if ferr := d.Finish(res.Elapsed); err == nil {
			err = ferr
		}
	}()

	if err = d.ApplyPhase(); err != nil {
		return res, err
	}

	for res.Cycles < cyclesTarget {
		if !Hold(d, green, tick) {
			res.Cancelled = true
			return res, nil
		}

		if err = d.SetYellow(); err != nil {
			return res, err
		}

		if !Hold(d, yellow, tick) {
			res.Cancelled = true
			return res, nil
		}

		if res.Cycles, err = d.AdvancePhase(); err != nil {
			return res, err
		}
	}

	return res, nil
}
