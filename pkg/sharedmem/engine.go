// Package sharedmem implements the shared-memory backend: every worker is a goroutine
// operating on the same queue set and controller, all guarded by one mutex.
package sharedmem

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anggasct/crossing/pkg/config"
	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/phase"
	"github.com/anggasct/crossing/pkg/utils"
	"github.com/google/uuid"
)

// Engine is the shared-memory simulation. Construct a fresh one per run.
type Engine struct {
	cfg       config.Config
	info      core.RunInfo
	observers *core.ObserverManager

	// mutex guards every field below it. It is never held across a sleep and
	// never acquired twice by the same goroutine.
	mutex      sync.Mutex
	queues     core.Queues
	controller *phase.Controller
	nextID     int64
	ended      bool
	elapsed    time.Duration
	released   bool

	alive atomic.Bool

	lifecycle sync.Mutex
	started   bool
	stopped   bool
	wg        sync.WaitGroup
	done      chan struct{}
	doneOnce  sync.Once
}

var _ core.Simulation = (*Engine)(nil)

// New creates an engine for cfg. The configuration is expected to be validated.
func New(cfg config.Config, observers ...core.Observer) *Engine {
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}
	return &Engine{
		cfg: cfg,
		info: core.RunInfo{
			RunID:        uuid.New().String(),
			Mode:         core.ModeShared,
			CyclesTarget: cfg.Cycles,
			Timing:       cfg.Timing,
			Arrival:      cfg.ArrivalProbability,
		},
		observers:  core.NewObserverManager(observers...),
		queues:     core.NewQueues(),
		controller: phase.NewController(),
		done:       make(chan struct{}),
	}
}

// Info describes the run
func (e *Engine) Info() core.RunInfo {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	return e.info
}

// AddObserver registers an observer; call it before Start
func (e *Engine) AddObserver(o core.Observer) {
	e.observers.AddObserver(o)
}

// Start launches the four direction workers and the controller
func (e *Engine) Start() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.stopped {
		return utils.ErrStopped.WithComponent("sharedmem")
	}
	if e.started {
		return utils.ErrAlreadyStarted.WithComponent("sharedmem")
	}
	e.started = true
	e.info.StartedAt = time.Now()
	e.alive.Store(true)

	barrier := core.NewBarrier(core.Parties)
	for _, d := range core.Directions {
		source := core.NewArrivalSource(e.cfg.ArrivalProbability, core.DirectionSeed(e.cfg.Seed, d))
		e.wg.Add(1)
		go e.runDirection(d, source, barrier)
	}

	e.wg.Add(1)
	go e.runController(barrier, e.info)

	go func() {
		e.wg.Wait()
		e.closeDone()
	}()

	return nil
}

// Stop clears the liveness flag, waits for every worker and releases the state.
// Snapshots taken afterwards are offline snapshots.
func (e *Engine) Stop() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.stopped {
		return nil
	}
	e.stopped = true
	e.alive.Store(false)
	e.wg.Wait()

	e.mutex.Lock()
	e.queues = nil
	e.controller = nil
	e.released = true
	e.mutex.Unlock()

	e.closeDone()
	return nil
}

// Done is closed once every worker has exited
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) closeDone() {
	e.doneOnce.Do(func() { close(e.done) })
}

// Snapshot copies every field under the lock
func (e *Engine) Snapshot() core.Snapshot {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.released {
		return core.OfflineSnapshot(e.info.RunID, core.ModeShared)
	}

	snap := core.Snapshot{
		RunID:      e.info.RunID,
		Mode:       core.ModeShared,
		Cycle:      e.controller.Cycle,
		Phase:      e.controller.PhaseIndex,
		Directions: make(map[core.Direction]core.DirectionStats, len(e.queues)),
		Running:    e.alive.Load(),
		Ended:      e.ended,
		Elapsed:    e.elapsed,
		TakenAt:    time.Now(),
	}
	for d, q := range e.queues {
		snap.Directions[d] = q.Stats()
	}
	return snap
}

func (e *Engine) runDirection(d core.Direction, source core.ArrivalSource, barrier *core.Barrier) {
	defer e.wg.Done()
	barrier.Await()

	for e.alive.Load() {
		arrived, crossed, wait, ok := e.tick(d, source, time.Now())
		if ok {
			if arrived != nil {
				e.observers.NotifyVehicleArrived(*arrived)
			}
			if crossed != nil {
				e.observers.NotifyVehicleCrossed(*crossed, wait)
			}
		}
		time.Sleep(e.cfg.Timing.Tick)
	}
}

// tick performs one arrival-then-departure step as a single critical section
func (e *Engine) tick(d core.Direction, source core.ArrivalSource, now time.Time) (arrived, crossed *core.Vehicle, wait time.Duration, ok bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.released {
		return nil, nil, 0, false
	}
	q := e.queues[d]

	if source.Arrive() {
		e.nextID++
		v := core.NewVehicle(e.nextID, d, now)
		q.Enqueue(v)
		arrived = &v
	}

	if v, ok := q.AdvanceOne(now); ok {
		crossed = &v
		wait = v.WaitTime(now)
	}
	return arrived, crossed, wait, true
}

func (e *Engine) runController(barrier *core.Barrier, info core.RunInfo) {
	defer e.wg.Done()
	// announced before the barrier opens so no vehicle event precedes it
	e.observers.NotifyRunStarted(info)
	barrier.Await()

	t := e.cfg.Timing
	res, err := phase.Run(&driver{e: e}, t.Green, t.Yellow, t.Tick, e.cfg.Cycles)
	if err != nil {
		e.observers.NotifyError(utils.NewWorkerError("controller", err))
	}
	e.observers.NotifyRunEnded(info, res.Elapsed)
}

// driver exposes the engine's critical sections to the phase protocol
type driver struct {
	e *Engine
}

func (d *driver) ApplyPhase() error {
	e := d.e
	e.mutex.Lock()
	changes := e.controller.Apply(e.queues)
	event := e.controller.Event(e.info.RunID)
	e.mutex.Unlock()

	e.observers.NotifyLightChanges(e.info.RunID, event.Cycle, changes)
	e.observers.NotifyPhaseApplied(event)
	return nil
}

func (d *driver) SetYellow() error {
	e := d.e
	e.mutex.Lock()
	changes := e.controller.Yellow(e.queues)
	cycle := e.controller.Cycle
	e.mutex.Unlock()

	e.observers.NotifyLightChanges(e.info.RunID, cycle, changes)
	return nil
}

func (d *driver) AdvancePhase() (int, error) {
	e := d.e
	e.mutex.Lock()
	e.controller.Advance()
	changes := e.controller.Apply(e.queues)
	event := e.controller.Event(e.info.RunID)
	e.mutex.Unlock()

	e.observers.NotifyLightChanges(e.info.RunID, event.Cycle, changes)
	e.observers.NotifyPhaseApplied(event)
	return event.Cycle, nil
}

func (d *driver) Alive() bool {
	return d.e.alive.Load()
}

func (d *driver) Finish(elapsed time.Duration) error {
	e := d.e
	e.mutex.Lock()
	e.ended = true
	e.elapsed = elapsed
	e.mutex.Unlock()

	e.alive.Store(false)
	return nil
}
