package isolated

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/anggasct/crossing/pkg/config"
	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/phase"
	"github.com/anggasct/crossing/pkg/utils"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Engine is the isolated-worker simulation. Construct a fresh one per run.
type Engine struct {
	cfg       config.Config
	info      core.RunInfo
	observers *core.ObserverManager
	logger    *log.Logger

	store *Store
	cells cells

	lifecycle sync.Mutex
	started   bool
	stopped   bool
	done      chan struct{}
	doneOnce  sync.Once
}

var _ core.Simulation = (*Engine)(nil)

// New creates the store and seeds it with four red queues, a fresh controller and
// a run record that is not yet alive.
func New(cfg config.Config, observers ...core.Observer) (*Engine, error) {
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}

	store := NewStore()
	e := &Engine{
		cfg: cfg,
		info: core.RunInfo{
			RunID:        uuid.New().String(),
			Mode:         core.ModeIsolated,
			CyclesTarget: cfg.Cycles,
			Timing:       cfg.Timing,
			Arrival:      cfg.ArrivalProbability,
		},
		observers: core.NewObserverManager(observers...),
		logger:    log.Default().WithPrefix("isolated"),
		store:     store,
		cells:     newCells(store.Client("engine")),
		done:      make(chan struct{}),
	}

	err := e.cells.client.Atomically(func() error {
		if err := e.cells.run.Store(RunState{}); err != nil {
			return err
		}
		if err := e.cells.controller.Store(*phase.NewController()); err != nil {
			return err
		}
		return e.cells.storeQueues(core.NewQueues())
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return e, nil
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

// SetLogger replaces the logger used for teardown diagnostics
func (e *Engine) SetLogger(l *log.Logger) {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	e.logger = l
}

// Start marks the run alive and launches the five workers
func (e *Engine) Start() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.stopped {
		return utils.ErrStopped.WithComponent("isolated")
	}
	if e.started {
		return utils.ErrAlreadyStarted.WithComponent("isolated")
	}

	startedAt := time.Now()
	err := e.cells.run.Modify(func(r *RunState) error {
		r.Alive = true
		r.StartedAt = startedAt
		return nil
	})
	if err != nil {
		return err
	}
	e.started = true
	e.info.StartedAt = startedAt

	g := new(errgroup.Group)
	for i, d := range core.Directions {
		w := &directionWorker{
			direction: d,
			namespace: int64(i + 1),
			source:    core.NewArrivalSource(e.cfg.ArrivalProbability, core.DirectionSeed(e.cfg.Seed, d)),
			tick:      e.cfg.Timing.Tick,
			cells:     newCells(e.store.Client("direction-" + d.String())),
			observers: e.observers,
		}
		g.Go(w.run)
	}

	info := e.info
	ctrl := &controllerWorker{
		runID:     info.RunID,
		cells:     newCells(e.store.Client("controller")),
		observers: e.observers,
	}
	g.Go(func() error {
		e.observers.NotifyRunStarted(info)
		if err := ctrl.cells.client.Await(startBarrier, core.Parties); err != nil {
			return utils.NewWorkerError("controller", err)
		}
		t := e.cfg.Timing
		res, err := phase.Run(ctrl, t.Green, t.Yellow, t.Tick, e.cfg.Cycles)
		e.observers.NotifyRunEnded(info, res.Elapsed)
		if err != nil {
			return utils.NewWorkerError("controller", err)
		}
		return nil
	})

	go func() {
		if err := g.Wait(); err != nil {
			e.observers.NotifyError(err)
		}
		e.closeDone()
	}()

	return nil
}

// Stop clears liveness in the store, joins the workers and tears the store down.
// A failing teardown is logged and otherwise ignored.
func (e *Engine) Stop() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.stopped {
		return nil
	}
	e.stopped = true

	if e.started {
		err := e.cells.run.Modify(func(r *RunState) error {
			r.Alive = false
			return nil
		})
		if err != nil {
			e.logger.Warn("could not clear liveness", "run", e.info.RunID, "err", err)
		}
		<-e.done
	}

	if err := e.store.Close(); err != nil {
		e.logger.Warn("store teardown failed", "run", e.info.RunID, "err", err)
	}
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

// Snapshot reads the run record, controller and queues in one locked section
func (e *Engine) Snapshot() core.Snapshot {
	var snap core.Snapshot
	err := e.cells.client.Atomically(func() error {
		run, err := e.cells.run.Load()
		if err != nil {
			return err
		}
		ctrl, err := e.cells.controller.Load()
		if err != nil {
			return err
		}
		qs, err := e.cells.loadQueues()
		if err != nil {
			return err
		}

		snap = core.Snapshot{
			RunID:      e.info.RunID,
			Mode:       core.ModeIsolated,
			Cycle:      ctrl.Cycle,
			Phase:      ctrl.PhaseIndex,
			Directions: make(map[core.Direction]core.DirectionStats, len(qs)),
			Running:    run.Alive,
			Ended:      run.Ended,
			Elapsed:    run.Elapsed,
			TakenAt:    time.Now(),
		}
		for d, q := range qs {
			snap.Directions[d] = q.Stats()
		}
		return nil
	})
	if err != nil {
		return core.OfflineSnapshot(e.info.RunID, core.ModeIsolated)
	}
	return snap
}
