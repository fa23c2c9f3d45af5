package isolated

import (
	"time"

	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/phase"
	"github.com/anggasct/crossing/pkg/utils"
)

const (
	runKey        = "run"
	controllerKey = "controller"
	startBarrier  = "start"
)

func queueKey(d core.Direction) string {
	return "queue/" + d.String()
}

// RunState is the run-wide record kept in the store
type RunState struct {
	Alive     bool          `json:"alive"`
	Ended     bool          `json:"ended"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// cells groups the typed views one worker holds
type cells struct {
	client     *Client
	run        Cell[RunState]
	controller Cell[phase.Controller]
	queues     map[core.Direction]Cell[core.DirectionQueue]
}

func newCells(c *Client) cells {
	cs := cells{
		client:     c,
		run:        NewCell[RunState](c, runKey),
		controller: NewCell[phase.Controller](c, controllerKey),
		queues:     make(map[core.Direction]Cell[core.DirectionQueue], len(core.Directions)),
	}
	for _, d := range core.Directions {
		cs.queues[d] = NewCell[core.DirectionQueue](c, queueKey(d))
	}
	return cs
}

// loadQueues reads copies of all four queues; the caller holds the lock
func (cs cells) loadQueues() (core.Queues, error) {
	qs := make(core.Queues, len(cs.queues))
	for d, cell := range cs.queues {
		q, err := cell.Load()
		if err != nil {
			return nil, err
		}
		qs[d] = &q
	}
	return qs, nil
}

// storeQueues writes every queue back; the caller holds the lock
func (cs cells) storeQueues(qs core.Queues) error {
	for d, q := range qs {
		if err := cs.queues[d].Store(*q); err != nil {
			return err
		}
	}
	return nil
}

// directionWorker owns one approach. Its vehicle ids live in their own namespace so
// no counter has to be shared with the other workers.
type directionWorker struct {
	direction core.Direction
	namespace int64
	seq       int64
	source    core.ArrivalSource
	tick      time.Duration
	cells     cells
	observers *core.ObserverManager
}

func (w *directionWorker) nextID() int64 {
	w.seq++
	return w.namespace<<32 | w.seq
}

func (w *directionWorker) run() error {
	if err := w.cells.client.Await(startBarrier, core.Parties); err != nil {
		return utils.NewWorkerError(w.cells.client.Name(), err)
	}

	for {
		alive, arrived, crossed, wait, err := w.step(time.Now())
		if err != nil {
			return utils.NewWorkerError(w.cells.client.Name(), err)
		}
		if !alive {
			return nil
		}
		if arrived != nil {
			w.observers.NotifyVehicleArrived(*arrived)
		}
		if crossed != nil {
			w.observers.NotifyVehicleCrossed(*crossed, wait)
		}
		time.Sleep(w.tick)
	}
}

// step is one locked section: check liveness, arrive, depart, write the queue back
func (w *directionWorker) step(now time.Time) (alive bool, arrived, crossed *core.Vehicle, wait time.Duration, err error) {
	err = w.cells.client.Atomically(func() error {
		run, err := w.cells.run.Load()
		if err != nil {
			return err
		}
		if !run.Alive {
			return nil
		}
		alive = true

		cell := w.cells.queues[w.direction]
		q, err := cell.Load()
		if err != nil {
			return err
		}

		if w.source.Arrive() {
			v := core.NewVehicle(w.nextID(), w.direction, now)
			q.Enqueue(v)
			arrived = &v
		}
		if v, ok := q.AdvanceOne(now); ok {
			crossed = &v
			wait = v.WaitTime(now)
		}
		return cell.Store(q)
	})
	return alive, arrived, crossed, wait, err
}

// controllerWorker drives the phase protocol against the store
type controllerWorker struct {
	runID     string
	cells     cells
	observers *core.ObserverManager
}

// mutatePhase loads the controller and all queues, applies fn and writes everything back
func (w *controllerWorker) mutatePhase(fn func(*phase.Controller, core.Queues) []core.LightChange) (core.PhaseEvent, []core.LightChange, error) {
	var (
		event   core.PhaseEvent
		changes []core.LightChange
	)
	err := w.cells.client.Atomically(func() error {
		ctrl, err := w.cells.controller.Load()
		if err != nil {
			return err
		}
		qs, err := w.cells.loadQueues()
		if err != nil {
			return err
		}

		changes = fn(&ctrl, qs)
		event = ctrl.Event(w.runID)

		if err := w.cells.controller.Store(ctrl); err != nil {
			return err
		}
		return w.cells.storeQueues(qs)
	})
	return event, changes, err
}

func (w *controllerWorker) ApplyPhase() error {
	event, changes, err := w.mutatePhase(func(c *phase.Controller, qs core.Queues) []core.LightChange {
		return c.Apply(qs)
	})
	if err != nil {
		return err
	}
	w.observers.NotifyLightChanges(w.runID, event.Cycle, changes)
	w.observers.NotifyPhaseApplied(event)
	return nil
}

func (w *controllerWorker) SetYellow() error {
	event, changes, err := w.mutatePhase(func(c *phase.Controller, qs core.Queues) []core.LightChange {
		return c.Yellow(qs)
	})
	if err != nil {
		return err
	}
	w.observers.NotifyLightChanges(w.runID, event.Cycle, changes)
	return nil
}

func (w *controllerWorker) AdvancePhase() (int, error) {
	event, changes, err := w.mutatePhase(func(c *phase.Controller, qs core.Queues) []core.LightChange {
		c.Advance()
		return c.Apply(qs)
	})
	if err != nil {
		return 0, err
	}
	w.observers.NotifyLightChanges(w.runID, event.Cycle, changes)
	w.observers.NotifyPhaseApplied(event)
	return event.Cycle, nil
}

// Alive treats an unreadable run record as cancellation
func (w *controllerWorker) Alive() bool {
	run, err := w.cells.run.Load()
	return err == nil && run.Alive
}

func (w *controllerWorker) Finish(elapsed time.Duration) error {
	return w.cells.run.Modify(func(r *RunState) error {
		r.Alive = false
		r.Ended = true
		r.Elapsed = elapsed
		return nil
	})
}

var _ phase.Driver = (*controllerWorker)(nil)
