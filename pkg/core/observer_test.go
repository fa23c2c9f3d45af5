package core_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anggasct/crossing/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	core.BaseObserver
	mutex   sync.Mutex
	phases  int
	lights  []core.LightEvent
	errors  []error
	crossed int
}

func (o *countingObserver) OnPhaseApplied(event core.PhaseEvent) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.phases++
}

func (o *countingObserver) OnLightChanged(event core.LightEvent) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.lights = append(o.lights, event)
}

func (o *countingObserver) OnVehicleCrossed(v core.Vehicle, wait time.Duration) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.crossed++
}

func (o *countingObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.errors = append(o.errors, err)
}

type panickingObserver struct {
	core.BaseObserver
}

func (o *panickingObserver) OnPhaseApplied(event core.PhaseEvent) {
	panic("observer exploded")
}

// basicObserver only implements the required methods
type basicObserver struct {
	phases int
}

func (o *basicObserver) OnPhaseApplied(event core.PhaseEvent) { o.phases++ }
func (o *basicObserver) OnLightChanged(event core.LightEvent) {}

func TestObserverManager(t *testing.T) {
	t.Run("Notifies every observer", func(t *testing.T) {
		a, b := &countingObserver{}, &basicObserver{}
		om := core.NewObserverManager(a, b, nil)

		om.NotifyPhaseApplied(core.NewPhaseEvent("run", 0, 0, nil, nil))
		om.NotifyVehicleCrossed(core.Vehicle{ID: 1}, time.Second)

		assert.Equal(t, 1, a.phases)
		assert.Equal(t, 1, a.crossed)
		assert.Equal(t, 1, b.phases)
	})

	t.Run("Light changes become events", func(t *testing.T) {
		a := &countingObserver{}
		om := core.NewObserverManager(a)

		om.NotifyLightChanges("run", 3, []core.LightChange{
			{Direction: core.North, From: core.LightRed, To: core.LightGreen},
			{Direction: core.East, From: core.LightGreen, To: core.LightRed},
		})

		require.Len(t, a.lights, 2)
		assert.Equal(t, core.North, a.lights[0].Direction)
		assert.Equal(t, core.LightGreen, a.lights[0].To)
		assert.Equal(t, 3, a.lights[1].Cycle)
		assert.NotEqual(t, a.lights[0].ID, a.lights[1].ID)
	})

	t.Run("Panics are reported and do not stop delivery", func(t *testing.T) {
		bad := &panickingObserver{}
		good := &countingObserver{}
		om := core.NewObserverManager(good, bad)
		om.AddObserver(good)

		assert.NotPanics(t, func() {
			om.NotifyPhaseApplied(core.NewPhaseEvent("run", 1, 1, nil, nil))
		})
		assert.Equal(t, 2, good.phases)
	})

	t.Run("Remove observer", func(t *testing.T) {
		a := &countingObserver{}
		om := core.NewObserverManager(a)
		om.RemoveObserver(a)
		om.NotifyPhaseApplied(core.NewPhaseEvent("run", 0, 0, nil, nil))
		assert.Equal(t, 0, a.phases)
	})

	t.Run("Nil errors are not delivered", func(t *testing.T) {
		a := &countingObserver{}
		om := core.NewObserverManager(a)
		om.NotifyError(nil)
		om.NotifyError(errors.New("tick failed"))
		assert.Len(t, a.errors, 1)
	})
}
