package sharedmem_test

import (
	"errors"
	"testing"
	"time"

	"github.com/anggasct/crossing/pkg/config"
	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/observers"
	"github.com/anggasct/crossing/pkg/sharedmem"
	"github.com/anggasct/crossing/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(cycles int, p float64) config.Config {
	cfg := config.Default()
	cfg.Cycles = cycles
	cfg.ArrivalProbability = p
	cfg.Seed = 7
	cfg.Timing = core.Timing{
		Tick:   10 * time.Millisecond,
		Green:  200 * time.Millisecond,
		Yellow: 100 * time.Millisecond,
	}
	return cfg
}

func waitDone(t *testing.T, sim core.Simulation) {
	t.Helper()
	select {
	case <-sim.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("simulation did not finish")
	}
}

func TestEngine_SingleCycleScenario(t *testing.T) {
	rec := observers.NewRecordingObserver()
	val := observers.NewValidationObserver()
	e := sharedmem.New(testConfig(1, 1.0), rec, val)

	require.NoError(t, e.Start())
	waitDone(t, e)

	snap := e.Snapshot()
	assert.True(t, snap.Ended)
	assert.False(t, snap.Running)
	assert.False(t, snap.Offline)
	assert.Equal(t, 1, snap.Cycle)
	assert.Equal(t, 1, snap.Phase)
	assert.GreaterOrEqual(t, snap.Elapsed, 300*time.Millisecond)

	assert.Greater(t, snap.Stats(core.North).Crossed, 0)
	assert.Greater(t, snap.Stats(core.South).Crossed, 0)

	assert.Equal(t,
		[]core.LightState{core.LightRed, core.LightGreen, core.LightYellow, core.LightRed},
		rec.LightHistory(core.North))
	assert.Equal(t,
		[]core.LightState{core.LightRed, core.LightGreen},
		rec.LightHistory(core.East), "east stays red for all of phase 0")

	assert.Equal(t, 1, rec.Started())
	assert.Len(t, rec.Ended(), 1)
	assert.False(t, val.HasViolations(), val.GetViolations())

	require.NoError(t, e.Stop())
}

func TestEngine_SnapshotInvariants(t *testing.T) {
	cfg := testConfig(2, 0.5)
	cfg.Timing.Green = 60 * time.Millisecond
	cfg.Timing.Yellow = 30 * time.Millisecond
	e := sharedmem.New(cfg)

	require.NoError(t, e.Start())
	defer e.Stop()

	require.Eventually(t, func() bool {
		return e.Snapshot().Light(core.North) == core.LightGreen
	}, time.Second, time.Millisecond, "first phase applied")

	lastCrossed := make(map[core.Direction]int)
	for {
		snap := e.Snapshot()
		require.Len(t, snap.Directions, 4)

		for _, d := range core.Directions {
			st := snap.Stats(d)
			assert.GreaterOrEqual(t, st.Crossed, lastCrossed[d], "crossed is non-decreasing")
			assert.Equal(t, st.Arrivals-st.Crossed, st.QueueLength)
			assert.GreaterOrEqual(t, st.AverageWait, 0.0)
			if st.Crossed == 0 {
				assert.Equal(t, 0.0, st.AverageWait)
			}
			lastCrossed[d] = st.Crossed
		}

		ns, ew := snap.Light(core.North), snap.Light(core.East)
		assert.Equal(t, ns, snap.Light(core.South), "a pair always shares its light")
		assert.Equal(t, ew, snap.Light(core.West), "a pair always shares its light")
		assert.True(t, ns == core.LightRed || ew == core.LightRed, "never both pairs open")
		assert.False(t, ns == core.LightRed && ew == core.LightRed, "never both pairs red")

		if snap.Ended {
			break
		}
		time.Sleep(3 * time.Millisecond)
	}
	waitDone(t, e)
}

func TestEngine_NoArrivals(t *testing.T) {
	cfg := testConfig(2, 0)
	cfg.Timing.Green = 40 * time.Millisecond
	cfg.Timing.Yellow = 20 * time.Millisecond
	rec := observers.NewRecordingObserver()
	e := sharedmem.New(cfg, rec)

	require.NoError(t, e.Start())
	waitDone(t, e)

	snap := e.Snapshot()
	assert.Equal(t, 2, snap.Cycle)
	for _, d := range core.Directions {
		assert.Equal(t, 0, snap.Stats(d).Crossed)
		assert.Equal(t, 0, snap.Stats(d).Arrivals)
		assert.Equal(t, 0.0, snap.Stats(d).AverageWait)
		assert.Empty(t, rec.Arrived(d))
	}
	require.NoError(t, e.Stop())
}

func TestEngine_UniqueVehicleIDs(t *testing.T) {
	rec := observers.NewRecordingObserver()
	cfg := testConfig(1, 1.0)
	cfg.Timing.Green = 50 * time.Millisecond
	cfg.Timing.Yellow = 20 * time.Millisecond
	e := sharedmem.New(cfg, rec)

	require.NoError(t, e.Start())
	waitDone(t, e)
	require.NoError(t, e.Stop())

	seen := make(map[int64]bool)
	for _, d := range core.Directions {
		for _, v := range rec.Arrived(d) {
			assert.False(t, seen[v.ID], "duplicate id %d", v.ID)
			seen[v.ID] = true
		}
	}
	assert.NotEmpty(t, seen)
}

func TestEngine_Lifecycle(t *testing.T) {
	t.Run("Snapshot before start reports the initial state", func(t *testing.T) {
		e := sharedmem.New(testConfig(1, 1))
		snap := e.Snapshot()
		assert.False(t, snap.Offline)
		assert.False(t, snap.Running)
		assert.Equal(t, 0, snap.Cycle)
		assert.Equal(t, core.ModeShared, snap.Mode)
		for _, d := range core.Directions {
			assert.Equal(t, core.LightRed, snap.Light(d))
		}
	})

	t.Run("Start twice fails", func(t *testing.T) {
		e := sharedmem.New(testConfig(1, 1))
		require.NoError(t, e.Start())
		defer e.Stop()
		assert.True(t, errors.Is(e.Start(), utils.ErrAlreadyStarted))
	})

	t.Run("Stop cancels a long run and releases state", func(t *testing.T) {
		rec := observers.NewRecordingObserver()
		e := sharedmem.New(testConfig(1000, 0.5), rec)
		require.NoError(t, e.Start())
		time.Sleep(50 * time.Millisecond)

		start := time.Now()
		require.NoError(t, e.Stop())
		assert.Less(t, time.Since(start), time.Second)

		select {
		case <-e.Done():
		default:
			t.Fatal("done must be closed after stop")
		}

		snap := e.Snapshot()
		assert.True(t, snap.Offline)
		for _, d := range core.Directions {
			assert.Equal(t, core.LightOff, snap.Light(d))
			assert.Equal(t, 0, snap.Stats(d).Crossed)
			assert.Equal(t, 0, snap.Stats(d).QueueLength)
		}
		assert.Len(t, rec.Ended(), 1)
		assert.NoError(t, e.Stop(), "stop is idempotent")
	})

	t.Run("Stop before start", func(t *testing.T) {
		e := sharedmem.New(testConfig(1, 1))
		require.NoError(t, e.Stop())
		assert.True(t, e.Snapshot().Offline)
		assert.True(t, errors.Is(e.Start(), utils.ErrStopped))
	})

	t.Run("Each engine has its own run id", func(t *testing.T) {
		a := sharedmem.New(testConfig(1, 1))
		b := sharedmem.New(testConfig(1, 1))
		assert.NotEqual(t, a.Info().RunID, b.Info().RunID)
		assert.Equal(t, core.ModeShared, a.Info().Mode)
	})
}
