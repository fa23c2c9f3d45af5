package crossing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/anggasct/crossing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickConfig(mode crossing.Mode) crossing.Config {
	cfg := crossing.DefaultConfig()
	cfg.Mode = mode
	cfg.Cycles = 1
	cfg.Seed = 3
	cfg.ArrivalProbability = 1
	cfg.Timing.Tick = 5 * time.Millisecond
	cfg.Timing.Green = 40 * time.Millisecond
	cfg.Timing.Yellow = 20 * time.Millisecond
	return cfg
}

func TestNew(t *testing.T) {
	for _, mode := range []crossing.Mode{crossing.ModeShared, crossing.ModeIsolated} {
		t.Run(string(mode), func(t *testing.T) {
			sim, err := crossing.New(quickConfig(mode))
			require.NoError(t, err)
			require.NoError(t, sim.Start())

			select {
			case <-sim.Done():
			case <-time.After(5 * time.Second):
				t.Fatal("simulation did not finish")
			}

			snap := sim.Snapshot()
			assert.True(t, snap.Ended)
			assert.Equal(t, mode, snap.Mode)
			assert.Equal(t, 1, snap.Cycle)
			require.NoError(t, sim.Stop())
		})
	}

	t.Run("unknown mode", func(t *testing.T) {
		_, err := crossing.New(quickConfig("gpu"))
		assert.True(t, errors.Is(err, crossing.ErrNotImplemented))
	})
}

func TestSession_Reset(t *testing.T) {
	cfg := quickConfig(crossing.ModeShared)
	cfg.Cycles = 100
	metrics := crossing.NewMetricsObserver()

	s, err := crossing.NewSession(cfg, metrics)
	require.NoError(t, err)
	first := s.Simulation().Info().RunID

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		return s.Snapshot().TotalCrossed() > 0
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Reset())
	assert.NotEqual(t, first, s.Simulation().Info().RunID)

	snap := s.Snapshot()
	assert.False(t, snap.Running)
	assert.False(t, snap.Offline)
	assert.Equal(t, 0, snap.Cycle)
	assert.Equal(t, 0, snap.TotalCrossed(), "nothing survives a reset")
	for _, d := range []crossing.Direction{crossing.North, crossing.South, crossing.East, crossing.West} {
		assert.Equal(t, crossing.LightRed, snap.Light(d))
	}

	require.NoError(t, s.Start())
	assert.True(t, errors.Is(s.Start(), crossing.ErrAlreadyStarted))
	require.NoError(t, s.Stop())
	assert.True(t, s.Snapshot().Offline)
}

func TestSession_ResetStartsObserversFresh(t *testing.T) {
	for _, mode := range []crossing.Mode{crossing.ModeShared, crossing.ModeIsolated} {
		t.Run(string(mode), func(t *testing.T) {
			validator := crossing.NewValidationObserver()
			metrics := crossing.NewMetricsObserver()

			s, err := crossing.NewSession(quickConfig(mode), validator, metrics)
			require.NoError(t, err)

			finish := func() {
				select {
				case <-s.Done():
				case <-time.After(5 * time.Second):
					t.Fatal("simulation did not finish")
				}
			}

			require.NoError(t, s.Start())
			finish()
			require.False(t, validator.HasViolations(), validator.GetViolations())

			require.NoError(t, s.Reset())
			require.NoError(t, s.Start())
			finish()
			require.NoError(t, s.Stop())

			assert.False(t, validator.HasViolations(), validator.GetViolations())
			visits := metrics.GetPhaseVisitCounts()
			assert.Equal(t, 1, visits[0], "only the second run is counted")
			assert.Equal(t, 1, visits[1])
		})
	}
}
