package visualization_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/visualization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(runID string, crossedN int) core.Snapshot {
	return core.Snapshot{
		RunID:   runID,
		Mode:    core.ModeShared,
		Cycle:   2,
		Phase:   1,
		Running: true,
		Directions: map[core.Direction]core.DirectionStats{
			core.North: {Light: core.LightRed, QueueLength: 3, Arrivals: 3 + crossedN, Crossed: crossedN, AverageWait: 0.4167},
			core.South: {Light: core.LightRed},
			core.East:  {Light: core.LightGreen, Crossed: 1, Arrivals: 1, AverageWait: 0.1},
			core.West:  {Light: core.LightGreen},
		},
	}
}

func TestDirectionLine(t *testing.T) {
	line := visualization.DirectionLine(core.North, core.DirectionStats{
		Light: core.LightGreen, QueueLength: 3, Crossed: 5, AverageWait: 0.41666,
	})
	assert.Equal(t, "N: light=GREEN | queue=3 | crossed=5 | avg_wait=0.42s", line)
}

func TestRenderSnapshot(t *testing.T) {
	out := visualization.RenderSnapshot(sampleSnapshot("r1", 5))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "[shared] cycle=2 phase=1 status=running", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "N: light=RED"))
	assert.True(t, strings.HasPrefix(lines[4], "W: light=GREEN"))

	offline := visualization.RenderSnapshot(core.OfflineSnapshot("r1", core.ModeIsolated))
	assert.Contains(t, offline, "status=offline")
	assert.Contains(t, offline, "S: light=OFF | queue=0 | crossed=0 | avg_wait=0.00s")
}

func TestReconciler(t *testing.T) {
	r := visualization.NewReconciler()

	first := r.Observe(sampleSnapshot("r1", 5))
	assert.Equal(t, 5, first[core.North])
	assert.Equal(t, 1, first[core.East])

	second := r.Observe(sampleSnapshot("r1", 9))
	assert.Equal(t, 4, second[core.North], "a burst between polls is counted in full")
	assert.Zero(t, second[core.East])

	assert.Empty(t, r.Observe(core.OfflineSnapshot("r1", core.ModeShared)))

	fresh := r.Observe(sampleSnapshot("r2", 2))
	assert.Equal(t, 2, fresh[core.North], "a new run starts from zero")
}

func TestPanel(t *testing.T) {
	var buf bytes.Buffer
	p := visualization.NewPanel(&buf)

	_, err := p.Render(sampleSnapshot("r1", 2))
	require.NoError(t, err)
	deltas, err := p.Render(sampleSnapshot("r1", 6))
	require.NoError(t, err)

	assert.Equal(t, 4, deltas[core.North])
	assert.Equal(t, 6, p.Totals()[core.North])
	assert.Equal(t, 2, strings.Count(buf.String(), "cycle=2"))
}

func TestDOTGeneration(t *testing.T) {
	dot, err := visualization.NewDOTGenerator().Generate()
	require.NoError(t, err)

	assert.Contains(t, dot, "digraph PhaseCycle")
	assert.Contains(t, dot, "N/S GREEN\\nE/W RED\\n(initial)")
	assert.Contains(t, dot, "\"phase0\" -> \"phase0_yellow\"")
	assert.Contains(t, dot, "\"phase1_yellow\" -> \"phase0\"")
	assert.NotContains(t, dot, "gold")
}

func TestDOTGeneration_Options(t *testing.T) {
	opts := visualization.ForSnapshot(sampleSnapshot("r1", 0))
	opts.ShowYellow = false
	dot, err := visualization.NewDOTGenerator(opts).Generate()
	require.NoError(t, err)

	assert.NotContains(t, dot, "yellow")
	assert.Contains(t, dot, "\"phase0\" -> \"phase1\" [label=\"cycle++\"]")
	assert.Contains(t, dot, "\"phase1\" [style=\"filled\" fillcolor=gold")

	offline := visualization.ForSnapshot(core.OfflineSnapshot("r1", core.ModeShared))
	assert.Equal(t, -1, offline.CurrentPhase)
}

func TestDOTGenerateToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.dot")
	require.NoError(t, visualization.NewDOTGenerator().GenerateToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph PhaseCycle")
}
