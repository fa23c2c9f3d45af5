package visualization

import (
	"fmt"
	"io"
	"strings"

	"github.com/anggasct/crossing/pkg/core"
)

// DirectionLine formats one approach, e.g. "N: light=GREEN | queue=3 | crossed=5 | avg_wait=0.42s"
func DirectionLine(d core.Direction, st core.DirectionStats) string {
	return fmt.Sprintf("%s: light=%s | queue=%d | crossed=%d | avg_wait=%.2fs",
		d, st.Light, st.QueueLength, st.Crossed, st.RoundedWait())
}

// Header summarises the run state of a snapshot
func Header(snap core.Snapshot) string {
	status := "idle"
	switch {
	case snap.Offline:
		status = "offline"
	case snap.Ended:
		status = "ended"
	case snap.Running:
		status = "running"
	}
	return fmt.Sprintf("[%s] cycle=%d phase=%d status=%s", snap.Mode, snap.Cycle, snap.Phase, status)
}

// RenderSnapshot formats the header and one line per direction in display order
func RenderSnapshot(snap core.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(Header(snap))
	sb.WriteString("\n")
	for _, d := range core.Directions {
		sb.WriteString(DirectionLine(d, snap.Stats(d)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Reconciler derives crossings from the Crossed counters of consecutive snapshots.
// The counters are authoritative, so no departure is ever missed between polls.
type Reconciler struct {
	runID string
	last  map[core.Direction]int
}

// NewReconciler creates a reconciler with no baseline
func NewReconciler() *Reconciler {
	return &Reconciler{last: make(map[core.Direction]int)}
}

// Observe returns how many vehicles crossed per direction since the previous snapshot.
// A new run id or an offline snapshot restarts the baseline.
func (r *Reconciler) Observe(snap core.Snapshot) map[core.Direction]int {
	deltas := make(map[core.Direction]int, len(core.Directions))
	if snap.Offline {
		return deltas
	}
	if snap.RunID != r.runID {
		r.runID = snap.RunID
		r.last = make(map[core.Direction]int)
	}

	for _, d := range core.Directions {
		crossed := snap.Stats(d).Crossed
		if delta := crossed - r.last[d]; delta > 0 {
			deltas[d] = delta
		}
		r.last[d] = crossed
	}
	return deltas
}

// Panel writes rendered snapshots to w and keeps a running crossing total per direction
type Panel struct {
	w          io.Writer
	reconciler *Reconciler
	totals     map[core.Direction]int
}

// NewPanel creates a panel writing to w
func NewPanel(w io.Writer) *Panel {
	return &Panel{
		w:          w,
		reconciler: NewReconciler(),
		totals:     make(map[core.Direction]int),
	}
}

// Render prints the snapshot and returns the crossings observed since the last call
func (p *Panel) Render(snap core.Snapshot) (map[core.Direction]int, error) {
	deltas := p.reconciler.Observe(snap)
	for d, n := range deltas {
		p.totals[d] += n
	}
	_, err := io.WriteString(p.w, RenderSnapshot(snap))
	return deltas, err
}

// Totals returns the crossings reconciled so far
func (p *Panel) Totals() map[core.Direction]int {
	out := make(map[core.Direction]int, len(p.totals))
	for d, n := range p.totals {
		out[d] = n
	}
	return out
}
