// Package phase implements the two-phase traffic-light controller and the
// per-cycle protocol both simulation backends drive it with.
package phase

import (
	"github.com/anggasct/crossing/pkg/core"
	"github.com/samber/lo"
)

// Phase is one entry of the fixed schedule
type Phase struct {
	Index int
	Green []core.Direction
	Red   []core.Direction
}

// IsGreen reports whether d belongs to the phase's green pair
func (p Phase) IsGreen(d core.Direction) bool {
	return lo.Contains(p.Green, d)
}

// Table is the static schedule: phase 0 gives N/S green, phase 1 gives E/W green
var Table = [2]Phase{
	{Index: 0, Green: []core.Direction{core.North, core.South}, Red: []core.Direction{core.East, core.West}},
	{Index: 1, Green: []core.Direction{core.East, core.West}, Red: []core.Direction{core.North, core.South}},
}

// Controller holds the phase index and the number of completed cycles.
// It holds no queue data; Apply and Yellow write light state into the queues it is given.
type Controller struct {
	PhaseIndex int `json:"phase_index"`
	Cycle      int `json:"cycle"`
}

// NewController creates a controller at phase 0, cycle 0
func NewController() *Controller {
	return &Controller{}
}

// Current returns the active phase
func (c *Controller) Current() Phase {
	return Table[c.PhaseIndex%len(Table)]
}

// Advance flips the phase and completes one cycle. It is always legal.
func (c *Controller) Advance() Phase {
	c.PhaseIndex = (c.PhaseIndex + 1) % len(Table)
	c.Cycle++
	return c.Current()
}

// Apply sets the current green pair GREEN and the other pair RED.
// It is idempotent and returns only the lights that actually changed.
func (c *Controller) Apply(queues core.Queues) []core.LightChange {
	p := c.Current()
	changes := make([]core.LightChange, 0, len(core.Directions))
	for _, d := range core.Directions {
		q, ok := queues[d]
		if !ok {
			continue
		}
		target := core.LightRed
		if p.IsGreen(d) {
			target = core.LightGreen
		}
		if prev := q.SetLight(target); prev != target {
			changes = append(changes, core.LightChange{Direction: d, From: prev, To: target})
		}
	}
	return changes
}

// Yellow sets the current green pair YELLOW; red approaches stay red
func (c *Controller) Yellow(queues core.Queues) []core.LightChange {
	changes := make([]core.LightChange, 0, 2)
	for _, d := range c.Current().Green {
		q, ok := queues[d]
		if !ok {
			continue
		}
		if prev := q.SetLight(core.LightYellow); prev != core.LightYellow {
			changes = append(changes, core.LightChange{Direction: d, From: prev, To: core.LightYellow})
		}
	}
	return changes
}

// Event builds the notification for the phase currently applied
func (c *Controller) Event(runID string) core.PhaseEvent {
	p := c.Current()
	return core.NewPhaseEvent(runID, p.Index, c.Cycle, p.Green, p.Red)
}
