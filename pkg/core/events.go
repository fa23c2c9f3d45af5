package core

import (
	"time"

	"github.com/google/uuid"
)

// PhaseEvent is emitted each time the controller applies a phase
type PhaseEvent struct {
	ID        string
	RunID     string
	Phase     int
	Cycle     int
	Green     []Direction
	Red       []Direction
	Timestamp time.Time
}

// NewPhaseEvent creates a phase event stamped with a fresh id
func NewPhaseEvent(runID string, phase, cycle int, green, red []Direction) PhaseEvent {
	return PhaseEvent{
		ID:        uuid.New().String(),
		RunID:     runID,
		Phase:     phase,
		Cycle:     cycle,
		Green:     green,
		Red:       red,
		Timestamp: time.Now(),
	}
}

// LightEvent is emitted when one approach changes light
type LightEvent struct {
	ID        string
	RunID     string
	Direction Direction
	From      LightState
	To        LightState
	Cycle     int
	Timestamp time.Time
}

// NewLightEvent creates a light event stamped with a fresh id
func NewLightEvent(runID string, d Direction, from, to LightState, cycle int) LightEvent {
	return LightEvent{
		ID:        uuid.New().String(),
		RunID:     runID,
		Direction: d,
		From:      from,
		To:        to,
		Cycle:     cycle,
		Timestamp: time.Now(),
	}
}

// LightChange is a pending light transition recorded inside a critical section
// and turned into a LightEvent once the lock is released
type LightChange struct {
	Direction Direction
	From      LightState
	To        LightState
}
