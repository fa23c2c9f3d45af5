// Package core provides the central types shared by both simulation backends:
// directions, lights, vehicles, per-direction queues and snapshots.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anggasct/crossing/pkg/utils"
)

// Direction is one of the four compass approaches to the intersection
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
	East  Direction = "E"
	West  Direction = "W"
)

// Directions lists every approach in display order
var Directions = [4]Direction{North, South, East, West}

func (d Direction) String() string {
	return string(d)
}

// Index returns the position of d in Directions, or -1
func (d Direction) Index() int {
	for i, dir := range Directions {
		if dir == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is one of the four approaches
func (d Direction) Valid() bool {
	return d.Index() >= 0
}

// ParseDirection accepts N, S, E, W (and O for Oeste) in any case
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NORTH":
		return North, nil
	case "S", "SOUTH":
		return South, nil
	case "E", "EAST":
		return East, nil
	case "W", "O", "WEST":
		return West, nil
	}
	return "", utils.NewConfigurationError("direction", fmt.Sprintf("unknown direction %q", s))
}

// LightState is the signal shown to one approach
type LightState int

const (
	// LightOff is reported when the state cannot be read (degraded snapshot)
	LightOff LightState = iota
	LightRed
	LightYellow
	LightGreen
)

func (l LightState) String() string {
	switch l {
	case LightRed:
		return "RED"
	case LightYellow:
		return "YELLOW"
	case LightGreen:
		return "GREEN"
	default:
		return "OFF"
	}
}

// MarshalJSON encodes the light by name
func (l LightState) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a light name; unknown names decode to LightOff
func (l *LightState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "RED":
		*l = LightRed
	case "YELLOW":
		*l = LightYellow
	case "GREEN":
		*l = LightGreen
	default:
		*l = LightOff
	}
	return nil
}

// Mode selects the concurrency backend
type Mode string

const (
	// ModeShared runs every worker against one memory space under a single lock
	ModeShared Mode = "shared"
	// ModeIsolated runs workers that only reach state through the shared-state store
	ModeIsolated Mode = "isolated"
)

// ParseMode accepts the backend names plus the threads/processes aliases
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shared", "threads", "thread":
		return ModeShared, nil
	case "isolated", "processes", "process":
		return ModeIsolated, nil
	}
	return "", utils.NewConfigurationError("mode", fmt.Sprintf("unknown mode %q", s))
}
