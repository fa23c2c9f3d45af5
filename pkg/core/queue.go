package core

import "time"

// Vehicle is an immutable arrival record
type Vehicle struct {
	ID          int64     `json:"id"`
	Origin      Direction `json:"origin"`
	ArrivalTime time.Time `json:"arrival_time"`
}

// NewVehicle creates a vehicle that arrived at t
func NewVehicle(id int64, origin Direction, t time.Time) Vehicle {
	return Vehicle{ID: id, Origin: origin, ArrivalTime: t}
}

// WaitTime returns how long the vehicle has waited at now, never negative
func (v Vehicle) WaitTime(now time.Time) time.Duration {
	wait := now.Sub(v.ArrivalTime)
	if wait < 0 {
		return 0
	}
	return wait
}

// DirectionQueue holds the FIFO queue, light and crossing statistics of one approach.
// It does no locking; callers hold the applicable exclusion before mutating it.
type DirectionQueue struct {
	Direction Direction  `json:"direction"`
	Light     LightState `json:"light"`
	Vehicles  []Vehicle  `json:"vehicles"`
	Arrivals  int        `json:"arrivals"`
	Crossed   int        `json:"crossed"`
	// TotalWait is the accumulated wait of crossed vehicles, in seconds
	TotalWait float64 `json:"total_wait"`
}

// NewDirectionQueue creates an empty queue showing red
func NewDirectionQueue(d Direction) *DirectionQueue {
	return &DirectionQueue{
		Direction: d,
		Light:     LightRed,
		Vehicles:  make([]Vehicle, 0),
	}
}

// Enqueue appends v to the tail. The queue is unbounded.
func (q *DirectionQueue) Enqueue(v Vehicle) {
	q.Vehicles = append(q.Vehicles, v)
	q.Arrivals++
}

// Len returns the number of waiting vehicles
func (q *DirectionQueue) Len() int {
	return len(q.Vehicles)
}

// CanAdvance reports whether the head vehicle may cross
func (q *DirectionQueue) CanAdvance() bool {
	return q.Light == LightGreen && len(q.Vehicles) > 0
}

// AdvanceOne lets at most one vehicle cross and returns it
func (q *DirectionQueue) AdvanceOne(now time.Time) (Vehicle, bool) {
	if !q.CanAdvance() {
		return Vehicle{}, false
	}

	v := q.Vehicles[0]
	q.Vehicles[0] = Vehicle{}
	q.Vehicles = q.Vehicles[1:]

	q.Crossed++
	q.TotalWait += v.WaitTime(now).Seconds()
	return v, true
}

// AverageWait returns the mean wait of crossed vehicles in seconds, 0 if none crossed
func (q *DirectionQueue) AverageWait() float64 {
	if q.Crossed == 0 {
		return 0
	}
	return q.TotalWait / float64(q.Crossed)
}

// SetLight changes the light and returns the previous one
func (q *DirectionQueue) SetLight(l LightState) LightState {
	prev := q.Light
	q.Light = l
	return prev
}

// Clone returns a deep copy
func (q *DirectionQueue) Clone() *DirectionQueue {
	c := *q
	c.Vehicles = make([]Vehicle, len(q.Vehicles))
	copy(c.Vehicles, q.Vehicles)
	return &c
}

// Stats returns the observable counters of the queue
func (q *DirectionQueue) Stats() DirectionStats {
	return DirectionStats{
		Light:       q.Light,
		QueueLength: len(q.Vehicles),
		Arrivals:    q.Arrivals,
		Crossed:     q.Crossed,
		AverageWait: q.AverageWait(),
	}
}

// Queues is the full set of approaches of one run
type Queues map[Direction]*DirectionQueue

// NewQueues creates one red, empty queue per direction
func NewQueues() Queues {
	qs := make(Queues, len(Directions))
	for _, d := range Directions {
		qs[d] = NewDirectionQueue(d)
	}
	return qs
}
