package core

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/anggasct/crossing/pkg/utils"
)

// Timing holds the fixed durations of one run
type Timing struct {
	Tick   time.Duration `yaml:"tick" json:"tick"`
	Green  time.Duration `yaml:"green" json:"green"`
	Yellow time.Duration `yaml:"yellow" json:"yellow"`
}

// Validate rejects non-positive durations
func (t Timing) Validate() error {
	ec := utils.NewErrorCollector()
	if t.Tick <= 0 {
		ec.Add(utils.NewConfigurationError("tick", "tick must be positive").WithDetail("value", t.Tick))
	}
	if t.Green <= 0 {
		ec.Add(utils.NewConfigurationError("green", "green duration must be positive").WithDetail("value", t.Green))
	}
	if t.Yellow <= 0 {
		ec.Add(utils.NewConfigurationError("yellow", "yellow duration must be positive").WithDetail("value", t.Yellow))
	}
	return ec.Err()
}

// ArrivalSource decides, once per tick, whether a vehicle arrives
type ArrivalSource interface {
	Arrive() bool
}

type randomArrivals struct {
	p   float64
	rnd *rand.Rand
}

// NewArrivalSource returns a source that arrives with probability p.
// The same seed always yields the same sequence.
func NewArrivalSource(p float64, seed uint64) ArrivalSource {
	return &randomArrivals{
		p:   p,
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (a *randomArrivals) Arrive() bool {
	if a.p <= 0 {
		return false
	}
	if a.p >= 1 {
		return true
	}
	return a.rnd.Float64() < a.p
}

// DirectionSeed derives a per-direction seed so each worker owns an independent stream
func DirectionSeed(seed uint64, d Direction) uint64 {
	return seed*31 + uint64(d.Index()+1)
}

// Barrier is a one-shot rendezvous: Await blocks until every party has arrived
type Barrier struct {
	arrived sync.WaitGroup
}

// NewBarrier creates a barrier for parties participants
func NewBarrier(parties int) *Barrier {
	b := &Barrier{}
	b.arrived.Add(parties)
	return b
}

// Await marks the caller as arrived and waits for the others
func (b *Barrier) Await() {
	b.arrived.Done()
	b.arrived.Wait()
}
