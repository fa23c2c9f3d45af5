package crossing

import (
	"sync"
)

// Session owns the current simulation of an interactive front end. Reset discards
// the running engine and replaces it with a brand-new one built from the same
// configuration; observers are carried over to the new engine.
type Session struct {
	mutex     sync.Mutex
	cfg       Config
	observers []Observer
	sim       Simulation
}

// NewSession builds the first simulation without starting it
func NewSession(cfg Config, obs ...Observer) (*Session, error) {
	sim, err := New(cfg, obs...)
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg:       cfg,
		observers: obs,
		sim:       sim,
	}, nil
}

// Simulation returns the current engine
func (s *Session) Simulation() Simulation {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.sim
}

// Start starts the current engine
func (s *Session) Start() error {
	return s.Simulation().Start()
}

// Stop stops the current engine
func (s *Session) Stop() error {
	return s.Simulation().Stop()
}

// Snapshot reads the current engine
func (s *Session) Snapshot() Snapshot {
	return s.Simulation().Snapshot()
}

// Done reports when the current engine's workers have exited
func (s *Session) Done() <-chan struct{} {
	return s.Simulation().Done()
}

// Reset stops the current engine and installs a fresh, unstarted one
func (s *Session) Reset() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.sim.Stop(); err != nil {
		return err
	}
	sim, err := New(s.cfg, s.observers...)
	if err != nil {
		return err
	}
	s.sim = sim
	return nil
}
