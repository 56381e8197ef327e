package state

import "sync"

// Store serializes command dispatch for concurrent readers and writers.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore creates a store holding the initial state.
func NewStore() *Store {
	return &Store{state: Initial()}
}

// Dispatch applies cmd and returns the new snapshot.
func (s *Store) Dispatch(cmd Command) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Apply(s.state, cmd)
	return s.state
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
