package state

import (
	"sync"
	"sync/atomic"

	"FlowSentinel/internal/detector"
	"FlowSentinel/internal/model"
)

// Store owns the operational state. Writes are serialised through the
// tracker; reads load the last published snapshot and never wait for a write.
type Store struct {
	mu      sync.Mutex
	tracker *detector.Tracker
	current atomic.Pointer[model.Snapshot]
}

// NewStore creates a Store backed by a fresh tracker.
func NewStore(th detector.Thresholds) *Store {
	s := &Store{tracker: detector.NewTracker(th)}
	initial := s.tracker.State()
	s.current.Store(&initial)
	return s
}

// Apply feeds one reading to the state machine and publishes the result.
// On error nothing is published and the previous snapshot stays current.
func (s *Store) Apply(r model.Reading) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, events, err := s.tracker.Apply(r)
	if err != nil {
		return nil, err
	}
	s.current.Store(&snap)
	return events, nil
}

// Snapshot returns a copy of the most recently published state.
func (s *Store) Snapshot() model.Snapshot {
	return *s.current.Load()
}
