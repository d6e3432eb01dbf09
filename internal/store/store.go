package store

import (
	"sync"
	"sync/atomic"

	"github.com/stacklok/jobtracker/internal/applications"
)

// Transition computes the next snapshot from the current one.
type Transition func(*Snapshot) (*Snapshot, error)

// Store publishes the current Snapshot and applies transitions one at a time.
// Reads never block.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// New returns a store holding the empty snapshot.
func New() *Store {
	s := &Store{}
	s.current.Store(Empty())
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Apply runs fn against the current snapshot and publishes its result. The
// result is published whenever it is non-nil, even alongside an error, so
// partial refreshes are kept.
func (s *Store) Apply(fn Transition) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(fn)
}

// ApplyGuarded is Apply restricted to a still-current incarnation of g.ID.
// When the record was removed, or removed and re-created, since the guard was
// taken nothing is applied and a not-found error is returned.
func (s *Store) ApplyGuarded(g Guard, fn Transition) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.current.Load()
	if !cur.Holds(g) {
		return cur, applications.NewNotFoundError(g.ID)
	}
	return s.applyLocked(fn)
}

func (s *Store) applyLocked(fn Transition) (*Snapshot, error) {
	cur := s.current.Load()
	next, err := fn(cur)
	if next == nil {
		return cur, err
	}
	s.current.Store(next)
	return next, err
}
