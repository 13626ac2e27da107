package catalog

import "sync/atomic"

// Store publishes the current snapshot to concurrent readers. Reloads build a
// complete new snapshot and swap the pointer atomically; readers that already
// hold a snapshot keep using it until their query finishes.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store publishing the given snapshot.
func NewStore(snap *Snapshot) *Store {
	s := &Store{}
	s.current.Store(snap)
	return s
}

// Current returns the currently published snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap publishes a new snapshot, returning the previous one.
func (s *Store) Swap(snap *Snapshot) *Snapshot {
	return s.current.Swap(snap)
}

// ReloadFile loads a fresh snapshot from path and publishes it. On load
// failure the previous snapshot stays published.
func (s *Store) ReloadFile(path string) (*Snapshot, error) {
	snap, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}
