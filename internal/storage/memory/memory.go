// Package memory implements the storage backend as an in-process map of
// session documents.
package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fieldpath/planner/internal/session"
)

// ErrNotFound is returned when no trajectory with the requested name is
// stored.
var ErrNotFound = errors.New("trajectory not found")

// Store holds trajectories in memory.
type Store struct {
	mu    sync.RWMutex
	items map[string]session.Document
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{items: make(map[string]session.Document)}
}

// SaveTrajectory stores a deep copy of the session under name, replacing
// any previous entry.
func (st *Store) SaveTrajectory(name string, s *session.Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.items[name] = s.ToDocument()
	return nil
}

// LoadTrajectory rebuilds a session from the stored document.
func (st *Store) LoadTrajectory(name string) (*session.Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	doc, ok := st.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return session.Restore(doc.Path, doc.Markers), nil
}

// List returns the stored trajectory names in sorted order.
func (st *Store) List() ([]string, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	names := make([]string, 0, len(st.items))
	for name := range st.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op for the in-memory store.
func (st *Store) Close() error {
	return nil
}
