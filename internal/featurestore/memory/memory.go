// Package memory provides a map-backed feature store, used in tests and for
// dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/leapstack-labs/leapfeat/internal/featurestore"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Store keeps source views and written views in memory.
type Store struct {
	mu      sync.RWMutex
	views   map[string]*core.Frame
	written map[string]*core.Frame
}

// New creates an empty store.
func New() *Store {
	return &Store{
		views:   make(map[string]*core.Frame),
		written: make(map[string]*core.Frame),
	}
}

// Put seeds a source feature view.
func (s *Store) Put(view string, rows *core.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[view] = rows
}

// ReadFeatureView implements core.FeatureStore.
func (s *Store) ReadFeatureView(_ context.Context, view core.FeatureView, columns []string) (*core.Frame, error) {
	s.mu.RLock()
	rows, ok := s.views[view.Name]
	if !ok {
		rows, ok = s.written[view.Name]
	}
	s.mu.RUnlock()

	if !ok {
		return nil, &featurestore.ErrNotFound{View: view.Name, Hint: "seed the view with Put before running"}
	}
	return featurestore.Project(rows, view, columns)
}

// WriteToOfflineStore implements core.FeatureStore. Writing a view replaces
// its previous contents.
func (s *Store) WriteToOfflineStore(_ context.Context, rows *core.Frame, view core.FeatureView) error {
	if err := featurestore.ValidateViewName(view); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written[view.Name] = rows
	return nil
}

// Written returns the frame last written for view.
func (s *Store) Written(view string) (*core.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.written[view]
	return f, ok
}

// WrittenViews returns the names of every written view.
func (s *Store) WrittenViews() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.written))
	for name := range s.written {
		names = append(names, name)
	}
	return names
}

var _ core.FeatureStore = (*Store)(nil)
