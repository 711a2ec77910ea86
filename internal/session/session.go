// Package session holds the datasets attached to a single analysis run.
//
// All query operations take a Session (or a dataset obtained from one)
// explicitly; there is no package-level dataset state, so two sessions
// can run concurrently against different data without interfering.
package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// Session is a named collection of loaded datasets. It is safe for
// concurrent use.
type Session struct {
	id uuid.UUID

	mu       sync.RWMutex
	datasets map[string]*dataset.Dataset
}

// New creates an empty session with a fresh identifier.
func New() *Session {
	return &Session{
		id:       uuid.New(),
		datasets: make(map[string]*dataset.Dataset),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Attach registers a dataset under the given name. Attaching a name that
// is already present replaces the previous dataset.
func (s *Session) Attach(name string, ds *dataset.Dataset) error {
	if name == "" {
		return fmt.Errorf("dataset name must not be empty")
	}
	if ds == nil {
		return fmt.Errorf("dataset %q is nil", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[name] = ds
	return nil
}

// Dataset returns the dataset attached under name.
func (s *Session) Dataset(name string) (*dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[name]
	if !ok {
		return nil, fmt.Errorf("no dataset attached as %q", name)
	}
	return ds, nil
}

// Detach removes the dataset attached under name, if any.
func (s *Session) Detach(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datasets, name)
}

// Names returns the attached dataset names in sorted order.
func (s *Session) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
