package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// Store implements ports.ProjectStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Project
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Project),
	}
}

// Save stores a copy of the project.
func (s *Store) Save(ctx context.Context, p *domain.Project) error {
	copied := p.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[p.ID] = copied
	return nil
}

// Load returns a copy so callers can't mutate the stored project by pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p.Clone(), nil
}

// Delete removes the project.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns copies of every project, oldest first.
func (s *Store) List(ctx context.Context) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]*domain.Project, 0, len(s.data))
	for _, p := range s.data {
		projects = append(projects, p.Clone())
	}
	slices.SortFunc(projects, domain.CompareCreated)
	return projects, nil
}
