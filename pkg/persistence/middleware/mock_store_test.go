package middleware_test

import (
	"context"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data  map[string]*domain.Project
	order []string
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Project),
	}
}

func (s *MockStore) Save(ctx context.Context, p *domain.Project) error {
	if _, ok := s.data[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.data[p.ID] = p
	return nil
}

func (s *MockStore) Load(ctx context.Context, id string) (*domain.Project, error) {
	p, ok := s.data[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p, nil
}

func (s *MockStore) Delete(ctx context.Context, id string) error {
	delete(s.data, id)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]*domain.Project, error) {
	out := make([]*domain.Project, 0, len(s.data))
	for _, id := range s.order {
		if p, ok := s.data[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

var _ ports.ProjectStore = (*MockStore)(nil)
