package ports

import (
	"context"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// ProjectStore defines the interface for persisting builder projects.
// Implementations store and return copies: a caller never shares memory
// with the store.
type ProjectStore interface {
	// Save creates or replaces the project with p.ID.
	Save(ctx context.Context, p *domain.Project) error

	// Load retrieves a project by id.
	// Returns domain.ErrProjectNotFound if the project does not exist.
	Load(ctx context.Context, id string) (*domain.Project, error)

	// Delete removes a project. Deleting a missing project is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every project, oldest first; ties are broken by id.
	List(ctx context.Context) ([]*domain.Project, error)
}
