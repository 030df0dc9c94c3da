package ussdflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/ussdflow/pkg/compiler"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/export"
	"github.com/aretw0/ussdflow/pkg/flow"
)

// CreateProject stores a new project. The graph may be nil and is not
// validated until code is generated.
func (b *Builder) CreateProject(ctx context.Context, name, description string, g *flow.Graph) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	p := domain.NewProject(name, description, g, b.now())
	if err := b.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	b.logger.Info("project created", "id", p.ID, "name", p.Name)
	b.emit(ctx, domain.EventProjectCreated, p, nil, 0)
	return p, nil
}

// GetProject returns the project with id or domain.ErrProjectNotFound.
func (b *Builder) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return b.store.Load(ctx, id)
}

// ListProjects returns every project, oldest first.
func (b *Builder) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return b.store.List(ctx)
}

// UpdateProject applies patch to the project with id. Concurrent updates
// of the same project are serialized.
func (b *Builder) UpdateProject(ctx context.Context, id string, patch domain.Patch) (*domain.Project, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, ErrNameRequired
	}

	var updated *domain.Project
	err := b.locks.WithLock(ctx, id, func(ctx context.Context) error {
		p, err := b.store.Load(ctx, id)
		if err != nil {
			return err
		}
		diff := patch.Apply(p, b.now())
		if err := b.store.Save(ctx, p); err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		updated = p

		attrs := []any{"id", id}
		if diff != nil {
			attrs = append(attrs,
				"nodes_added", len(diff.AddedNodes),
				"nodes_removed", len(diff.RemovedNodes),
				"nodes_changed", len(diff.ChangedNodes),
				"edges_added", len(diff.AddedEdges),
				"edges_removed", len(diff.RemovedEdges),
			)
		}
		b.logger.Info("project updated", attrs...)
		b.emit(ctx, domain.EventProjectUpdated, p, diff, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProject removes the project with id. Unlike the store, deleting a
// missing project reports domain.ErrProjectNotFound.
func (b *Builder) DeleteProject(ctx context.Context, id string) error {
	return b.locks.WithLock(ctx, id, func(ctx context.Context) error {
		p, err := b.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := b.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		b.logger.Info("project deleted", "id", id)
		b.emit(ctx, domain.EventProjectDeleted, p, nil, 0)
		return nil
	})
}

// GenerateProject compiles the project's flow and stores the generated
// files with it. On failure the project is left unchanged.
func (b *Builder) GenerateProject(ctx context.Context, id string) (*domain.Project, *compiler.Program, error) {
	var (
		updated *domain.Project
		prog    *compiler.Program
	)
	err := b.locks.WithLock(ctx, id, func(ctx context.Context) error {
		p, err := b.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if p.Flow == nil {
			return ErrNoFlow
		}
		prog, err = b.Generate(p.Flow, p.Name)
		if err != nil {
			return err
		}
		p.Generated = prog.Files()
		p.UpdatedAt = b.now().UTC()
		if err := b.store.Save(ctx, p); err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		updated = p
		b.emit(ctx, domain.EventCodeGenerated, p, nil, prog.Len())
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, prog, nil
}

// ExportProject writes the project as a zip archive to w and returns the
// archive's file name. Code is generated first when the project has none.
func (b *Builder) ExportProject(ctx context.Context, id string, w io.Writer) (string, error) {
	p, err := b.store.Load(ctx, id)
	if err != nil {
		return "", err
	}
	if len(p.Generated) == 0 {
		if p, _, err = b.GenerateProject(ctx, id); err != nil {
			return "", err
		}
	}

	var flowJSON []byte
	if p.Flow != nil {
		if flowJSON, err = json.Marshal(p.Flow); err != nil {
			return "", fmt.Errorf("encode flow: %w", err)
		}
	}
	files, err := export.BundleFiles(p.Generated, flowJSON)
	if err != nil {
		return "", err
	}
	if err := export.WriteZip(w, files); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	b.logger.Info("project exported", "id", id, "files", len(files))
	return export.ArchiveName(p.Name), nil
}

// IsNotFound reports whether err means a project does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrProjectNotFound)
}

func (b *Builder) emit(ctx context.Context, typ domain.EventType, p *domain.Project, diff *domain.FlowDiff, files int) {
	b.hooks.Emit(ctx, &domain.ProjectEvent{
		Timestamp: b.now().UTC(),
		Type:      typ,
		ProjectID: p.ID,
		Name:      p.Name,
		Diff:      diff,
		Files:     files,
	})
}
