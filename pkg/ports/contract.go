package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractFlow() *flow.Graph {
	return &flow.Graph{
		Nodes: []flow.Node{
			{ID: "main", Type: flow.TypeMenuScreen, Data: flow.NodeData{
				Label: "Main",
				Properties: map[string]any{
					"title":   "Welcome",
					"options": []any{map[string]any{"text": "Bye", "nextStep": "bye"}},
				},
			}},
			{ID: "bye", Type: flow.TypeEndScreen, Data: flow.NodeData{Label: "Bye"}},
		},
		Edges: []flow.Edge{{ID: "e1", Source: "main", Target: "bye"}},
	}
}

// RunProjectStoreContract runs a suite of tests to verify that a ProjectStore
// implementation adheres to the defined interface contract. The store must be
// empty when the suite starts.
func RunProjectStoreContract(t *testing.T, store ProjectStore) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		p := domain.NewProject("Airtime", "Buy airtime", contractFlow(), base)
		p.Generated = map[string]string{"main.go": "package main\n"}
		require.NoError(t, store.Save(ctx, p), "Save should not return error")

		loaded, err := store.Load(ctx, p.ID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, p.ID, loaded.ID)
		assert.Equal(t, "Airtime", loaded.Name)
		assert.Equal(t, "Buy airtime", loaded.Description)
		assert.True(t, p.CreatedAt.Equal(loaded.CreatedAt))
		assert.True(t, p.UpdatedAt.Equal(loaded.UpdatedAt))
		assert.Equal(t, p.Generated, loaded.Generated)
		require.NotNil(t, loaded.Flow)
		require.Len(t, loaded.Flow.Nodes, 2)
		assert.Equal(t, "Welcome", loaded.Flow.Nodes[0].Data.Properties["title"])
		assert.Equal(t, p.Flow.Edges, loaded.Flow.Edges)

		require.NoError(t, store.Delete(ctx, p.ID))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-project")
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		p := domain.NewProject("Before", "", contractFlow(), base)
		require.NoError(t, store.Save(ctx, p))

		p.Name = "After"
		p.Flow = nil
		require.NoError(t, store.Save(ctx, p))

		loaded, err := store.Load(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "After", loaded.Name)
		assert.Nil(t, loaded.Flow)

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		require.NoError(t, store.Delete(ctx, p.ID))
	})

	t.Run("Isolation", func(t *testing.T) {
		p := domain.NewProject("Isolated", "", contractFlow(), base)
		require.NoError(t, store.Save(ctx, p))
		defer func() { _ = store.Delete(ctx, p.ID) }()

		p.Name = "mutated after save"
		p.Flow.Nodes[0].Data.Label = "mutated after save"

		loaded, err := store.Load(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Isolated", loaded.Name)
		assert.Equal(t, "Main", loaded.Flow.Nodes[0].Data.Label)

		loaded.Name = "mutated after load"
		again, err := store.Load(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Isolated", again.Name)
	})

	t.Run("Delete", func(t *testing.T) {
		p := domain.NewProject("Doomed", "", nil, base)
		require.NoError(t, store.Save(ctx, p))

		require.NoError(t, store.Delete(ctx, p.ID), "Delete should not return error")
		_, err := store.Load(ctx, p.ID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound, "Load after Delete should return ErrProjectNotFound")

		assert.NoError(t, store.Delete(ctx, p.ID), "Delete should be idempotent")
	})

	t.Run("List", func(t *testing.T) {
		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		third := domain.NewProject("Third", "", nil, base.Add(2*time.Hour))
		first := domain.NewProject("First", "", nil, base)
		second := domain.NewProject("Second", "", nil, base.Add(time.Hour))
		for _, p := range []*domain.Project{third, first, second} {
			require.NoError(t, store.Save(ctx, p))
		}
		defer func() {
			for _, p := range []*domain.Project{third, first, second} {
				_ = store.Delete(ctx, p.ID)
			}
		}()

		all, err = store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"First", "Second", "Third"}, []string{all[0].Name, all[1].Name, all[2].Name})
	})

	t.Run("Concurrent Saves", func(t *testing.T) {
		var wg sync.WaitGroup
		ids := make([]string, 8)
		for i := range ids {
			p := domain.NewProject(fmt.Sprintf("p%d", i), "", contractFlow(), base)
			ids[i] = p.ID
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Save(ctx, p))
			}()
		}
		wg.Wait()

		for _, id := range ids {
			_, err := store.Load(ctx, id)
			assert.NoError(t, err)
			_ = store.Delete(ctx, id)
		}
	})
}
