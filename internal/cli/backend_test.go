package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secretProject() *domain.Project {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Project{
		ID:   "p1",
		Name: "Shop",
		Flow: &flow.Graph{
			Nodes: []flow.Node{{
				ID:   "pay",
				Type: flow.TypePaymentOption,
				Data: flow.NodeData{Label: "Pay", Properties: map[string]any{
					"provider": "mpesa",
					"passkey":  "s3cr3t",
				}},
			}},
			Edges: []flow.Edge{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func openBackend(t *testing.T, cfg config.Config) *Backend {
	t.Helper()
	b, err := OpenBackend(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestOpenBackend_Stores(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name   string
		cfg    config.Config
		locker bool
	}{
		{name: "memory", cfg: config.Config{Store: config.StoreMemory}},
		{name: "default", cfg: config.Config{}},
		{name: "file", cfg: config.Config{Store: config.StoreFile, DSN: t.TempDir()}},
		{name: "sqlite", cfg: config.Config{Store: config.StoreSQLite, DSN: filepath.Join(t.TempDir(), "projects.db")}},
		{name: "redis", cfg: config.Config{Store: config.StoreRedis, DSN: "redis://" + mr.Addr() + "/0"}, locker: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := openBackend(t, tt.cfg)
			assert.Equal(t, tt.locker, b.Locker != nil)

			ctx := context.Background()
			require.NoError(t, b.Store.Save(ctx, secretProject()))
			got, err := b.Store.Load(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, "Shop", got.Name)
		})
	}
}

func TestOpenBackend_Errors(t *testing.T) {
	_, err := OpenBackend(context.Background(), config.Config{Store: config.StorePostgres}, logging.NewNop())
	assert.ErrorIs(t, err, ErrDSNRequired)

	_, err = OpenBackend(context.Background(), config.Config{Store: "etcd"}, logging.NewNop())
	assert.Error(t, err)

	_, err = OpenBackend(context.Background(), config.Config{RedactSecrets: true, RedactPatterns: []string{"("}}, logging.NewNop())
	assert.Error(t, err)

	_, err = OpenBackend(context.Background(), config.Config{EncryptionKey: []byte("short")}, logging.NewNop())
	assert.Error(t, err)
}

func TestOpenBackend_Middleware(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	dir := t.TempDir()
	b := openBackend(t, config.Config{
		Store:         config.StoreFile,
		DSN:           dir,
		RedactSecrets: true,
		EncryptionKey: key,
	})

	ctx := context.Background()
	require.NoError(t, b.Store.Save(ctx, secretProject()))

	got, err := b.Store.Load(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got.Flow)
	assert.Equal(t, "***", got.Flow.Nodes[0].Data.Properties["passkey"])
	assert.Equal(t, "mpesa", got.Flow.Nodes[0].Data.Properties["provider"])

	// Without the key the stored copy carries only the sealed envelope.
	plain := openBackend(t, config.Config{Store: config.StoreFile, DSN: dir})
	raw, err := plain.Store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, raw.Flow)
	assert.NotEmpty(t, raw.Sealed)
}
