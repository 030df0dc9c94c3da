package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/ussdflow/internal/adapters/file"
	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/adapters/redis"
	"github.com/aretw0/ussdflow/pkg/adapters/sqlstore"
	"github.com/aretw0/ussdflow/pkg/persistence/middleware"
	"github.com/aretw0/ussdflow/pkg/ports"
)

// Defaults used when USSDFLOW_DSN is empty.
const (
	DefaultFileDir   = ".ussdflow/projects"
	DefaultRedisURL  = "redis://localhost:6379/0"
	DefaultSQLiteDSN = "ussdflow.db"
	LockPrefix       = "ussdflow:lock:"
)

// ErrDSNRequired is returned for stores that have no usable default location.
var ErrDSNRequired = errors.New("store requires USSDFLOW_DSN")

// Backend is an opened project store plus the lock service that goes with it.
type Backend struct {
	Store  ports.ProjectStore
	Locker ports.DistributedLocker
	Kind   string

	closers []io.Closer
}

// Close releases the underlying connections.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i].Close())
	}
	return errors.Join(errs...)
}

// OpenBackend opens the store selected by cfg and wraps it with the
// redaction and encryption middleware when they are configured.
func OpenBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Kind: cfg.Store}

	switch cfg.Store {
	case "", config.StoreMemory:
		b.Kind = config.StoreMemory
		b.Store = memory.NewStore()
	case config.StoreFile:
		dir := cfg.DSN
		if dir == "" {
			dir = DefaultFileDir
		}
		b.Store = file.New(filepath.Clean(dir))
	case config.StoreRedis:
		url := cfg.DSN
		if url == "" {
			url = DefaultRedisURL
		}
		st, err := redis.New(url)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		b.Store = st
		b.Locker = redis.NewLocker(st.Client(), LockPrefix)
		b.closers = append(b.closers, st)
	case config.StoreSQLite, config.StorePostgres:
		d, _ := sqlstore.DialectFor(cfg.Store)
		dsn := cfg.DSN
		if dsn == "" {
			if cfg.Store == config.StorePostgres {
				return nil, fmt.Errorf("%s: %w", cfg.Store, ErrDSNRequired)
			}
			dsn = DefaultSQLiteDSN
		}
		st, err := sqlstore.Open(ctx, d, dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
		}
		b.Store = st
		b.closers = append(b.closers, st)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	var mws []middleware.Middleware
	if cfg.RedactSecrets {
		mw, err := middleware.NewRedactionMiddleware(cfg.RedactPatterns...)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mws = append(mws, mw)
	}
	if len(cfg.EncryptionKey) > 0 {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    cfg.EncryptionKey,
			FallbackKeys: cfg.FallbackKeys,
		})
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mws = append(mws, mw)
	}
	b.Store = middleware.Chain(b.Store, mws...)

	logger.Info("project store ready",
		"store", b.Kind,
		"redact", cfg.RedactSecrets,
		"encrypt", len(cfg.EncryptionKey) > 0,
		"distributed_locks", b.Locker != nil,
	)
	return b, nil
}
