package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
)

// NewLogger builds the application logger from cfg. It writes to Stderr so
// generated output and JSON-RPC on Stdout stay clean.
func NewLogger(cfg config.Config) (*slog.Logger, io.Closer) {
	return logging.Open(logging.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.LogJSON,
		File:  cfg.LogFile,
	})
}

// DebugHooks logs every project lifecycle event at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnProjectChange: func(ctx context.Context, e *domain.ProjectEvent) {
			attrs := []any{"event", e.Type, "project_id", e.ProjectID}
			if e.Diff != nil {
				attrs = append(attrs,
					"added", len(e.Diff.AddedNodes),
					"removed", len(e.Diff.RemovedNodes),
					"changed", len(e.Diff.ChangedNodes),
				)
			}
			if e.Files > 0 {
				attrs = append(attrs, "files", e.Files)
			}
			logger.Debug("Project Event", attrs...)
		},
	}
}

// ChainHooks fans every event out to each of hooks in order.
func ChainHooks(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnProjectChange: func(ctx context.Context, e *domain.ProjectEvent) {
			for _, h := range hooks {
				h.Emit(ctx, e)
			}
		},
	}
}
