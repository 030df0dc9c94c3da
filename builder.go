package ussdflow

import (
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/compiler"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/aretw0/ussdflow/pkg/keylock"
	"github.com/aretw0/ussdflow/pkg/observability"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/aretw0/ussdflow/pkg/validator"
)

// Builder is the high-level entry point: it validates and compiles flows
// and manages the projects that hold them.
type Builder struct {
	store   ports.ProjectStore
	locks   *keylock.Locks
	locker  ports.DistributedLocker
	logger  *slog.Logger
	metrics *observability.Metrics
	hooks   domain.LifecycleHooks
	now     func() time.Time
	strict  bool
}

// Option defines a functional option for configuring the Builder.
type Option func(*Builder)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithMetrics records validations and generations on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithLifecycleHooks registers callbacks for project changes.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Builder) {
		b.hooks = hooks
	}
}

// WithClock overrides the time source used for project timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithLocker serializes project updates across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(b *Builder) {
		b.locker = locker
	}
}

// WithStrict makes every validation warning fatal.
func WithStrict() Option {
	return func(b *Builder) {
		b.strict = true
	}
}

// New creates a Builder on store. A nil store selects an in-memory one.
func New(store ports.ProjectStore, opts ...Option) *Builder {
	b := &Builder{
		store:  store,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = memory.NewStore()
	}
	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	lockOpts := []keylock.Option{keylock.WithLogger(b.logger)}
	if b.locker != nil {
		lockOpts = append(lockOpts, keylock.WithLocker(b.locker))
	}
	b.locks = keylock.New(lockOpts...)
	return b
}

// Store returns the underlying project store.
func (b *Builder) Store() ports.ProjectStore {
	return b.store
}

// Validate checks g with the builder's strictness.
func (b *Builder) Validate(g *flow.Graph) validator.Result {
	if g == nil {
		g = &flow.Graph{}
	}
	var opts []validator.Option
	if b.strict {
		opts = append(opts, validator.WithStrict())
	}
	res := validator.Validate(g, opts...)
	b.metrics.ObserveValidation(res.Valid)
	return res
}

// Generate validates g and compiles it. Nothing is produced unless the
// graph is valid and every node lowers: an invalid graph yields an
// *InvalidFlowError, a lowering failure a *compiler.LoweringError.
func (b *Builder) Generate(g *flow.Graph, projectName string) (*compiler.Program, error) {
	start := time.Now()
	if g == nil || len(g.Nodes) == 0 {
		b.metrics.ObserveGeneration(observability.OutcomeInvalid, 0, 0)
		return nil, compiler.ErrEmptyGraph
	}

	res := b.Validate(g)
	if !res.Valid {
		b.metrics.ObserveGeneration(observability.OutcomeInvalid, 0, 0)
		b.logger.Info("flow rejected", "project", projectName, "errors", len(res.Errors))
		return nil, &InvalidFlowError{Result: res}
	}

	prog, err := compiler.Generate(g, projectName)
	if err != nil {
		outcome := observability.OutcomeFailed
		if errors.Is(err, compiler.ErrEmptyGraph) {
			outcome = observability.OutcomeInvalid
		}
		b.metrics.ObserveGeneration(outcome, 0, 0)
		b.logger.Error("generation failed", "project", projectName, "err", err)
		return nil, err
	}

	took := time.Since(start)
	b.metrics.ObserveGeneration(observability.OutcomeSuccess, took, prog.Len())
	b.logger.Debug("flow compiled",
		"project", projectName,
		"module", prog.Module(),
		"files", prog.Len(),
		"warnings", len(res.Warnings),
		"took", took,
	)
	return prog, nil
}
