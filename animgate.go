package animgate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/animgate/internal/logging"
	"github.com/aretw0/animgate/internal/validator"
	loamstore "github.com/aretw0/animgate/pkg/adapters/loam"
	"github.com/aretw0/animgate/pkg/batch"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/normalizer"
	"github.com/aretw0/animgate/pkg/observability"
	"github.com/aretw0/animgate/pkg/ports"
)

// Engine is the high-level entry point for the animgate library.
// It binds a controller store to the normalizer and the batch runner.
type Engine struct {
	store       ports.ControllerStore
	config      normalizer.Config
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	ledger      ports.RunLedger
	metrics     *observability.Metrics
	concurrency int
	readOnly    bool
	logger      *slog.Logger
	Name        string

	// Built once so concurrent writers of one controller share key locks.
	apply  *batch.Runner
	dryRun *batch.Runner
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore injects a custom ControllerStore, bypassing the default Loam initialization.
func WithStore(s ports.ControllerStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithConfig sets the normalizer configuration (default: normalizer.DefaultConfig).
func WithConfig(cfg normalizer.Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithLocker serializes writers of the same controller across processes.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithLedger records every batch run.
func WithLedger(l ports.RunLedger) Option {
	return func(e *Engine) {
		e.ledger = l
	}
}

// WithMetrics publishes run metrics to m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithConcurrency bounds parallel normalization in batch runs.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithReadOnly opens the default Loam store without write access.
func WithReadOnly(readOnly bool) Option {
	return func(e *Engine) {
		e.readOnly = readOnly
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Engine.
// By default, controllers are read from a Loam repository at dir.
// If WithStore is provided, dir only labels the engine and may be empty.
func New(dir string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		config:      normalizer.DefaultConfig(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if err := eng.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid normalizer config: %w", err)
	}

	if eng.store == nil {
		if dir == "" {
			return nil, fmt.Errorf("dir is required when no custom store is provided")
		}
		s, err := loamstore.Open(dir, loamstore.WithReadOnly(eng.readOnly))
		if err != nil {
			return nil, err
		}
		eng.store = s
	}
	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			eng.Name = filepath.Base(abs)
		}
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("project", eng.Name)
	}
	eng.apply = eng.newRunner(false)
	eng.dryRun = eng.newRunner(true)
	return eng, nil
}

func (e *Engine) runner(dryRun bool) *batch.Runner {
	if dryRun {
		return e.dryRun
	}
	return e.apply
}

func (e *Engine) newRunner(dryRun bool) *batch.Runner {
	opts := []batch.Option{
		batch.WithConfig(e.config),
		batch.WithConcurrency(e.concurrency),
		batch.WithDryRun(dryRun),
		batch.WithLogger(e.logger),
	}
	if e.locker != nil {
		opts = append(opts, batch.WithLocker(e.locker, e.lockTTL))
	}
	if e.ledger != nil {
		opts = append(opts, batch.WithLedger(e.ledger))
	}
	if e.metrics != nil {
		opts = append(opts, batch.WithHooks(batch.Hooks{
			OnOutcome:     e.metrics.ObserveOutcome,
			OnRunFinished: e.metrics.ObserveRun,
		}))
	}
	return batch.New(e.store, opts...)
}

// Normalize runs the normalizer on c without touching the store.
// A nil cfg uses the engine configuration.
func (e *Engine) Normalize(ctx context.Context, c *domain.Controller, cfg *normalizer.Config) (*domain.Controller, *normalizer.Report) {
	use := e.config
	if cfg != nil {
		use = *cfg
	}
	return normalizer.Normalize(c, use)
}

// NormalizeStored normalizes one stored controller and saves it unless dryRun.
func (e *Engine) NormalizeStored(ctx context.Context, id string, dryRun bool) (domain.Outcome, *normalizer.Report, error) {
	start := time.Now()
	outcome, report, err := e.runner(dryRun).NormalizeOne(ctx, id)
	if e.metrics != nil {
		e.metrics.ObserveOutcome(outcome, time.Since(start))
	}
	return outcome, report, err
}

// NormalizeAll runs a batch over ids, or over every stored controller.
func (e *Engine) NormalizeAll(ctx context.Context, dryRun bool, ids ...string) (*batch.Result, error) {
	return e.runner(dryRun).Run(ctx, ids...)
}

// Validate runs the structural and model checks on a stored controller.
// It returns a *validator.AggregateError listing every problem, or nil.
func (e *Engine) Validate(ctx context.Context, id string) error {
	c, err := e.store.Load(ctx, id)
	if err != nil {
		return err
	}
	return validator.ValidateController(c)
}

// Check lists the invariants a stored controller still violates.
func (e *Engine) Check(ctx context.Context, id string) ([]normalizer.Violation, error) {
	c, err := e.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return normalizer.CheckInvariants(c, e.config), nil
}

// List returns the ids of every stored controller.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// Load returns a stored controller.
func (e *Engine) Load(ctx context.Context, id string) (*domain.Controller, error) {
	return e.store.Load(ctx, id)
}

// Store returns the underlying ControllerStore.
func (e *Engine) Store() ports.ControllerStore {
	return e.store
}

// Config returns the normalizer configuration in use.
func (e *Engine) Config() normalizer.Config {
	return e.config
}
