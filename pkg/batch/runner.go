package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/animgate/internal/logging"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/normalizer"
	"github.com/aretw0/animgate/pkg/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Hooks are optional callbacks fired as a run progresses.
// They run on worker goroutines and must be safe for concurrent use.
type Hooks struct {
	OnOutcome     func(o domain.Outcome, elapsed time.Duration)
	OnRunFinished func(run domain.Run)
}

// Runner normalizes controllers held by a ControllerStore.
type Runner struct {
	store       ports.ControllerStore
	config      normalizer.Config
	concurrency int
	dryRun      bool
	ledger      ports.RunLedger
	hooks       Hooks
	logger      *slog.Logger
	locks       *keyLocks
	now         func() time.Time
}

// Option configures the Runner.
type Option func(*Runner)

// WithConfig sets the normalizer configuration.
func WithConfig(cfg normalizer.Config) Option {
	return func(r *Runner) {
		r.config = cfg
	}
}

// WithConcurrency bounds how many controllers are processed at once.
// Values below 1 mean sequential processing.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// WithDryRun computes reports without saving anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// WithLocker enables distributed locking around load/normalize/save.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(r *Runner) {
		r.locks.locker = locker
		r.locks.ttl = ttl
	}
}

// WithLedger records every run and outcome.
func WithLedger(ledger ports.RunLedger) Option {
	return func(r *Runner) {
		r.ledger = ledger
	}
}

// WithHooks registers progress callbacks.
func WithHooks(h Hooks) Option {
	return func(r *Runner) {
		r.hooks = h
	}
}

// WithLogger configures a logger for the Runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner over store.
func New(store ports.ControllerStore, opts ...Option) *Runner {
	r := &Runner{
		store:       store,
		config:      normalizer.DefaultConfig(),
		concurrency: 4,
		logger:      logging.NewNop(),
		locks:       newKeyLocks(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	if r.locks.ttl <= 0 {
		r.locks.ttl = 30 * time.Second
	}
	r.locks.logger = r.logger
	return r
}

// Result is everything a run produced.
type Result struct {
	Run      domain.Run       `json:"run"`
	Outcomes []domain.Outcome `json:"outcomes"`
	// Reports holds the normalization report per controller id. Controllers
	// that failed to load have no report.
	Reports map[string]*normalizer.Report `json:"reports"`
}

// Run processes ids, or every stored controller when ids is empty.
// Only listing the store and context cancellation return an error; per
// controller failures are recorded in the result.
func (r *Runner) Run(ctx context.Context, ids ...string) (*Result, error) {
	if len(ids) == 0 {
		listed, err := r.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list controllers: %w", err)
		}
		ids = listed
	}

	run := domain.Run{ID: uuid.NewString(), StartedAt: r.now().UTC(), DryRun: r.dryRun}
	logger := r.logger.With("run_id", run.ID)
	logger.Info("Batch run started", "controllers", len(ids), "dry_run", r.dryRun, "concurrency", r.concurrency)
	r.record(ctx, logger, "begin run", func(ctx context.Context) error { return r.ledger.BeginRun(ctx, run) })

	outcomes := make([]domain.Outcome, len(ids))
	reports := make([]*normalizer.Report, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := r.now()
			outcome, report, _ := r.normalizeOne(gctx, logger, id)
			outcome.RunID = run.ID
			outcomes[i], reports[i] = outcome, report

			r.record(gctx, logger, "record outcome", func(ctx context.Context) error { return r.ledger.RecordOutcome(ctx, outcome) })
			if r.hooks.OnOutcome != nil {
				r.hooks.OnOutcome(outcome, r.now().Sub(start))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Reports: make(map[string]*normalizer.Report, len(ids))}
	for i, o := range outcomes {
		run.Tally(o)
		if reports[i] != nil {
			result.Reports[ids[i]] = reports[i]
		}
	}
	run.FinishedAt = r.now().UTC()
	result.Run = run
	result.Outcomes = outcomes

	r.record(ctx, logger, "finish run", func(ctx context.Context) error { return r.ledger.FinishRun(ctx, run) })
	if r.hooks.OnRunFinished != nil {
		r.hooks.OnRunFinished(run)
	}
	logger.Info("Batch run finished",
		"total", run.Total,
		"fixed", run.Fixed,
		"skipped", run.Skipped,
		"failed", run.Failed,
	)
	return result, nil
}

// NormalizeOne loads, normalizes and (unless dry-run) saves a single controller.
// The returned error is the load, lock or save failure already recorded on
// the outcome; it wraps domain.ErrControllerNotFound for unknown ids.
func (r *Runner) NormalizeOne(ctx context.Context, id string) (domain.Outcome, *normalizer.Report, error) {
	return r.normalizeOne(ctx, r.logger, id)
}

func (r *Runner) normalizeOne(ctx context.Context, logger *slog.Logger, id string) (domain.Outcome, *normalizer.Report, error) {
	outcome := domain.Outcome{Controller: id}
	var report *normalizer.Report

	err := r.locks.withLock(ctx, id, func(ctx context.Context) error {
		c, err := r.store.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load: %w", err)
		}

		_, report = normalizer.Normalize(c, r.config)
		summary := report.Summary()
		outcome.ChangedCount = summary.ChangedCount
		outcome.Warnings = summary.Warnings
		if report.HasErrors() {
			outcome.Error = strings.Join(reportErrors(report), "; ")
		}

		if !report.Changed() {
			return nil
		}
		if !r.dryRun {
			if err := r.store.Save(ctx, id, c); err != nil {
				return fmt.Errorf("failed to save: %w", err)
			}
		}
		outcome.Status = domain.OutcomeFixed
		return nil
	})

	switch {
	case err != nil:
		outcome.Status = domain.OutcomeFailed
		outcome.Error = err.Error()
		if errors.Is(err, domain.ErrControllerNotFound) {
			logger.Warn("Controller not found, skipped", "controller", id)
		} else {
			logger.Warn("Controller failed, skipped", "controller", id, "err", err)
		}
		return outcome, report, err
	case outcome.Status == "" && outcome.Error != "":
		outcome.Status = domain.OutcomeFailed
	case outcome.Status == "":
		outcome.Status = domain.OutcomeSkipped
	}

	r.logReport(logger, id, outcome, report)
	return outcome, report, nil
}

func (r *Runner) logReport(logger *slog.Logger, id string, o domain.Outcome, report *normalizer.Report) {
	logger.Info("Controller normalized",
		"controller", id,
		"status", o.Status,
		"changed", o.ChangedCount,
		"layers", len(report.Layers),
		"dry_run", r.dryRun,
	)
	for _, change := range report.Changes() {
		logger.Debug("Change", "controller", id, "change", change)
	}
	for _, l := range report.Layers {
		for _, w := range l.Warnings {
			logger.Warn("Normalization warning", "controller", id, "layer", l.Layer, "warning", w)
		}
	}
	if o.Error != "" {
		logger.Warn("Normalization error", "controller", id, "err", o.Error)
	}
}

// record runs a ledger call when a ledger is configured. Ledger failures are
// logged and never fail the run.
func (r *Runner) record(ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) error) {
	if r.ledger == nil {
		return
	}
	if err := fn(ctx); err != nil {
		logger.Warn("Run ledger write failed", "op", op, "err", err)
	}
}

func reportErrors(report *normalizer.Report) []string {
	out := append([]string(nil), report.Errors...)
	for _, l := range report.Layers {
		for _, e := range l.Errors {
			out = append(out, l.Layer+": "+e)
		}
	}
	return out
}
