package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/animgate/pkg/domain"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	// ErrRunNotFound is returned when an outcome or finish refers to an unknown run.
	ErrRunNotFound = errors.New("run not found")
	// ErrDuplicate is returned when a run or outcome is recorded twice.
	ErrDuplicate = errors.New("already recorded")
)

type Config struct {
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`
	PingTimeout     time.Duration `yaml:"ping_timeout" mapstructure:"ping_timeout"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// WithDefaults fills unset pool settings.
func (c Config) WithDefaults() Config {
	if c.PingTimeout == 0 {
		c.PingTimeout = 2 * time.Second
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 4
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	return c
}

func (c Config) Validate() error {
	if c.DSN == "" {
		return errors.New("postgres dsn is required")
	}
	if c.PingTimeout <= 0 {
		return errors.New("postgres ping timeout must be positive")
	}
	if c.MaxOpenConns < 1 {
		return errors.New("postgres max open conns must be >= 1")
	}
	return nil
}

// Open connects through the pgx stdlib driver and pings the server.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS animgate_runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	dry_run     BOOLEAN NOT NULL DEFAULT FALSE,
	total       INTEGER NOT NULL DEFAULT 0,
	fixed       INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS animgate_outcomes (
	run_id        TEXT NOT NULL REFERENCES animgate_runs(id) ON DELETE CASCADE,
	controller    TEXT NOT NULL,
	status        TEXT NOT NULL,
	changed_count INTEGER NOT NULL,
	warnings      INTEGER NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, controller)
);`

// Ledger implements ports.RunLedger on PostgreSQL.
type Ledger struct {
	db *sql.DB
}

// NewLedger wraps db. Call EnsureSchema once before recording runs.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// EnsureSchema creates the ledger tables if they are missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (l *Ledger) BeginRun(ctx context.Context, run domain.Run) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO animgate_runs (id, started_at, dry_run) VALUES ($1, $2, $3)`,
		run.ID, run.StartedAt, run.DryRun,
	)
	return mapError("begin run", err)
}

func (l *Ledger) RecordOutcome(ctx context.Context, o domain.Outcome) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO animgate_outcomes (run_id, controller, status, changed_count, warnings, error)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		o.RunID, o.Controller, string(o.Status), o.ChangedCount, o.Warnings, o.Error,
	)
	return mapError("record outcome", err)
}

func (l *Ledger) FinishRun(ctx context.Context, run domain.Run) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE animgate_runs
		    SET finished_at = $2, total = $3, fixed = $4, skipped = $5, failed = $6
		  WHERE id = $1`,
		run.ID, run.FinishedAt, run.Total, run.Fixed, run.Skipped, run.Failed,
	)
	if err != nil {
		return mapError("finish run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

// Run loads one run with its counters.
func (l *Ledger) Run(ctx context.Context, id string) (domain.Run, error) {
	var (
		run      domain.Run
		finished sql.NullTime
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, dry_run, total, fixed, skipped, failed
		   FROM animgate_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.StartedAt, &finished, &run.DryRun, &run.Total, &run.Fixed, &run.Skipped, &run.Failed)
	if err != nil {
		return domain.Run{}, mapError("load run", err)
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return run, nil
}

// Outcomes lists the per-controller results of a run.
func (l *Ledger) Outcomes(ctx context.Context, runID string) ([]domain.Outcome, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, controller, status, changed_count, warnings, error
		   FROM animgate_outcomes WHERE run_id = $1 ORDER BY controller`, runID)
	if err != nil {
		return nil, mapError("list outcomes", err)
	}
	defer rows.Close()

	var out []domain.Outcome
	for rows.Next() {
		var (
			o      domain.Outcome
			status string
		)
		if err := rows.Scan(&o.RunID, &o.Controller, &status, &o.ChangedCount, &o.Warnings, &o.Error); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = domain.OutcomeStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrRunNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return fmt.Errorf("%s: %w", op, ErrRunNotFound)
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
