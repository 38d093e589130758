package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/animgate"
	"github.com/aretw0/animgate/internal/config"
	"github.com/aretw0/animgate/internal/logging"
	"github.com/aretw0/animgate/pkg/adapters/file"
	loamstore "github.com/aretw0/animgate/pkg/adapters/loam"
	"github.com/aretw0/animgate/pkg/adapters/minio"
	"github.com/aretw0/animgate/pkg/adapters/postgres"
	"github.com/aretw0/animgate/pkg/adapters/redis"
	"github.com/aretw0/animgate/pkg/observability"
	"github.com/aretw0/animgate/pkg/persistence/middleware"
	"github.com/aretw0/animgate/pkg/ports"
)

// Options are the persistent CLI flags.
type Options struct {
	Dir        string
	StoreKind  string // overrides the config file when set
	ConfigPath string
	Debug      bool
	LogFormat  string // "text" or "json"
	ReadOnly   bool
}

// NewLogger builds the process logger from the flags.
func NewLogger(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	if opts.LogFormat == "json" {
		return logging.NewJSON(level)
	}
	return logging.New(level)
}

// LoadConfig resolves the project file, then applies environment variables
// and flag overrides, in that order.
func LoadConfig(opts Options) (config.File, error) {
	f := config.Default()
	if path, ok := config.Find(opts.Dir, opts.ConfigPath); ok {
		loaded, err := config.Load(path, opts.ConfigPath == "")
		if err != nil {
			return f, err
		}
		f = loaded
	}
	if err := f.ApplyEnv(os.LookupEnv); err != nil {
		return f, err
	}
	if opts.StoreKind != "" {
		f.Store.Kind = opts.StoreKind
	}
	if err := f.Validate(); err != nil {
		return f, fmt.Errorf("invalid configuration: %w", err)
	}
	return f, nil
}

// Resources is what CreateEngine opened. Close releases every connection.
type Resources struct {
	Store   ports.ControllerStore
	Locker  ports.DistributedLocker
	Ledger  ports.RunLedger
	Metrics *observability.Metrics
	closers []func() error
}

// Close releases connections in reverse opening order.
func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenStore opens the controller store selected by f.Store.Kind.
func OpenStore(ctx context.Context, f config.File, dir string, readOnly bool) (*Resources, error) {
	res := &Resources{}
	base := dir
	if f.Store.Path != "" {
		base = filepath.Join(dir, f.Store.Path)
	}

	switch f.Store.Kind {
	case config.StoreLoam:
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		s, err := loamstore.Open(base, loamstore.WithReadOnly(readOnly))
		if err != nil {
			return nil, err
		}
		res.Store = s
	case config.StoreFile:
		var fileOpts []file.Option
		if f.Store.Format == "json" {
			fileOpts = append(fileOpts, file.WithFormat(file.FormatJSON))
		}
		res.Store = file.New(base, fileOpts...)
	case config.StoreRedis:
		var redisOpts []redis.Option
		if f.Redis.Prefix != "" {
			redisOpts = append(redisOpts, redis.WithPrefix(f.Redis.Prefix))
		}
		if f.Redis.TTL > 0 {
			redisOpts = append(redisOpts, redis.WithTTL(f.Redis.TTL))
		}
		s := redis.New(f.Redis.Addr, f.Redis.Password, f.Redis.DB, redisOpts...)
		res.closers = append(res.closers, s.Close)
		if err := s.Client().Ping(ctx).Err(); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", f.Redis.Addr, err)
		}
		res.Store = s
		res.Locker = redis.NewLocker(s.Client(), "animgate:")
	case config.StoreMinio:
		s, err := minio.New(ctx, f.Minio)
		if err != nil {
			return nil, err
		}
		res.Store = s
	default:
		return nil, fmt.Errorf("unknown store kind %q", f.Store.Kind)
	}
	return res, nil
}

// CreateEngine initializes an animgate engine with standard CLI conventions:
// the configured store behind the logging (and, when read-only, write guard)
// middleware, a redis lock when the store is shared, a postgres ledger when a
// DSN is configured, and metrics.
func CreateEngine(ctx context.Context, opts Options, f config.File, logger *slog.Logger) (*animgate.Engine, *Resources, error) {
	res, err := OpenStore(ctx, f, opts.Dir, opts.ReadOnly)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening store: %w", err)
	}
	mws := []middleware.Middleware{middleware.NewLogging(logger)}
	if opts.ReadOnly && f.Store.Kind != config.StoreLoam {
		mws = append(mws, middleware.NewReadOnly())
	}
	res.Store = middleware.Chain(res.Store, mws...)

	if f.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, f.Postgres)
		if err != nil {
			_ = res.Close()
			return nil, nil, fmt.Errorf("error opening run ledger: %w", err)
		}
		res.closers = append(res.closers, db.Close)
		ledger := postgres.NewLedger(db)
		if err := ledger.EnsureSchema(ctx); err != nil {
			_ = res.Close()
			return nil, nil, fmt.Errorf("error preparing run ledger: %w", err)
		}
		res.Ledger = ledger
	}

	res.Metrics = observability.NewMetrics()

	engineOpts := []animgate.Option{
		animgate.WithStore(res.Store),
		animgate.WithConfig(f.Normalizer),
		animgate.WithConcurrency(f.Batch.Concurrency),
		animgate.WithMetrics(res.Metrics),
		animgate.WithLogger(logger),
	}
	if res.Locker != nil {
		engineOpts = append(engineOpts, animgate.WithLocker(res.Locker, f.Redis.LockTTL))
	}
	if res.Ledger != nil {
		engineOpts = append(engineOpts, animgate.WithLedger(res.Ledger))
	}

	engine, err := animgate.New(opts.Dir, engineOpts...)
	if err != nil {
		_ = res.Close()
		return nil, nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, res, nil
}
