// Package config loads the optional animgate.yaml project file.
//
// The file is parsed with yaml.v3 into a generic map and decoded into File
// with mapstructure, so numbers written as strings and durations such as
// "30s" are accepted. Environment variables override file values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aretw0/animgate/pkg/adapters/minio"
	"github.com/aretw0/animgate/pkg/adapters/postgres"
	"github.com/aretw0/animgate/pkg/normalizer"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// FileName is the project file looked up in the project directory.
const FileName = "animgate.yaml"

// Store kinds accepted by Store.Kind.
const (
	StoreLoam  = "loam"
	StoreFile  = "file"
	StoreRedis = "redis"
	StoreMinio = "minio"
)

// Store selects where controllers live.
type Store struct {
	Kind string `yaml:"kind" mapstructure:"kind"`
	// Path is relative to the project directory. Empty means the directory
	// itself, where animgate.yaml would be listed as a controller.
	Path string `yaml:"path" mapstructure:"path"`
	// Format is "yaml" or "json" for the file store.
	Format string `yaml:"format" mapstructure:"format"`
}

// Redis configures the redis store and the distributed locker.
type Redis struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	LockTTL  time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
}

// HTTP configures the serve command.
type HTTP struct {
	Port     int  `yaml:"port" mapstructure:"port"`
	Validate bool `yaml:"validate" mapstructure:"validate"`
	Metrics  bool `yaml:"metrics" mapstructure:"metrics"`
}

// Batch configures normalize runs.
type Batch struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// File is the decoded project file.
type File struct {
	Normalizer normalizer.Config `yaml:"normalizer" mapstructure:"normalizer"`
	Store      Store             `yaml:"store" mapstructure:"store"`
	Batch      Batch             `yaml:"batch" mapstructure:"batch"`
	Redis      Redis             `yaml:"redis" mapstructure:"redis"`
	Minio      minio.Config      `yaml:"minio" mapstructure:"minio"`
	Postgres   postgres.Config   `yaml:"postgres" mapstructure:"postgres"`
	HTTP       HTTP              `yaml:"http" mapstructure:"http"`
}

// Default returns the settings used when no project file exists.
func Default() File {
	return File{
		Normalizer: normalizer.DefaultConfig(),
		Store:      Store{Kind: StoreLoam, Path: "controllers", Format: "yaml"},
		Batch:      Batch{Concurrency: 4},
		Redis:      Redis{Addr: "localhost:6379", LockTTL: 30 * time.Second},
		Minio:      minio.Config{Bucket: "animgate", Prefix: "controllers/"},
		HTTP:       HTTP{Port: 8080, Validate: true, Metrics: true},
	}
}

// Find returns the project file to read: explicit when set, otherwise
// animgate.yaml inside dir if it exists. ok is false when there is none.
func Find(dir, explicit string) (path string, ok bool) {
	if explicit != "" {
		return explicit, true
	}
	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true
	}
	return "", false
}

// Load reads path on top of Default. A missing path yields the defaults
// only when optional is set.
func Load(path string, optional bool) (File, error) {
	f := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return f, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Parse(data, &f); err != nil {
		return f, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes YAML data over the current values of into.
// Keys absent from data keep their values; lists are replaced, not merged.
func Parse(data []byte, into *File) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}
	if raw == nil {
		return nil
	}
	return Decode(raw, into)
}

// Decode applies a generic map (as produced by a YAML or JSON parser) to into.
func Decode(raw map[string]any, into *File) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           into,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvStore          = "ANIMGATE_STORE"
	EnvRedisAddr      = "ANIMGATE_REDIS_ADDR"
	EnvRedisPassword  = "ANIMGATE_REDIS_PASSWORD"
	EnvRedisDB        = "ANIMGATE_REDIS_DB"
	EnvMinioEndpoint  = "ANIMGATE_MINIO_ENDPOINT"
	EnvMinioAccessKey = "ANIMGATE_MINIO_ACCESS_KEY"
	EnvMinioSecretKey = "ANIMGATE_MINIO_SECRET_KEY"
	EnvMinioBucket    = "ANIMGATE_MINIO_BUCKET"
	EnvMinioUseSSL    = "ANIMGATE_MINIO_USE_SSL"
	EnvPostgresDSN    = "ANIMGATE_POSTGRES_DSN"
)

// ApplyEnv overrides values with the ANIMGATE_* variables returned by lookup.
// Pass os.LookupEnv in production.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvStore, &f.Store.Kind)
	str(EnvRedisAddr, &f.Redis.Addr)
	str(EnvRedisPassword, &f.Redis.Password)
	str(EnvMinioEndpoint, &f.Minio.Endpoint)
	str(EnvMinioAccessKey, &f.Minio.AccessKey)
	str(EnvMinioSecretKey, &f.Minio.SecretKey)
	str(EnvMinioBucket, &f.Minio.Bucket)
	str(EnvPostgresDSN, &f.Postgres.DSN)

	if v, ok := lookup(EnvRedisDB); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRedisDB, err)
		}
		f.Redis.DB = db
	}
	if v, ok := lookup(EnvMinioUseSSL); ok && v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMinioUseSSL, err)
		}
		f.Minio.UseSSL = useSSL
	}
	return nil
}

// Validate checks the settings every command depends on. Adapter settings
// are validated by the adapters when they are opened.
func (f File) Validate() error {
	if err := f.Normalizer.Validate(); err != nil {
		return err
	}
	switch f.Store.Kind {
	case StoreLoam, StoreFile, StoreRedis, StoreMinio:
	default:
		return fmt.Errorf("unknown store kind %q (want loam, file, redis or minio)", f.Store.Kind)
	}
	if f.Store.Format != "" && f.Store.Format != "yaml" && f.Store.Format != "json" {
		return fmt.Errorf("unknown store format %q (want yaml or json)", f.Store.Format)
	}
	if f.Batch.Concurrency < 1 {
		return fmt.Errorf("batch concurrency must be >= 1, got %d", f.Batch.Concurrency)
	}
	return nil
}
