package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/animgate/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding used when writing controllers.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Store implements ports.ControllerStore using plain files.
// Each controller lives in <id>.yaml or <id>.json inside BasePath; both are
// read, and Save writes the configured format.
type Store struct {
	BasePath string
	Format   Format
}

// Option configures a Store.
type Option func(*Store)

// WithFormat sets the encoding used by Save.
func WithFormat(f Format) Option {
	return func(s *Store) {
		s.Format = f
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to "controllers".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = "controllers"
	}
	s := &Store{BasePath: basePath, Format: FormatYAML}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(id string, f Format) string {
	return filepath.Join(s.BasePath, id+"."+string(f))
}

func (s *Store) encode(c *domain.Controller) ([]byte, error) {
	if s.Format == FormatJSON {
		return json.MarshalIndent(c, "", "  ")
	}
	return yaml.Marshal(c)
}

// Save persists the controller atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, id string, c *domain.Controller) error {
	if id == "" {
		return fmt.Errorf("controller id cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure controller directory: %w", err)
	}

	data, err := s.encode(c)
	if err != nil {
		return fmt.Errorf("failed to marshal controller: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+filepath.Base(id)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(id, s.Format)
	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing controller file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	// A stale copy in the other format would shadow or duplicate this one.
	for _, f := range []Format{FormatYAML, FormatJSON} {
		if f != s.Format {
			_ = os.Remove(s.path(id, f))
		}
	}
	return nil
}

// Load reads the controller, preferring YAML over JSON.
func (s *Store) Load(ctx context.Context, id string) (*domain.Controller, error) {
	if id == "" {
		return nil, fmt.Errorf("controller id cannot be empty")
	}

	for _, f := range []Format{FormatYAML, FormatJSON} {
		data, err := os.ReadFile(s.path(id, f))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read controller file: %w", err)
		}
		return Decode(data, f)
	}
	return nil, domain.ErrControllerNotFound
}

// Decode parses a controller document in the given format.
func Decode(data []byte, f Format) (*domain.Controller, error) {
	var c domain.Controller
	var err error
	if f == FormatJSON {
		err = json.Unmarshal(data, &c)
	} else {
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal controller: %w", err)
	}
	return &c, nil
}

// Delete removes the controller file in every format.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("controller id cannot be empty")
	}
	for _, f := range []Format{FormatYAML, FormatJSON} {
		if err := os.Remove(s.path(id, f)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete controller file: %w", err)
		}
	}
	return nil
}

// List returns the ids of every controller file, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list controllers: %w", err)
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".json" {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
