package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/mitchellh/mapstructure"
)

// Store adapts a Loam repository to the ports.ControllerStore interface.
// Controllers are documents whose metadata is the controller graph; the
// document body is free-form notes and survives normalization untouched.
//
// Frontmatter round trips are not type-stable (numbers may come back as
// strings or json.Number), so metadata is decoded with weakly typed
// mapstructure instead of Loam's typed repository.
type Store struct {
	Repo core.Repository
}

// Option configures how the underlying repository is opened.
type Option func(*options)

type options struct {
	readOnly bool
}

// WithReadOnly opens the project without write access (validate, graph).
func WithReadOnly(readOnly bool) Option {
	return func(o *options) {
		o.readOnly = readOnly
	}
}

// Open initializes a Loam repository rooted at dir.
func Open(dir string, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithVersioning(false),
		loam.WithReadOnly(o.readOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(repo), nil
}

// New wraps an already initialized repository.
func New(repo core.Repository) *Store {
	return &Store{Repo: repo}
}

// Load decodes the controller document stored under id.
func (s *Store) Load(ctx context.Context, id string) (*domain.Controller, error) {
	doc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, s.notFound(ctx, id, err)
	}

	c, err := DecodeMetadata(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("loam decode failed for %s: %w", id, err)
	}
	if c.Name == "" {
		c.Name = trimExtension(doc.ID)
	}
	return c, nil
}

// DecodeMetadata converts document metadata into a controller. Scalars are
// weakly typed: "0.25", json.Number and 0.25 all decode to the same float.
func DecodeMetadata(meta core.Metadata) (*domain.Controller, error) {
	var c domain.Controller
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &c,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]any(meta)); err != nil {
		return nil, err
	}
	return &c, nil
}

// encodeMetadata flattens c into plain maps, slices, strings, bools and
// float64 so the frontmatter writer emits numbers unquoted.
func encodeMetadata(c *domain.Controller) (core.Metadata, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var meta core.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// notFound maps a failed Get to domain.ErrControllerNotFound when the id is
// not listed, since Loam does not export a not-found sentinel.
func (s *Store) notFound(ctx context.Context, id string, cause error) error {
	ids, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("loam get failed for %s: %w", id, cause)
	}
	i := sort.SearchStrings(ids, id)
	if i < len(ids) && ids[i] == id {
		return fmt.Errorf("loam get failed for %s: %w", id, cause)
	}
	return fmt.Errorf("%w: %s", domain.ErrControllerNotFound, id)
}

// Save writes the controller as document metadata, keeping any existing body.
func (s *Store) Save(ctx context.Context, id string, c *domain.Controller) error {
	content := ""
	if existing, err := s.Repo.Get(ctx, id); err == nil {
		content = existing.Content
	}

	meta, err := encodeMetadata(c)
	if err != nil {
		return fmt.Errorf("loam encode failed for %s: %w", id, err)
	}
	if err := s.Repo.Save(ctx, core.Document{ID: id, Content: content, Metadata: meta}); err != nil {
		return fmt.Errorf("loam save failed for %s: %w", id, err)
	}
	return nil
}

// Delete removes the controller document.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("loam delete failed for %s: %w", id, err)
	}
	return nil
}

// List returns the ids of every controller document, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := trimExtension(doc.ID)
		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: controller '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
