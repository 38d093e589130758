package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/ports"
)

// ErrReadOnly is returned by writes through a read-only store.
var ErrReadOnly = errors.New("store is read-only")

type readOnlyMiddleware struct {
	next ports.ControllerStore
}

// NewReadOnly rejects Save and Delete. Stores without a native read-only
// mode (file, redis, minio) are wrapped with it for validate and graph.
func NewReadOnly() Middleware {
	return func(next ports.ControllerStore) ports.ControllerStore {
		return &readOnlyMiddleware{next: next}
	}
}

func (m *readOnlyMiddleware) Load(ctx context.Context, id string) (*domain.Controller, error) {
	return m.next.Load(ctx, id)
}

func (m *readOnlyMiddleware) Save(ctx context.Context, id string, c *domain.Controller) error {
	return fmt.Errorf("save %s: %w", id, ErrReadOnly)
}

func (m *readOnlyMiddleware) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("delete %s: %w", id, ErrReadOnly)
}

func (m *readOnlyMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
