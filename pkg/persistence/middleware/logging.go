package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.ControllerStore
	logger *slog.Logger
}

// NewLogging logs every store call at debug level and failures at warn.
// Not-found loads are not failures.
func NewLogging(logger *slog.Logger) Middleware {
	return func(next ports.ControllerStore) ports.ControllerStore {
		return &loggingMiddleware{next: next, logger: logger.With("component", "store")}
	}
}

func (m *loggingMiddleware) observe(ctx context.Context, op, id string, start time.Time, err error) {
	attrs := []any{"op", op, "elapsed", time.Since(start)}
	if id != "" {
		attrs = append(attrs, "controller", id)
	}
	if err != nil && !errors.Is(err, domain.ErrControllerNotFound) {
		m.logger.WarnContext(ctx, "Store call failed", append(attrs, "err", err)...)
		return
	}
	m.logger.DebugContext(ctx, "Store call", attrs...)
}

func (m *loggingMiddleware) Load(ctx context.Context, id string) (*domain.Controller, error) {
	start := time.Now()
	c, err := m.next.Load(ctx, id)
	m.observe(ctx, "load", id, start, err)
	return c, err
}

func (m *loggingMiddleware) Save(ctx context.Context, id string, c *domain.Controller) error {
	start := time.Now()
	err := m.next.Save(ctx, id, c)
	m.observe(ctx, "save", id, start, err)
	return err
}

func (m *loggingMiddleware) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := m.next.Delete(ctx, id)
	m.observe(ctx, "delete", id, start, err)
	return err
}

func (m *loggingMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.observe(ctx, "list", "", start, err)
	return ids, err
}
