package ports

import (
	"context"

	"github.com/aretw0/animgate/pkg/domain"
)

// ControllerStore defines the interface for reading and writing controllers.
// Implementations must hand out copies: mutating a loaded controller never
// changes the stored one until Save is called.
type ControllerStore interface {
	// Load retrieves the controller stored under id.
	// Returns domain.ErrControllerNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Controller, error)

	// Save persists the controller under id, replacing any previous version.
	Save(ctx context.Context, id string, c *domain.Controller) error

	// List returns the ids of every stored controller, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes the controller stored under id.
	Delete(ctx context.Context, id string) error
}
