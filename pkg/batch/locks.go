package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/animgate/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyLocks serializes work on the same controller id within the process and,
// when a DistributedLocker is configured, across processes.
// Entries are reference counted so unused ids do not accumulate.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*lockEntry)}
}

func (k *keyLocks) acquire(id string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, exists := k.locks[id]
	if !exists {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (k *keyLocks) release(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, exists := k.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(k.locks, id)
	}
}

// withLock executes fn while holding the lock for id.
func (k *keyLocks) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := k.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		k.release(id)
	}()

	if k.locker != nil {
		unlock, err := k.locker.Lock(ctx, id, k.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// Release with a fresh context so a cancelled run still frees the key.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				k.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"controller", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
