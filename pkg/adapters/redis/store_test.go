package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/animgate/pkg/adapters/redis"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunControllerStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	// 1. Save
	err := store.Save(ctx, "hero", &domain.Controller{Name: "Hero"})
	require.NoError(t, err)

	// 2. Listed immediately
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "hero")

	// 3. Expire the key in miniredis
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "hero")
	assert.ErrorIs(t, err, domain.ErrControllerNotFound)

	// 4. Index cleanup relies on wall clock
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Save(ctx, "hero", &domain.Controller{Name: "Hero"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:hero"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")
}
