package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/harmony/core"
)

// needs a live server: REDIS_TEST_ADDR=localhost:6379 go test ./storage/cache/redisstore
func TestRevocationStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	conf := core.NewTestConfig()
	conf.Redis.Address = addr

	client, err := Open(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRevocationStore(client)
	tokenID := uuid.New().String()

	revoked, err := store.IsRevoked(ctx, tokenID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, tokenID, time.Now().Add(time.Minute)))
	revoked, err = store.IsRevoked(ctx, tokenID)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, keyPrefix+tokenID).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute, "expires with its token")

	expired := uuid.New().String()
	require.NoError(t, store.Revoke(ctx, expired, time.Now().Add(-time.Second)))
	revoked, err = store.IsRevoked(ctx, expired)
	require.NoError(t, err)
	assert.False(t, revoked, "expired tokens are not stored")
}
