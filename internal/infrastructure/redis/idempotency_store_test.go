package redisstore_test

import (
	"context"
	"testing"
	"time"

	redisstore "bunkerprices-service/internal/infrastructure/redis"

	"github.com/stretchr/testify/require"
)

func TestTryReserve(t *testing.T) {
	mr, client := newRedis(t)
	store := redisstore.NewIdempotencyStore(client, time.Hour)

	ctx := context.Background()
	ok, err := store.TryReserve(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.TryReserve(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = store.TryReserve(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
}
