package redisstore_test

import (
	"context"
	"testing"
	"time"

	"bunkerprices-service/internal/domain"
	redisstore "bunkerprices-service/internal/infrastructure/redis"

	"github.com/stretchr/testify/require"
)

func TestTokenStore_RoundTrip(t *testing.T) {
	mr, client := newRedis(t)
	s := redisstore.NewTokenStore(client)
	ctx := context.Background()

	_, found, err := s.LoadToken(ctx)
	require.NoError(t, err)
	require.False(t, found)

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	require.NoError(t, s.SaveToken(ctx, domain.Token{Value: "tok", ExpiresAt: exp}))

	got, found, err := s.LoadToken(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "tok", got.Value)
	require.True(t, exp.Equal(got.ExpiresAt))
	require.Greater(t, mr.TTL("prices:upstream_token"), time.Duration(0))
}
