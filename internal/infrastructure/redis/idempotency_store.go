package redisstore

import (
	"context"
	"time"

	"bunkerprices-service/internal/application"

	"github.com/redis/go-redis/v9"
)

var _ application.IdempotencyStore = (*IdempotencyStore)(nil)

const idemPrefix = "prices:idem:"

// IdempotencyStore reserves keys of externally triggered polls for TTL.
type IdempotencyStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{Client: client, TTL: ttl}
}

func (s *IdempotencyStore) TryReserve(ctx context.Context, key string) (bool, error) {
	return s.Client.SetNX(ctx, idemPrefix+key, "1", s.TTL).Result()
}
