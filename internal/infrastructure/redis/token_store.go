package redisstore

import (
	"context"
	"errors"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

var _ application.TokenStore = (*TokenStore)(nil)

const tokenKey = "prices:upstream_token"

// TokenStore shares the upstream token between processes. The key expires
// together with the token.
type TokenStore struct {
	Client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore { return &TokenStore{Client: client} }

func (s *TokenStore) LoadToken(ctx context.Context) (domain.Token, bool, error) {
	vals, err := s.Client.HMGet(ctx, tokenKey, "value", "expires_at").Result()
	if err != nil {
		return domain.Token{}, false, err
	}
	value, _ := vals[0].(string)
	expRaw, _ := vals[1].(string)
	if value == "" || expRaw == "" {
		return domain.Token{}, false, nil
	}
	exp, err := time.Parse(time.RFC3339Nano, expRaw)
	if err != nil {
		return domain.Token{}, false, errors.New("redis token: bad expires_at")
	}
	return domain.Token{Value: value, ExpiresAt: exp}, true, nil
}

func (s *TokenStore) SaveToken(ctx context.Context, tok domain.Token) error {
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tokenKey, "value", tok.Value, "expires_at", tok.ExpiresAt.UTC().Format(time.RFC3339Nano))
		pipe.ExpireAt(ctx, tokenKey, tok.ExpiresAt)
		return nil
	})
	return err
}
