package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"bunkerprices-service/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSafetyMargin = 60 * time.Second
	DefaultTokenTTL     = 3600 * time.Second
	DefaultFetchTimeout = 30 * time.Second
)

// TokenCache owns one upstream bearer token and refreshes it on demand. It
// never runs a background timer; callers drive refreshes through Token.
type TokenCache struct {
	fetcher      TokenFetcher
	store        TokenStore
	clock        Clock
	margin       time.Duration
	defaultTTL   time.Duration
	fetchTimeout time.Duration
	log          *zap.Logger

	mu    sync.RWMutex
	tok   domain.Token
	group singleflight.Group

	// rejected is the last token the upstream refused; a shared record still
	// holding it is not adopted again. Guarded by mu.
	rejected string
}

type TokenOption func(*TokenCache)

func WithTokenClock(c Clock) TokenOption        { return func(tc *TokenCache) { tc.clock = c } }
func WithTokenStore(s TokenStore) TokenOption   { return func(tc *TokenCache) { tc.store = s } }
func WithTokenLogger(l *zap.Logger) TokenOption { return func(tc *TokenCache) { tc.log = l } }

func WithSafetyMargin(d time.Duration) TokenOption {
	return func(tc *TokenCache) {
		if d >= 0 {
			tc.margin = d
		}
	}
}

func WithDefaultTTL(d time.Duration) TokenOption {
	return func(tc *TokenCache) {
		if d > 0 {
			tc.defaultTTL = d
		}
	}
}

// WithFetchTimeout bounds one shared refresh, which runs detached from the
// caller that started it.
func WithFetchTimeout(d time.Duration) TokenOption {
	return func(tc *TokenCache) {
		if d > 0 {
			tc.fetchTimeout = d
		}
	}
}

func NewTokenCache(fetcher TokenFetcher, opts ...TokenOption) *TokenCache {
	tc := &TokenCache{
		fetcher:      fetcher,
		margin:       DefaultSafetyMargin,
		defaultTTL:   DefaultTokenTTL,
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.clock == nil {
		tc.clock = realClock{}
	}
	if tc.log == nil {
		tc.log = zap.NewNop()
	}
	return tc
}

// Token returns a bearer token valid for at least the safety margin, fetching
// a new one when the cached token is missing or stale. Concurrent stale
// callers share one fetch; a caller giving up does not cancel it for the rest.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok.Value, nil
	}
	ch := c.group.DoChan("token", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.refresh(fctx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(domain.Token).Value, nil
	}
}

// Invalidate drops the cached token so the next call fetches a fresh one. The
// dropped value is also skipped when found in the shared token store.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	if c.tok.Value != "" {
		c.rejected = c.tok.Value
	}
	c.tok = domain.Token{}
	c.mu.Unlock()
}

// TokenStatus describes the cached token without exposing it.
type TokenStatus struct {
	Cached    bool
	ExpiresAt time.Time
	Valid     bool
}

func (c *TokenCache) Status() TokenStatus {
	c.mu.RLock()
	tok := c.tok
	c.mu.RUnlock()
	if tok.IsZero() {
		return TokenStatus{}
	}
	return TokenStatus{
		Cached:    true,
		ExpiresAt: tok.ExpiresAt,
		Valid:     tok.UsableAt(c.clock.Now(), c.margin),
	}
}

func (c *TokenCache) cached() (domain.Token, bool) {
	c.mu.RLock()
	tok := c.tok
	c.mu.RUnlock()
	return tok, tok.UsableAt(c.clock.Now(), c.margin)
}

func (c *TokenCache) refresh(ctx context.Context) (domain.Token, error) {
	// A flight that finished just before this one may already have refreshed.
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	if c.store != nil {
		shared, found, err := c.store.LoadToken(ctx)
		if err != nil {
			c.log.Warn("token.store_load_failed", zap.Error(err))
		} else if found && shared.Value == c.rejectedValue() {
			c.log.Debug("token.shared_rejected", zap.Time("expires_at", shared.ExpiresAt))
		} else if found && shared.UsableAt(c.clock.Now(), c.margin) {
			c.set(shared)
			c.log.Debug("token.adopted_shared", zap.Time("expires_at", shared.ExpiresAt))
			return shared, nil
		}
	}

	now := c.clock.Now()
	grant, err := c.fetcher.FetchToken(ctx)
	if err != nil {
		var tfe *TokenFetchError
		if !errors.As(err, &tfe) {
			err = &TokenFetchError{Err: err}
		}
		c.log.Warn("token.refresh_failed", zap.Error(err))
		return domain.Token{}, err
	}
	if grant.AccessToken == "" {
		err := &TokenFetchError{Err: errors.New("missing access_token")}
		c.log.Warn("token.refresh_failed", zap.Error(err))
		return domain.Token{}, err
	}

	tok := domain.Token{Value: grant.AccessToken, ExpiresAt: c.expiry(now, grant)}
	c.set(tok)
	c.log.Info("token.refreshed", zap.Time("expires_at", tok.ExpiresAt))

	if c.store != nil {
		if err := c.store.SaveToken(ctx, tok); err != nil {
			c.log.Warn("token.store_save_failed", zap.Error(err))
		}
	}
	return tok, nil
}

// expiry prefers expires_in, then the exp claim, then the default lifetime.
func (c *TokenCache) expiry(now time.Time, g Grant) time.Time {
	switch {
	case g.ExpiresIn > 0:
		return now.Add(g.ExpiresIn)
	case !g.Expiry.IsZero():
		return g.Expiry
	default:
		return now.Add(c.defaultTTL)
	}
}

func (c *TokenCache) rejectedValue() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rejected
}

func (c *TokenCache) set(tok domain.Token) {
	c.mu.Lock()
	c.tok = tok
	c.mu.Unlock()
}
