package application

import (
	"context"
	"time"

	"bunkerprices-service/internal/domain"
)

// Grant is the result of one client-credentials exchange. ExpiresIn is zero
// when the upstream omitted expires_in; Expiry is the exp claim of the token
// when it could be read.
type Grant struct {
	AccessToken string
	ExpiresIn   time.Duration
	Expiry      time.Time
}

type TokenFetcher interface {
	FetchToken(ctx context.Context) (Grant, error)
}

// TokenStore shares the current token between processes.
type TokenStore interface {
	LoadToken(ctx context.Context) (domain.Token, bool, error)
	SaveToken(ctx context.Context, tok domain.Token) error
}

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type PriceFetcher interface {
	FetchPrices(ctx context.Context, token string, ids []domain.InstrumentID) (map[domain.InstrumentID]domain.QuoteSet, error)
}

// HistoryStore retains a bounded series of snapshots per instrument.
type HistoryStore interface {
	// Append stores the whole batch or nothing, then evicts.
	Append(ctx context.Context, snaps []domain.PriceSnapshot) error
	Evict(ctx context.Context) error
	// QueryRange returns from <= RecordedAt <= to, oldest first. Unknown
	// instruments yield an empty series.
	QueryRange(ctx context.Context, id domain.InstrumentID, from, to time.Time) (domain.Series, error)
	Latest(ctx context.Context, id domain.InstrumentID) (domain.PriceSnapshot, bool, error)
}

// Notifier is told about every successful poll.
type Notifier interface {
	PollCompleted(ctx context.Context, res domain.PollResult)
}

type NoopNotifier struct{}

func (NoopNotifier) PollCompleted(context.Context, domain.PollResult) {}
