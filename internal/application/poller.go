package application

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"bunkerprices-service/internal/domain"

	"go.uber.org/zap"
)

// PricePoller runs one fetch-normalize-append cycle per call. It never
// retries; the scheduler that drives it does.
type PricePoller struct {
	tokens TokenSource
	prices PriceFetcher
	store  HistoryStore
	ids    []domain.InstrumentID
	clock  Clock
	log    *zap.Logger

	mu   sync.Mutex
	last time.Time
}

func NewPricePoller(tokens TokenSource, prices PriceFetcher, store HistoryStore, ids []domain.InstrumentID, clock Clock, log *zap.Logger) *PricePoller {
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PricePoller{
		tokens: tokens,
		prices: prices,
		store:  store,
		ids:    append([]domain.InstrumentID(nil), ids...),
		clock:  clock,
		log:    log,
	}
}

type invalidator interface{ Invalidate() }

// PollOnce fetches live prices for every configured instrument and appends
// them as one batch sharing a single RecordedAt. Nothing is appended when the
// token or the price request fails.
func (p *PricePoller) PollOnce(ctx context.Context) (domain.PollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.tokens.Token(ctx)
	if err != nil {
		p.log.Warn("poll.auth_failed", zap.Error(err))
		return domain.PollResult{}, &UpstreamAuthError{Err: err}
	}

	payload, err := p.prices.FetchPrices(ctx, tok, p.ids)
	if err != nil {
		var pe *UpstreamPriceError
		if !errors.As(err, &pe) {
			pe = &UpstreamPriceError{Err: err}
		}
		if pe.Status == http.StatusUnauthorized {
			if inv, ok := p.tokens.(invalidator); ok {
				inv.Invalidate()
			}
		}
		p.log.Warn("poll.prices_failed", zap.Int("status", pe.Status), zap.Error(pe))
		return domain.PollResult{}, pe
	}

	at := p.clock.Now().UTC().Truncate(time.Microsecond)
	if at.Before(p.last) {
		at = p.last
	}
	snaps := Normalize(p.ids, payload, at)
	if err := p.store.Append(ctx, snaps); err != nil {
		err = asStoreError("append", err)
		p.log.Error("poll.append_failed", zap.Error(err))
		return domain.PollResult{}, err
	}
	p.last = at

	missing := 0
	for _, s := range snaps {
		if !s.HasValue() {
			missing++
		}
	}
	p.log.Info("poll.success",
		zap.Time("recorded_at", at),
		zap.Int("instruments", len(snaps)),
		zap.Int("missing", missing),
	)
	return domain.PollResult{RecordedAt: at, Snapshots: snaps}, nil
}
