package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"bunkerprices-service/internal/domain"

	"go.uber.org/zap"
)

type Poller interface {
	PollOnce(ctx context.Context) (domain.PollResult, error)
}

type PricesService struct {
	poller      Poller
	store       HistoryStore
	tokens      *TokenCache
	instruments []domain.Instrument
	retention   time.Duration
	notifier    Notifier
	idem        IdempotencyStore
	clock       Clock
	log         *zap.Logger
}

type Option func(*PricesService)

func WithClock(c Clock) Option                  { return func(s *PricesService) { s.clock = c } }
func WithNotifier(n Notifier) Option            { return func(s *PricesService) { s.notifier = n } }
func WithIdempotency(i IdempotencyStore) Option { return func(s *PricesService) { s.idem = i } }
func WithLogger(l *zap.Logger) Option           { return func(s *PricesService) { s.log = l } }
func WithRetention(d time.Duration) Option      { return func(s *PricesService) { s.retention = d } }

func NewPricesService(poller Poller, store HistoryStore, tokens *TokenCache, instruments []domain.Instrument, opts ...Option) *PricesService {
	s := &PricesService{
		poller:      poller,
		store:       store,
		tokens:      tokens,
		instruments: instruments,
		retention:   time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.notifier == nil {
		s.notifier = NoopNotifier{}
	}
	if s.idem == nil {
		s.idem = NoopIdempotency{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *PricesService) Instruments() []domain.Instrument { return s.instruments }

// Poll runs one cycle and notifies subscribers on success.
func (s *PricesService) Poll(ctx context.Context) (domain.PollResult, error) {
	res, err := s.poller.PollOnce(ctx)
	if err != nil {
		return domain.PollResult{}, err
	}
	s.notifier.PollCompleted(ctx, res)
	return res, nil
}

// TriggerPoll is Poll for external callers; a repeated idempotency key is
// rejected with ErrConflict.
func (s *PricesService) TriggerPoll(ctx context.Context, idemKey *string) (domain.PollResult, error) {
	if idemKey != nil && *idemKey != "" {
		ok, err := s.idem.TryReserve(ctx, "poll:"+*idemKey)
		if err != nil {
			return domain.PollResult{}, err
		}
		if !ok {
			return domain.PollResult{}, ErrConflict
		}
	}
	return s.Poll(ctx)
}

// LatestPrice is the newest retained snapshot of one instrument together with
// the change against the one before it.
type LatestPrice struct {
	Instrument domain.Instrument
	Value      *float64
	RecordedAt *time.Time
	Previous   *float64
	ChangePct  *float64
}

func (s *PricesService) Latest(ctx context.Context, id domain.InstrumentID) (LatestPrice, error) {
	in := s.lookup(id)
	snap, ok, err := s.store.Latest(ctx, id)
	if err != nil {
		return LatestPrice{}, asStoreError("latest", err)
	}
	if !ok {
		return LatestPrice{Instrument: in}, nil
	}
	out := LatestPrice{Instrument: in, Value: snap.Value}
	at := snap.RecordedAt
	out.RecordedAt = &at

	series, err := s.store.QueryRange(ctx, id, snap.RecordedAt.Add(-s.retention), snap.RecordedAt)
	if err != nil {
		return LatestPrice{}, asStoreError("query_range", err)
	}
	if n := series.Len(); n >= 2 {
		prev := series[n-2]
		out.Previous = prev.Value
		out.ChangePct = changePct(prev.Value, snap.Value)
	}
	return out, nil
}

func (s *PricesService) LatestAll(ctx context.Context) ([]LatestPrice, error) {
	out := make([]LatestPrice, 0, len(s.instruments))
	for _, in := range s.instruments {
		lp, err := s.Latest(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, lp)
	}
	return out, nil
}

// HistoryQuery selects a history window. Nil bounds default to the retention
// window ending now; a nil Instrument selects every configured instrument.
type HistoryQuery struct {
	Instrument *domain.InstrumentID
	From       *time.Time
	To         *time.Time
}

func (s *PricesService) History(ctx context.Context, q HistoryQuery) (domain.Series, error) {
	now := s.clock.Now()
	to := now
	if q.To != nil {
		to = *q.To
	}
	from := now.Add(-s.retention)
	if q.From != nil {
		from = *q.From
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: from after to", ErrBadRequest)
	}

	if q.Instrument != nil {
		series, err := s.store.QueryRange(ctx, *q.Instrument, from, to)
		if err != nil {
			return nil, asStoreError("query_range", err)
		}
		return series, nil
	}

	var all domain.Series
	for _, in := range s.instruments {
		series, err := s.store.QueryRange(ctx, in.ID, from, to)
		if err != nil {
			return nil, asStoreError("query_range", err)
		}
		all = append(all, series...)
	}
	slices.SortStableFunc(all, func(a, b domain.PriceSnapshot) int {
		return a.RecordedAt.Compare(b.RecordedAt)
	})
	return all, nil
}

func (s *PricesService) TokenStatus() TokenStatus {
	if s.tokens == nil {
		return TokenStatus{}
	}
	return s.tokens.Status()
}

// EnsureToken obtains a usable token, adopting a shared one when present,
// and reports the resulting status.
func (s *PricesService) EnsureToken(ctx context.Context) (TokenStatus, error) {
	if s.tokens == nil {
		return TokenStatus{}, nil
	}
	if _, err := s.tokens.Token(ctx); err != nil {
		return TokenStatus{}, err
	}
	return s.tokens.Status(), nil
}

func (s *PricesService) lookup(id domain.InstrumentID) domain.Instrument {
	for _, in := range s.instruments {
		if in.ID == id {
			return in
		}
	}
	return domain.Instrument{ID: id}
}

func changePct(prev, cur *float64) *float64 {
	if prev == nil || cur == nil || *prev == 0 {
		return nil
	}
	pct := (*cur - *prev) / *prev * 100
	return &pct
}
