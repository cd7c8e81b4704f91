package httpserver

import (
	"context"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"
	"bunkerprices-service/internal/infrastructure/memory"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type fakeFetcher struct{ err error }

func (f fakeFetcher) FetchToken(context.Context) (application.Grant, error) {
	if f.err != nil {
		return application.Grant{}, f.err
	}
	return application.Grant{AccessToken: "tok", ExpiresIn: time.Hour}, nil
}

type fakePrices struct {
	payload map[domain.InstrumentID]domain.QuoteSet
	err     error
}

func (f *fakePrices) FetchPrices(context.Context, string, []domain.InstrumentID) (map[domain.InstrumentID]domain.QuoteSet, error) {
	return f.payload, f.err
}

type env struct {
	svc    *application.PricesService
	poller *application.PricePoller
	store  *memory.HistoryStore
	prices *fakePrices
	clock  *fixedClock
}

func newEnv(fetchErr error) *env {
	clk := &fixedClock{t: t0}
	store := memory.NewHistoryStore(time.Hour, 96, clk, nil)
	tokens := application.NewTokenCache(fakeFetcher{err: fetchErr}, application.WithTokenClock(clk))
	prices := &fakePrices{payload: map[domain.InstrumentID]domain.QuoteSet{
		"A": {Keys: []string{"Q1"}, Entries: map[string]domain.QuoteEntry{"Q1": {Value: domain.Price(10)}}},
		"B": {},
	}}
	instruments := []domain.Instrument{{ID: "A", Name: "CSC"}, {ID: "B"}}
	poller := application.NewPricePoller(tokens, prices, store, domain.IDs(instruments), clk, nil)
	svc := application.NewPricesService(poller, store, tokens, instruments,
		application.WithClock(clk), application.WithRetention(time.Hour))
	return &env{svc: svc, poller: poller, store: store, prices: prices, clock: clk}
}

type fakeIdem struct{ seen map[string]bool }

func (f *fakeIdem) TryReserve(_ context.Context, k string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}
