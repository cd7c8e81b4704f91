package application

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"bunkerprices-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestPollOnce_AppendsOneBatch(t *testing.T) {
	t.Parallel()
	prices := &fakePrices{payload: map[domain.InstrumentID]domain.QuoteSet{
		"A": withEntry(quotes("Q1"), "Q1", domain.QuoteEntry{Value: domain.Price(10)}),
		"B": quotes(),
	}}
	store := &fakeStore{}
	clk := newFakeClock(t0.Add(123456789 * time.Nanosecond))
	p := NewPricePoller(&fakeTokens{tok: "tok"}, prices, store, []domain.InstrumentID{"A", "B"}, clk, nil)

	res, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok", prices.gotTok)
	require.Equal(t, []domain.InstrumentID{"A", "B"}, prices.gotIDs)
	require.Len(t, store.batches, 1)
	require.Equal(t, res.Snapshots, store.batches[0])
	require.Equal(t, t0.Add(123456*time.Microsecond), res.RecordedAt)
	for _, s := range res.Snapshots {
		require.Equal(t, res.RecordedAt, s.RecordedAt)
	}
	require.InDelta(t, 10, *res.Snapshots[0].Value, 1e-9)
	require.Nil(t, res.Snapshots[1].Value)
}

func TestPollOnce_TokenFailure(t *testing.T) {
	t.Parallel()
	cause := &TokenFetchError{Status: 401, Body: "denied"}
	prices := &fakePrices{}
	store := &fakeStore{}
	p := NewPricePoller(&fakeTokens{err: cause}, prices, store, []domain.InstrumentID{"A"}, nil, nil)

	_, err := p.PollOnce(context.Background())
	var ae *UpstreamAuthError
	require.ErrorAs(t, err, &ae)
	var tfe *TokenFetchError
	require.ErrorAs(t, err, &tfe)
	require.Equal(t, 401, tfe.Status)
	require.Empty(t, prices.gotTok)
	require.Empty(t, store.batches)
}

func TestPollOnce_PriceFailureDoesNotTouchStore(t *testing.T) {
	t.Parallel()
	prices := &fakePrices{err: &UpstreamPriceError{Status: 503, Body: "down"}}
	store := &fakeStore{}
	p := NewPricePoller(&fakeTokens{tok: "tok"}, prices, store, []domain.InstrumentID{"A"}, nil, nil)

	_, err := p.PollOnce(context.Background())
	var pe *UpstreamPriceError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 503, pe.Status)
	require.Equal(t, "down", pe.Body)
	require.Empty(t, store.batches)
}

func TestPollOnce_PlainPriceErrorIsWrapped(t *testing.T) {
	t.Parallel()
	cause := context.DeadlineExceeded
	p := NewPricePoller(&fakeTokens{tok: "tok"}, &fakePrices{err: cause}, &fakeStore{}, []domain.InstrumentID{"A"}, nil, nil)

	_, err := p.PollOnce(context.Background())
	var pe *UpstreamPriceError
	require.ErrorAs(t, err, &pe)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollOnce_UnauthorizedInvalidatesToken(t *testing.T) {
	t.Parallel()
	tokens := &fakeTokens{tok: "tok"}
	prices := &fakePrices{err: &UpstreamPriceError{Status: http.StatusUnauthorized}}
	p := NewPricePoller(tokens, prices, &fakeStore{}, []domain.InstrumentID{"A"}, nil, nil)

	_, err := p.PollOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, tokens.invalidated)
}

func TestPollOnce_StoreFailure(t *testing.T) {
	t.Parallel()
	p := NewPricePoller(&fakeTokens{tok: "tok"}, &fakePrices{}, &fakeStore{err: ErrRepo}, []domain.InstrumentID{"A"}, nil, nil)

	_, err := p.PollOnce(context.Background())
	var se *StoreError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "append", se.Op)
	require.True(t, errors.Is(err, ErrRepo))
}

func TestPollOnce_RecordedAtNeverGoesBackwards(t *testing.T) {
	t.Parallel()
	clk := newFakeClock(t0)
	store := &fakeStore{}
	p := NewPricePoller(&fakeTokens{tok: "tok"}, &fakePrices{}, store, []domain.InstrumentID{"A"}, clk, nil)

	first, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	clk.Advance(-time.Minute)
	second, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	require.False(t, second.RecordedAt.Before(first.RecordedAt))
}
