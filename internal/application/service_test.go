package application

import (
	"context"
	"testing"
	"time"

	"bunkerprices-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func seededService(t *testing.T, store *fakeStore, opts ...Option) *PricesService {
	t.Helper()
	instruments := []domain.Instrument{{ID: "A", Name: "CSC"}, {ID: "B"}}
	opts = append([]Option{WithClock(newFakeClock(t0.Add(time.Hour)))}, opts...)
	return NewPricesService(nil, store, nil, instruments, opts...)
}

func snap(id domain.InstrumentID, v *float64, at time.Time) domain.PriceSnapshot {
	return domain.PriceSnapshot{InstrumentID: id, Value: v, RecordedAt: at}
}

func Test_Latest_WithChange(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	require.NoError(t, store.Append(context.Background(), []domain.PriceSnapshot{snap("A", domain.Price(100), t0)}))
	require.NoError(t, store.Append(context.Background(), []domain.PriceSnapshot{snap("A", domain.Price(110), t0.Add(time.Minute))}))
	svc := seededService(t, store)

	got, err := svc.Latest(context.Background(), "A")
	require.NoError(t, err)
	require.Equal(t, "CSC", got.Instrument.Name)
	require.InDelta(t, 110, *got.Value, 1e-9)
	require.InDelta(t, 100, *got.Previous, 1e-9)
	require.InDelta(t, 10, *got.ChangePct, 1e-9)
	require.Equal(t, t0.Add(time.Minute), *got.RecordedAt)
}

func Test_Latest_NoChangeAgainstAbsent(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	require.NoError(t, store.Append(context.Background(), []domain.PriceSnapshot{snap("A", nil, t0)}))
	require.NoError(t, store.Append(context.Background(), []domain.PriceSnapshot{snap("A", domain.Price(5), t0.Add(time.Minute))}))
	svc := seededService(t, store)

	got, err := svc.Latest(context.Background(), "A")
	require.NoError(t, err)
	require.Nil(t, got.Previous)
	require.Nil(t, got.ChangePct)
}

func Test_Latest_NoData(t *testing.T) {
	t.Parallel()
	svc := seededService(t, &fakeStore{})

	got, err := svc.Latest(context.Background(), "unknown")
	require.NoError(t, err)
	require.Nil(t, got.Value)
	require.Nil(t, got.RecordedAt)
	require.Equal(t, domain.InstrumentID("unknown"), got.Instrument.ID)
}

func Test_LatestAll_ConfiguredOrder(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	require.NoError(t, store.Append(context.Background(), []domain.PriceSnapshot{snap("B", domain.Price(1), t0)}))
	svc := seededService(t, store)

	got, err := svc.LatestAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, domain.InstrumentID("A"), got[0].Instrument.ID)
	require.Nil(t, got[0].Value)
	require.InDelta(t, 1, *got[1].Value, 1e-9)
}

func Test_History_DefaultsToRetentionWindow(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	now := t0.Add(time.Hour)
	require.NoError(t, store.Append(context.Background(), []domain.PriceSnapshot{snap("A", domain.Price(1), now.Add(-2*time.Hour))}))
	require.NoError(t, store.Append(context.Background(), []domain.PriceSnapshot{snap("A", domain.Price(2), now.Add(-time.Minute)), snap("B", nil, now.Add(-time.Minute))}))
	svc := seededService(t, store, WithRetention(time.Hour))

	id := domain.InstrumentID("A")
	got, err := svc.History(context.Background(), HistoryQuery{Instrument: &id})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.InDelta(t, 2, *got[0].Value, 1e-9)

	all, err := svc.History(context.Background(), HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, domain.InstrumentID("A"), all[0].InstrumentID)
	require.Equal(t, domain.InstrumentID("B"), all[1].InstrumentID)
}

func Test_History_FromAfterTo(t *testing.T) {
	t.Parallel()
	svc := seededService(t, &fakeStore{})
	from, to := t0.Add(time.Hour), t0
	_, err := svc.History(context.Background(), HistoryQuery{From: &from, To: &to})
	require.ErrorIs(t, err, ErrBadRequest)
}

func Test_History_StoreError(t *testing.T) {
	t.Parallel()
	svc := seededService(t, &fakeStore{err: ErrRepo})
	_, err := svc.History(context.Background(), HistoryQuery{})
	var se *StoreError
	require.ErrorAs(t, err, &se)
}

func Test_Poll_NotifiesOnSuccess(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{}
	store := &fakeStore{}
	poller := NewPricePoller(&fakeTokens{tok: "tok"}, &fakePrices{}, store, []domain.InstrumentID{"A"}, newFakeClock(t0), nil)
	svc := NewPricesService(poller, store, nil, nil, WithNotifier(n))

	res, err := svc.Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.PollResult{res}, n.got)
}

func Test_Poll_NoNotifyOnFailure(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{}
	poller := NewPricePoller(&fakeTokens{err: ErrRepo}, &fakePrices{}, &fakeStore{}, []domain.InstrumentID{"A"}, nil, nil)
	svc := NewPricesService(poller, &fakeStore{}, nil, nil, WithNotifier(n))

	_, err := svc.Poll(context.Background())
	require.Error(t, err)
	require.Empty(t, n.got)
}

func Test_TriggerPoll_Idempotency_Conflict(t *testing.T) {
	t.Parallel()
	poller := NewPricePoller(&fakeTokens{tok: "tok"}, &fakePrices{}, &fakeStore{}, []domain.InstrumentID{"A"}, nil, nil)
	svc := NewPricesService(poller, &fakeStore{}, nil, nil, WithIdempotency(&fakeIdem{}))

	key := "ik-1"
	_, err := svc.TriggerPoll(context.Background(), &key)
	require.NoError(t, err)
	_, err = svc.TriggerPoll(context.Background(), &key)
	require.ErrorIs(t, err, ErrConflict)
}

func Test_TokenStatus_NoCache(t *testing.T) {
	t.Parallel()
	svc := seededService(t, &fakeStore{})
	require.Equal(t, TokenStatus{}, svc.TokenStatus())
}

func Test_EnsureToken_FetchesAndReports(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(t0)
	fetcher := &fakeFetcher{grant: Grant{AccessToken: "tok", ExpiresIn: time.Hour}}
	tokens := NewTokenCache(fetcher, WithTokenClock(clock))
	svc := NewPricesService(nil, &fakeStore{}, tokens, nil, WithClock(clock))

	st, err := svc.EnsureToken(context.Background())
	require.NoError(t, err)
	require.True(t, st.Cached)
	require.True(t, st.Valid)
	require.Equal(t, t0.Add(time.Hour), st.ExpiresAt)
	require.Equal(t, int32(1), fetcher.calls.Load())
}

func Test_EnsureToken_FetchError(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{err: &TokenFetchError{Status: 401}}
	svc := NewPricesService(nil, &fakeStore{}, NewTokenCache(fetcher), nil)

	_, err := svc.EnsureToken(context.Background())
	var tfe *TokenFetchError
	require.ErrorAs(t, err, &tfe)
	require.Equal(t, 401, tfe.Status)
}
