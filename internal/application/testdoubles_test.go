package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"bunkerprices-service/internal/domain"
)

var ErrRepo = errors.New("repo error")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeFetcher struct {
	calls atomic.Int32
	grant Grant
	err   error
	gate  chan struct{}
}

func (f *fakeFetcher) FetchToken(ctx context.Context) (Grant, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return Grant{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Grant{}, f.err
	}
	return f.grant, nil
}

// fakeTokenStore behaves like the shared record: a save replaces what the
// next load returns.
type fakeTokenStore struct {
	mu    sync.Mutex
	tok   domain.Token
	found bool
	saved []domain.Token
}

func (s *fakeTokenStore) LoadToken(context.Context) (domain.Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok, s.found, nil
}

func (s *fakeTokenStore) SaveToken(_ context.Context, tok domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, tok)
	s.tok, s.found = tok, true
	return nil
}

func (s *fakeTokenStore) put(tok domain.Token) {
	s.mu.Lock()
	s.tok, s.found = tok, true
	s.mu.Unlock()
}

type fakeTokens struct {
	tok         string
	err         error
	invalidated int
}

func (f *fakeTokens) Token(context.Context) (string, error) { return f.tok, f.err }
func (f *fakeTokens) Invalidate()                           { f.invalidated++ }

type fakePrices struct {
	payload map[domain.InstrumentID]domain.QuoteSet
	err     error
	gotTok  string
	gotIDs  []domain.InstrumentID
}

func (f *fakePrices) FetchPrices(_ context.Context, tok string, ids []domain.InstrumentID) (map[domain.InstrumentID]domain.QuoteSet, error) {
	f.gotTok, f.gotIDs = tok, ids
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

// fakeStore keeps appended batches verbatim.
type fakeStore struct {
	batches [][]domain.PriceSnapshot
	series  map[domain.InstrumentID]domain.Series
	err     error
}

func (f *fakeStore) Append(_ context.Context, snaps []domain.PriceSnapshot) error {
	if f.err != nil {
		return f.err
	}
	if f.series == nil {
		f.series = map[domain.InstrumentID]domain.Series{}
	}
	f.batches = append(f.batches, snaps)
	for _, s := range snaps {
		f.series[s.InstrumentID] = append(f.series[s.InstrumentID], s)
	}
	return nil
}

func (f *fakeStore) Evict(context.Context) error { return f.err }

func (f *fakeStore) QueryRange(_ context.Context, id domain.InstrumentID, from, to time.Time) (domain.Series, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out domain.Series
	for _, s := range f.series[id] {
		if !s.RecordedAt.Before(from) && !s.RecordedAt.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) Latest(_ context.Context, id domain.InstrumentID) (domain.PriceSnapshot, bool, error) {
	if f.err != nil {
		return domain.PriceSnapshot{}, false, f.err
	}
	s := f.series[id]
	if len(s) == 0 {
		return domain.PriceSnapshot{}, false, nil
	}
	return s[len(s)-1], true, nil
}

type recordingNotifier struct{ got []domain.PollResult }

func (n *recordingNotifier) PollCompleted(_ context.Context, res domain.PollResult) {
	n.got = append(n.got, res)
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

func quotes(keys ...string) domain.QuoteSet {
	return domain.QuoteSet{Keys: keys, Entries: map[string]domain.QuoteEntry{}}
}

func withEntry(q domain.QuoteSet, key string, e domain.QuoteEntry) domain.QuoteSet {
	q.Entries[key] = e
	return q
}
