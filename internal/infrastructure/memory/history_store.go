package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"

	"go.uber.org/zap"
)

var _ application.HistoryStore = (*HistoryStore)(nil)

// HistoryStore keeps every series in process memory. Writers take the
// exclusive lock for append plus evict; readers share the lock.
type HistoryStore struct {
	mu     sync.RWMutex
	series map[domain.InstrumentID]domain.Series

	retention  time.Duration
	maxEntries int
	clock      application.Clock
	log        *zap.Logger
}

// NewHistoryStore builds a store keeping entries younger than retention and
// at most maxEntries per instrument (0 disables the cap).
func NewHistoryStore(retention time.Duration, maxEntries int, clock application.Clock, log *zap.Logger) *HistoryStore {
	if clock == nil {
		clock = application.SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryStore{
		series:     map[domain.InstrumentID]domain.Series{},
		retention:  retention,
		maxEntries: maxEntries,
		clock:      clock,
		log:        log,
	}
}

func (s *HistoryStore) Append(_ context.Context, snaps []domain.PriceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateLocked(snaps); err != nil {
		return &application.StoreError{Op: "append", Err: err}
	}
	for _, snap := range snaps {
		if snap.Value != nil {
			snap.Value = domain.Price(*snap.Value)
		}
		s.series[snap.InstrumentID] = append(s.series[snap.InstrumentID], snap)
	}
	removed := s.evictLocked(s.clock.Now())
	s.log.Debug("history.appended", zap.Int("snapshots", len(snaps)), zap.Int("evicted", removed))
	return nil
}

// validateLocked rejects the batch before anything is written so a failed
// append leaves every series untouched.
func (s *HistoryStore) validateLocked(snaps []domain.PriceSnapshot) error {
	seen := make(map[domain.InstrumentID]struct{}, len(snaps))
	for _, snap := range snaps {
		if snap.InstrumentID == "" {
			return fmt.Errorf("empty instrument id")
		}
		if _, dup := seen[snap.InstrumentID]; dup {
			return fmt.Errorf("duplicate instrument %q in batch", snap.InstrumentID)
		}
		seen[snap.InstrumentID] = struct{}{}
		if cur := s.series[snap.InstrumentID]; len(cur) > 0 {
			if last := cur[len(cur)-1].RecordedAt; snap.RecordedAt.Before(last) {
				return fmt.Errorf("instrument %q: recorded_at %s before %s", snap.InstrumentID, snap.RecordedAt, last)
			}
		}
	}
	return nil
}

func (s *HistoryStore) Evict(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.clock.Now())
	return nil
}

func (s *HistoryStore) evictLocked(now time.Time) int {
	cutoff := now.Add(-s.retention)
	removed := 0
	for id, series := range s.series {
		keep := sort.Search(len(series), func(i int) bool {
			return !series[i].RecordedAt.Before(cutoff)
		})
		if s.maxEntries > 0 && len(series)-keep > s.maxEntries {
			keep = len(series) - s.maxEntries
		}
		if keep == 0 {
			continue
		}
		removed += keep
		if keep == len(series) {
			delete(s.series, id)
			continue
		}
		s.series[id] = append(domain.Series(nil), series[keep:]...)
	}
	return removed
}

func (s *HistoryStore) QueryRange(_ context.Context, id domain.InstrumentID, from, to time.Time) (domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[id]
	lo := sort.Search(len(series), func(i int) bool { return !series[i].RecordedAt.Before(from) })
	hi := sort.Search(len(series), func(i int) bool { return series[i].RecordedAt.After(to) })
	if lo >= hi {
		return domain.Series{}, nil
	}
	return append(domain.Series(nil), series[lo:hi]...), nil
}

func (s *HistoryStore) Latest(_ context.Context, id domain.InstrumentID) (domain.PriceSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[id]
	if len(series) == 0 {
		return domain.PriceSnapshot{}, false, nil
	}
	return series[len(series)-1], true, nil
}
