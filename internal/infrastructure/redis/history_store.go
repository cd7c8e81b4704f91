package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ application.HistoryStore = (*HistoryStore)(nil)

const (
	historyPrefix  = "prices:history:"
	instrumentsKey = "prices:instruments"
	maxTxAttempts  = 5
)

// HistoryStore keeps one sorted set per instrument scored by RecordedAt in
// microseconds. Appends run in a WATCH/MULTI transaction so a batch lands
// completely or not at all.
type HistoryStore struct {
	client     *redis.Client
	retention  time.Duration
	maxEntries int
	clock      application.Clock
	log        *zap.Logger
}

func NewHistoryStore(client *redis.Client, retention time.Duration, maxEntries int, clock application.Clock, log *zap.Logger) *HistoryStore {
	if clock == nil {
		clock = application.SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryStore{client: client, retention: retention, maxEntries: maxEntries, clock: clock, log: log}
}

// member is the stored form of a snapshot. ID is a time-ordered UUID kept as
// the first field: it makes equal snapshots distinct members, and members
// sharing a score then sort in append order.
type member struct {
	ID    string   `json:"id"`
	Value *float64 `json:"v"`
	At    int64    `json:"t"`
}

func historyKey(id domain.InstrumentID) string { return historyPrefix + string(id) }

func score(t time.Time) float64 { return float64(t.UnixMicro()) }

func (s *HistoryStore) Append(ctx context.Context, snaps []domain.PriceSnapshot) error {
	if len(snaps) == 0 {
		return s.Evict(ctx)
	}
	keys := make([]string, 0, len(snaps))
	seen := make(map[domain.InstrumentID]struct{}, len(snaps))
	for _, snap := range snaps {
		if snap.InstrumentID == "" {
			return &application.StoreError{Op: "append", Err: errors.New("empty instrument id")}
		}
		if _, dup := seen[snap.InstrumentID]; dup {
			return &application.StoreError{Op: "append", Err: fmt.Errorf("duplicate instrument %q in batch", snap.InstrumentID)}
		}
		seen[snap.InstrumentID] = struct{}{}
		keys = append(keys, historyKey(snap.InstrumentID))
	}

	now := s.clock.Now()
	txf := func(tx *redis.Tx) error {
		for _, snap := range snaps {
			last, err := tx.ZRevRangeWithScores(ctx, historyKey(snap.InstrumentID), 0, 0).Result()
			if err != nil {
				return err
			}
			if len(last) > 0 && score(snap.RecordedAt) < last[0].Score {
				return fmt.Errorf("instrument %q: recorded_at %s before last entry", snap.InstrumentID, snap.RecordedAt)
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, snap := range snaps {
				id, err := uuid.NewV7()
				if err != nil {
					return err
				}
				raw, err := json.Marshal(member{ID: id.String(), Value: snap.Value, At: snap.RecordedAt.UnixNano()})
				if err != nil {
					return err
				}
				key := historyKey(snap.InstrumentID)
				pipe.ZAdd(ctx, key, redis.Z{Score: score(snap.RecordedAt), Member: string(raw)})
				pipe.SAdd(ctx, instrumentsKey, string(snap.InstrumentID))
				s.evictKey(ctx, pipe, key, now)
			}
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < maxTxAttempts; i++ {
		err = s.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		s.log.Debug("redis.append_retry", zap.Int("attempt", i+1))
	}
	if err != nil {
		s.log.Warn("redis.append_failed", zap.Error(err))
		return &application.StoreError{Op: "append", Err: err}
	}
	return nil
}

func (s *HistoryStore) evictKey(ctx context.Context, pipe redis.Pipeliner, key string, now time.Time) {
	cutoff := strconv.FormatInt(now.Add(-s.retention).UnixMicro(), 10)
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+cutoff)
	if s.maxEntries > 0 {
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.maxEntries-1))
	}
}

func (s *HistoryStore) Evict(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, instrumentsKey).Result()
	if err != nil {
		return &application.StoreError{Op: "evict", Err: err}
	}
	now := s.clock.Now()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			s.evictKey(ctx, pipe, historyKey(domain.InstrumentID(id)), now)
		}
		return nil
	})
	if err != nil {
		return &application.StoreError{Op: "evict", Err: err}
	}
	return nil
}

func (s *HistoryStore) QueryRange(ctx context.Context, id domain.InstrumentID, from, to time.Time) (domain.Series, error) {
	if from.After(to) {
		return domain.Series{}, nil
	}
	zs, err := s.client.ZRangeByScore(ctx, historyKey(id), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMicro(), 10),
		Max: strconv.FormatInt(to.UnixMicro(), 10),
	}).Result()
	if err != nil {
		return nil, &application.StoreError{Op: "query_range", Err: err}
	}
	out := make(domain.Series, 0, len(zs))
	for _, raw := range zs {
		snap, err := decodeMember(id, raw)
		if err != nil {
			return nil, &application.StoreError{Op: "query_range", Err: err}
		}
		// Scores are microsecond-truncated; filter on the exact time.
		if snap.RecordedAt.Before(from) || snap.RecordedAt.After(to) {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *HistoryStore) Latest(ctx context.Context, id domain.InstrumentID) (domain.PriceSnapshot, bool, error) {
	zs, err := s.client.ZRevRange(ctx, historyKey(id), 0, 0).Result()
	if err != nil {
		return domain.PriceSnapshot{}, false, &application.StoreError{Op: "latest", Err: err}
	}
	if len(zs) == 0 {
		return domain.PriceSnapshot{}, false, nil
	}
	snap, err := decodeMember(id, zs[0])
	if err != nil {
		return domain.PriceSnapshot{}, false, &application.StoreError{Op: "latest", Err: err}
	}
	return snap, true, nil
}

func (s *HistoryStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func decodeMember(id domain.InstrumentID, raw string) (domain.PriceSnapshot, error) {
	var m member
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("decode member: %w", err)
	}
	return domain.PriceSnapshot{
		InstrumentID: id,
		Value:        m.Value,
		RecordedAt:   time.Unix(0, m.At).UTC(),
	}, nil
}
