package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"
	"bunkerprices-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ application.HistoryStore = (*HistoryStore)(nil)

// appendLockKey serializes append plus evict across processes sharing a database.
const appendLockKey = 0x70726963 // "pric"

type HistoryStore struct {
	db         *DB
	uow        application.UnitOfWork
	retention  time.Duration
	maxEntries int
	clock      application.Clock
}

func NewHistoryStore(db *DB, uow application.UnitOfWork, retention time.Duration, maxEntries int, clock application.Clock) *HistoryStore {
	if uow == nil {
		uow = &UnitOfWork{Pool: db.Pool}
	}
	if clock == nil {
		clock = application.SystemClock()
	}
	return &HistoryStore{db: db, uow: uow, retention: retention, maxEntries: maxEntries, clock: clock}
}

func (s *HistoryStore) Append(ctx context.Context, snaps []domain.PriceSnapshot) error {
	log := logx.L().With(
		zap.String("repo", "price_history"),
		zap.String("operation", "Append"),
		zap.Int("snapshots", len(snaps)),
	)
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		q := s.db.conn(ctx)
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
			return fmt.Errorf("lock: %w", err)
		}
		if err := s.checkOrder(ctx, q, snaps); err != nil {
			return err
		}
		const ins = `
        INSERT INTO price_history(instrument_id, value, recorded_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (instrument_id, recorded_at) DO UPDATE SET value = EXCLUDED.value`
		batch := &pgx.Batch{}
		for _, snap := range snaps {
			batch.Queue(ins, string(snap.InstrumentID), snap.Value, snap.RecordedAt)
		}
		if err := q.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return s.evict(ctx, q)
	})
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return &application.StoreError{Op: "append", Err: err}
	}
	log.Debug("sql.exec_success")
	return nil
}

func (s *HistoryStore) checkOrder(ctx context.Context, q querier, snaps []domain.PriceSnapshot) error {
	seen := make(map[domain.InstrumentID]struct{}, len(snaps))
	for _, snap := range snaps {
		if snap.InstrumentID == "" {
			return errors.New("empty instrument id")
		}
		if _, dup := seen[snap.InstrumentID]; dup {
			return fmt.Errorf("duplicate instrument %q in batch", snap.InstrumentID)
		}
		seen[snap.InstrumentID] = struct{}{}

		var last *time.Time
		const sel = `SELECT max(recorded_at) FROM price_history WHERE instrument_id = $1`
		if err := q.QueryRow(ctx, sel, string(snap.InstrumentID)).Scan(&last); err != nil {
			return fmt.Errorf("last recorded_at: %w", err)
		}
		if last != nil && snap.RecordedAt.Before(*last) {
			return fmt.Errorf("instrument %q: recorded_at %s before %s", snap.InstrumentID, snap.RecordedAt, *last)
		}
	}
	return nil
}

func (s *HistoryStore) Evict(ctx context.Context) error {
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		q := s.db.conn(ctx)
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
			return fmt.Errorf("lock: %w", err)
		}
		return s.evict(ctx, q)
	})
	if err != nil {
		logx.L().Error("sql.exec_failed", zap.String("repo", "price_history"), zap.String("operation", "Evict"), zap.Error(err))
		return &application.StoreError{Op: "evict", Err: err}
	}
	return nil
}

func (s *HistoryStore) evict(ctx context.Context, q querier) error {
	cutoff := s.clock.Now().Add(-s.retention)
	if _, err := q.Exec(ctx, `DELETE FROM price_history WHERE recorded_at < $1`, cutoff); err != nil {
		return fmt.Errorf("evict by age: %w", err)
	}
	if s.maxEntries <= 0 {
		return nil
	}
	const capped = `
        DELETE FROM price_history p
        USING (
            SELECT instrument_id, recorded_at,
                   row_number() OVER (PARTITION BY instrument_id ORDER BY recorded_at DESC) AS rn
            FROM price_history
        ) r
        WHERE p.instrument_id = r.instrument_id
          AND p.recorded_at = r.recorded_at
          AND r.rn > $1`
	if _, err := q.Exec(ctx, capped, s.maxEntries); err != nil {
		return fmt.Errorf("evict by count: %w", err)
	}
	return nil
}

func (s *HistoryStore) QueryRange(ctx context.Context, id domain.InstrumentID, from, to time.Time) (domain.Series, error) {
	const sel = `
        SELECT value, recorded_at FROM price_history
        WHERE instrument_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
        ORDER BY recorded_at ASC`
	rows, err := s.db.conn(ctx).Query(ctx, sel, string(id), from, to)
	if err != nil {
		logx.L().Error("sql.query_failed", zap.String("repo", "price_history"), zap.String("operation", "QueryRange"), zap.Error(err))
		return nil, &application.StoreError{Op: "query_range", Err: err}
	}
	defer rows.Close()

	out := domain.Series{}
	for rows.Next() {
		snap := domain.PriceSnapshot{InstrumentID: id}
		if err := rows.Scan(&snap.Value, &snap.RecordedAt); err != nil {
			return nil, &application.StoreError{Op: "query_range", Err: err}
		}
		snap.RecordedAt = snap.RecordedAt.UTC()
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, &application.StoreError{Op: "query_range", Err: err}
	}
	return out, nil
}

func (s *HistoryStore) Latest(ctx context.Context, id domain.InstrumentID) (domain.PriceSnapshot, bool, error) {
	const sel = `
        SELECT value, recorded_at FROM price_history
        WHERE instrument_id = $1
        ORDER BY recorded_at DESC LIMIT 1`
	snap := domain.PriceSnapshot{InstrumentID: id}
	err := s.db.conn(ctx).QueryRow(ctx, sel, string(id)).Scan(&snap.Value, &snap.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PriceSnapshot{}, false, nil
	}
	if err != nil {
		return domain.PriceSnapshot{}, false, &application.StoreError{Op: "latest", Err: err}
	}
	snap.RecordedAt = snap.RecordedAt.UTC()
	return snap, true, nil
}
