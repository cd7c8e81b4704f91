package pg

import (
	"context"
	"errors"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

var _ application.TokenStore = (*TokenStore)(nil)

// TokenStore keeps the shared upstream token in a single-row table.
type TokenStore struct{ db *DB }

func NewTokenStore(db *DB) *TokenStore { return &TokenStore{db: db} }

func (s *TokenStore) LoadToken(ctx context.Context) (domain.Token, bool, error) {
	var tok domain.Token
	err := s.db.conn(ctx).QueryRow(ctx, `SELECT token, expires_at FROM upstream_token WHERE id = 1`).
		Scan(&tok.Value, &tok.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Token{}, false, nil
	}
	if err != nil {
		return domain.Token{}, false, err
	}
	return tok, true, nil
}

func (s *TokenStore) SaveToken(ctx context.Context, tok domain.Token) error {
	const up = `
        INSERT INTO upstream_token(id, token, expires_at, updated_at)
        VALUES (1, $1, $2, now())
        ON CONFLICT (id) DO UPDATE
          SET token=EXCLUDED.token, expires_at=EXCLUDED.expires_at, updated_at=now()`
	_, err := s.db.conn(ctx).Exec(ctx, up, tok.Value, tok.ExpiresAt)
	return err
}
