package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kstorelabs/kstore-cart/internal/domain/session"
)

var _ session.Repository = (*SessionRepository)(nil)

// SessionRepository provides session lookups backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByTokenHash looks up a session by the HMAC of its bearer token.
// A NULL expires_at maps to the zero time, which the verifier treats as
// "never expires".
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*session.Record, error) {
	var (
		rec     session.Record
		expires *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT token_hash, user_id, name, email, is_admin, expires_at
		 FROM sessions WHERE token_hash = $1`, hash).
		Scan(&rec.TokenHash, &rec.UserID, &rec.Name, &rec.Email, &rec.IsAdmin, &expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(err, "session not found")
		}
		return nil, errors.Wrap(err, "find session by hash")
	}
	if expires != nil {
		rec.ExpiresAt = *expires
	}
	return &rec, nil
}

// Upsert inserts or replaces a session row. A zero ExpiresAt is stored as
// NULL. Used by the seed tool.
func (r *SessionRepository) Upsert(ctx context.Context, rec session.Record) error {
	var expires *time.Time
	if !rec.ExpiresAt.IsZero() {
		expires = &rec.ExpiresAt
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (token_hash, user_id, name, email, is_admin, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (token_hash) DO UPDATE SET
		   user_id = EXCLUDED.user_id,
		   name = EXCLUDED.name,
		   email = EXCLUDED.email,
		   is_admin = EXCLUDED.is_admin,
		   expires_at = EXCLUDED.expires_at`,
		rec.TokenHash, rec.UserID, rec.Name, rec.Email, rec.IsAdmin, expires)
	if err != nil {
		return errors.Wrapf(err, "upsert session for user %s", rec.UserID)
	}
	return nil
}
