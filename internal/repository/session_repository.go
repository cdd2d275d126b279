package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
)

// SessionRepo persists login sessions. Only the SHA-256 hash of the bearer
// token is stored.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Store inserts a session row.
func (r *SessionRepo) Store(ctx context.Context, s *model.Session) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (account_id, token_hash, ip, user_agent, expires_at, created_at)
		 VALUES (?,?,?,?,?,?)`,
		s.AccountID, s.TokenHash, s.IP, s.UserAgent, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// FindActive returns the session for tokenHash if it has not expired at now.
func (r *SessionRepo) FindActive(ctx context.Context, tokenHash string, now time.Time) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, account_id, token_hash, ip, user_agent, expires_at, created_at
		 FROM sessions WHERE token_hash = ? AND expires_at > ? LIMIT 1`,
		tokenHash, now).Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.IP, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return model.Session{}, notFound(err)
	}
	return s, nil
}

// DeleteByHash removes the session for tokenHash. Deleting a missing session
// is not an error.
func (r *SessionRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", tokenHash)
	return err
}

// DeleteExpired removes sessions that expired at or before now and reports
// how many were removed.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
