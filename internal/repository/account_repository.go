package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
)

const accountColumns = `id, email, password_hash, username, role, email_verified,
	verification_code, verification_expires, last_login, is_active, created_at`

// AccountRepo persists accounts.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a and returns its ID. A taken email yields ErrDuplicate.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) (uint64, error) {
	var code sql.NullString
	if a.VerificationCode != "" {
		code = sql.NullString{String: a.VerificationCode, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO accounts (email, password_hash, username, role, email_verified,
			verification_code, verification_expires, is_active, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		NormalizeEmail(a.Email), a.PasswordHash, a.Username, string(a.Role), a.EmailVerified,
		code, nullTime(a.VerificationExpires), a.IsActive, a.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.ID = uint64(id)
	return a.ID, nil
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email = ? LIMIT 1", NormalizeEmail(email))
	return scanAccount(row)
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ? LIMIT 1", id)
	return scanAccount(row)
}

// MarkVerified sets email_verified and clears the verification code.
func (r *AccountRepo) MarkVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET email_verified = 1, verification_code = NULL, verification_expires = NULL
		 WHERE id = ?`, id)
	return err
}

// TouchLastLogin records a successful authentication.
func (r *AccountRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET last_login = ? WHERE id = ?", at, id)
	return err
}

// UpdateRoleTx changes an account's role inside tx.
func (r *AccountRepo) UpdateRoleTx(ctx context.Context, tx *sql.Tx, id uint64, role model.Role) error {
	res, err := tx.ExecContext(ctx, "UPDATE accounts SET role = ? WHERE id = ?", string(role), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive enables or disables an account.
func (r *AccountRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET is_active = ? WHERE id = ?", active, id)
	return err
}

// Count returns the number of accounts.
func (r *AccountRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&n)
	return n, err
}

func scanAccount(s rowScanner) (model.Account, error) {
	var (
		a         model.Account
		role      string
		code      sql.NullString
		expires   sql.NullTime
		lastLogin sql.NullTime
	)
	err := s.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Username, &role, &a.EmailVerified,
		&code, &expires, &lastLogin, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return model.Account{}, notFound(err)
	}
	a.Role = model.Role(role)
	a.VerificationCode = code.String
	a.VerificationExpires = timePtr(expires)
	a.LastLogin = timePtr(lastLogin)
	return a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func uintPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}
