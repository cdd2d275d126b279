package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
)

const invitationColumns = `id, code, granted_role, created_by, used_by, used_at,
	max_uses, use_count, expires_at, created_at`

// InvitationRepo persists invitation codes and their redemption history.
type InvitationRepo struct{ DB *sql.DB }

func NewInvitationRepo(db *sql.DB) *InvitationRepo { return &InvitationRepo{DB: db} }

// Create inserts c. A code collision yields ErrDuplicate.
func (r *InvitationRepo) Create(ctx context.Context, c *model.InvitationCode) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO invitation_codes (code, granted_role, created_by, max_uses, use_count, expires_at, created_at)
		 VALUES (?,?,?,?,0,?,?)`,
		c.Code, string(c.GrantedRole), c.CreatedBy, c.MaxUses, c.ExpiresAt, c.CreatedAt)
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
	c.ID = uint64(id)
	return nil
}

// GetByCode fetches a code outside any transaction.
func (r *InvitationRepo) GetByCode(ctx context.Context, code string) (model.InvitationCode, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+invitationColumns+" FROM invitation_codes WHERE code = ? LIMIT 1", code)
	return scanInvitation(row)
}

// GetByCodeTx fetches a code inside tx.
func (r *InvitationRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.InvitationCode, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+invitationColumns+" FROM invitation_codes WHERE code = ? LIMIT 1", code)
	return scanInvitation(row)
}

// ConsumeTx takes one use of code for accountID if the code is unexpired at
// now and has uses left. It reports whether a use was taken; the guard lives
// in the UPDATE so two redeemers can never both take the last use.
func (r *InvitationRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, code string, accountID uint64, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE invitation_codes
		 SET use_count = use_count + 1, used_by = ?, used_at = ?
		 WHERE code = ? AND use_count < max_uses AND expires_at > ?`,
		accountID, now, code, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AddRedemptionTx records one successful redemption inside tx.
func (r *InvitationRepo) AddRedemptionTx(ctx context.Context, tx *sql.Tx, invitationID, accountID uint64, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO invitation_redemptions (invitation_id, account_id, redeemed_at) VALUES (?,?,?)",
		invitationID, accountID, at)
	return err
}

// ListRedemptions returns the redemption history of an invitation, oldest first.
func (r *InvitationRepo) ListRedemptions(ctx context.Context, invitationID uint64) ([]model.Redemption, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, invitation_id, account_id, redeemed_at
		 FROM invitation_redemptions WHERE invitation_id = ? ORDER BY redeemed_at ASC, id ASC`,
		invitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Redemption, 0)
	for rows.Next() {
		var rd model.Redemption
		if err := rows.Scan(&rd.ID, &rd.InvitationID, &rd.AccountID, &rd.RedeemedAt); err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

func scanInvitation(s rowScanner) (model.InvitationCode, error) {
	var (
		c      model.InvitationCode
		role   string
		usedBy sql.NullInt64
		usedAt sql.NullTime
	)
	err := s.Scan(&c.ID, &c.Code, &role, &c.CreatedBy, &usedBy, &usedAt,
		&c.MaxUses, &c.UseCount, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return model.InvitationCode{}, notFound(err)
	}
	c.GrantedRole = model.Role(role)
	c.UsedBy = uintPtr(usedBy)
	c.UsedAt = timePtr(usedAt)
	return c, nil
}
