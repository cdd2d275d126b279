package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
)

// VoteRepo persists votes. The (idea_id, voter_id) unique index is what
// enforces one vote per account per idea.
type VoteRepo struct{ DB *sql.DB }

func NewVoteRepo(db *sql.DB) *VoteRepo { return &VoteRepo{DB: db} }

// CreateTx inserts v inside tx. A second vote by the same voter on the same
// idea yields ErrDuplicate.
func (r *VoteRepo) CreateTx(ctx context.Context, tx *sql.Tx, v *model.Vote) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO votes (idea_id, voter_id, voter_ip, created_at) VALUES (?,?,?,?)",
		v.IdeaID, v.VoterID, v.VoterIP, v.CreatedAt)
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
	v.ID = uint64(id)
	return nil
}

// DeleteByIdeaTx removes every vote on an idea inside tx.
func (r *VoteRepo) DeleteByIdeaTx(ctx context.Context, tx *sql.Tx, ideaID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM votes WHERE idea_id = ?", ideaID)
	return err
}

// CountForIdea returns the number of vote rows for an idea.
func (r *VoteRepo) CountForIdea(ctx context.Context, ideaID uint64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM votes WHERE idea_id = ?", ideaID).Scan(&n)
	return n, err
}

// Count returns the number of votes.
func (r *VoteRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM votes").Scan(&n)
	return n, err
}
