package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
)

const ideaColumns = `i.id, i.title, i.description, i.author_id, i.author_name, i.vote_count,
	i.status, i.is_featured, i.reviewed_by, i.reviewed_at, i.review_notes, i.created_at`

// IdeaRepo persists ideas.
type IdeaRepo struct{ DB *sql.DB }

func NewIdeaRepo(db *sql.DB) *IdeaRepo { return &IdeaRepo{DB: db} }

// IdeaFilter narrows List. A zero filter returns every idea.
type IdeaFilter struct {
	// Statuses restricts the listing to these states.
	Statuses []model.IdeaStatus
	// OrAuthorID, when set, additionally includes this author's ideas
	// regardless of Statuses.
	OrAuthorID uint64
}

// Create inserts idea and fills in its ID.
func (r *IdeaRepo) Create(ctx context.Context, idea *model.Idea) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO ideas (title, description, author_id, author_name, vote_count, status,
			is_featured, review_notes, created_at)
		 VALUES (?,?,?,?,0,?,?,'',?)`,
		idea.Title, idea.Description, idea.AuthorID, idea.AuthorName, string(idea.Status),
		idea.IsFeatured, idea.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	idea.ID = uint64(id)
	return nil
}

// GetByID fetches one idea.
func (r *IdeaRepo) GetByID(ctx context.Context, id uint64) (model.Idea, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+ideaColumns+" FROM ideas i WHERE i.id = ?", id)
	return scanIdea(row)
}

// GetByIDTx fetches one idea inside tx.
func (r *IdeaRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Idea, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+ideaColumns+" FROM ideas i WHERE i.id = ?", id)
	return scanIdea(row)
}

// Review is the outcome of a moderation decision.
type Review struct {
	Status     model.IdeaStatus
	ReviewerID uint64
	Notes      string
	At         time.Time
}

// UpdateReview moves an idea to rv.Status and records the reviewer. Moving
// to featured sets is_featured; no transition clears it.
func (r *IdeaRepo) UpdateReview(ctx context.Context, id uint64, rv Review) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE ideas
		 SET status = ?, reviewed_by = ?, reviewed_at = ?, review_notes = ?,
		     is_featured = CASE WHEN ? THEN 1 ELSE is_featured END
		 WHERE id = ?`,
		string(rv.Status), rv.ReviewerID, rv.At, rv.Notes, rv.Status == model.StatusFeatured, id)
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

// IncrementVotesTx adds one vote to an idea that is still votable. It
// reports false when the idea left the votable states.
func (r *IdeaRepo) IncrementVotesTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	in, args := statusIn(model.VotableStatuses)
	res, err := tx.ExecContext(ctx,
		"UPDATE ideas SET vote_count = vote_count + 1 WHERE id = ? AND status IN ("+in+")",
		append([]any{id}, args...)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteTx removes the idea row inside tx.
func (r *IdeaRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM ideas WHERE id = ?", id)
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

// List returns ideas matching f with their comment counts, featured first,
// then by votes, then newest.
func (r *IdeaRepo) List(ctx context.Context, f IdeaFilter) ([]model.IdeaView, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT " + ideaColumns +
		", (SELECT COUNT(*) FROM comments c WHERE c.idea_id = i.id) AS comment_count FROM ideas i")

	if len(f.Statuses) > 0 {
		in, statusArgs := statusIn(f.Statuses)
		args = append(args, statusArgs...)
		sb.WriteString(" WHERE (i.status IN (" + in + ")")
		if f.OrAuthorID != 0 {
			sb.WriteString(" OR i.author_id = ?")
			args = append(args, f.OrAuthorID)
		}
		sb.WriteString(")")
	}
	sb.WriteString(" ORDER BY i.is_featured DESC, i.vote_count DESC, i.created_at DESC, i.id DESC")

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.IdeaView, 0)
	for rows.Next() {
		var v model.IdeaView
		idea, err := scanIdea(rows, &v.CommentCount)
		if err != nil {
			return nil, err
		}
		v.Idea = idea
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByStatus returns ideas in status, oldest first.
func (r *IdeaRepo) ListByStatus(ctx context.Context, status model.IdeaStatus) ([]model.Idea, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+ideaColumns+" FROM ideas i WHERE i.status = ? ORDER BY i.created_at ASC, i.id ASC",
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Idea, 0)
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, idea)
	}
	return out, rows.Err()
}

// Count returns the number of ideas.
func (r *IdeaRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM ideas").Scan(&n)
	return n, err
}

// CountByStatus returns the number of ideas in status.
func (r *IdeaRepo) CountByStatus(ctx context.Context, status model.IdeaStatus) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM ideas WHERE status = ?", string(status)).Scan(&n)
	return n, err
}

// scanIdea reads ideaColumns followed by any extra destinations.
func scanIdea(s rowScanner, extra ...any) (model.Idea, error) {
	var (
		idea       model.Idea
		status     string
		reviewedBy sql.NullInt64
		reviewedAt sql.NullTime
	)
	dest := []any{&idea.ID, &idea.Title, &idea.Description, &idea.AuthorID, &idea.AuthorName,
		&idea.VoteCount, &status, &idea.IsFeatured, &reviewedBy, &reviewedAt, &idea.ReviewNotes,
		&idea.CreatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return model.Idea{}, notFound(err)
	}
	idea.Status = model.IdeaStatus(status)
	idea.ReviewedBy = uintPtr(reviewedBy)
	idea.ReviewedAt = timePtr(reviewedAt)
	return idea, nil
}

// statusIn returns the placeholder list and arguments for an IN clause.
func statusIn(statuses []model.IdeaStatus) (string, []any) {
	ph := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		ph[i] = "?"
		args[i] = string(s)
	}
	return strings.Join(ph, ","), args
}
