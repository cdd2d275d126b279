package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
)

// CommentRepo persists comments on ideas.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

// Create inserts c and fills in its ID.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (idea_id, author_id, author_name, text, created_at) VALUES (?,?,?,?,?)",
		c.IdeaID, c.AuthorID, c.AuthorName, c.Text, c.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches one comment.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (model.Comment, error) {
	var c model.Comment
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, idea_id, author_id, author_name, text, created_at FROM comments WHERE id = ?", id).
		Scan(&c.ID, &c.IdeaID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt)
	if err != nil {
		return model.Comment{}, notFound(err)
	}
	return c, nil
}

// ListByIdea returns an idea's comments, oldest first.
func (r *CommentRepo) ListByIdea(ctx context.Context, ideaID uint64) ([]model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, idea_id, author_id, author_name, text, created_at
		 FROM comments WHERE idea_id = ? ORDER BY created_at ASC, id ASC`, ideaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.IdeaID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes one comment.
func (r *CommentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
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

// DeleteByIdeaTx removes every comment of an idea inside tx.
func (r *CommentRepo) DeleteByIdeaTx(ctx context.Context, tx *sql.Tx, ideaID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE idea_id = ?", ideaID)
	return err
}

// Count returns the number of comments.
func (r *CommentRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&n)
	return n, err
}
