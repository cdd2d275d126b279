package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/database"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/repository"
)

// IdeaBoard runs the moderation workflow for ideas and their comments.
type IdeaBoard struct {
	db       *sql.DB
	ideas    *repository.IdeaRepo
	comments *repository.CommentRepo
	votes    *repository.VoteRepo
	accounts *repository.AccountRepo
	log      logrus.FieldLogger
	now      clock
}

func NewIdeaBoard(db *sql.DB, ideas *repository.IdeaRepo, comments *repository.CommentRepo, votes *repository.VoteRepo,
	accounts *repository.AccountRepo, log logrus.FieldLogger) *IdeaBoard {
	return &IdeaBoard{db: db, ideas: ideas, comments: comments, votes: votes, accounts: accounts, log: log, now: systemClock}
}

// SubmitIdeaInput is the body of a new idea.
type SubmitIdeaInput struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"required,min=10,max=5000"`
}

// Submit stores a new idea. Content managers publish directly; everyone
// else goes through review.
func (b *IdeaBoard) Submit(ctx context.Context, author model.Account, in SubmitIdeaInput) (model.Idea, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(&in); err != nil {
		return model.Idea{}, err
	}

	status := model.StatusPending
	if author.Role.Can(model.OpAutoApprove) {
		status = model.StatusApproved
	}
	idea := model.Idea{
		Title:       in.Title,
		Description: in.Description,
		AuthorID:    author.ID,
		AuthorName:  author.Username,
		Status:      status,
		CreatedAt:   b.now(),
	}
	if err := b.ideas.Create(ctx, &idea); err != nil {
		return model.Idea{}, Internal("create idea", err)
	}
	b.log.WithFields(logrus.Fields{"idea_id": idea.ID, "author_id": author.ID, "status": status}).Info("idea submitted")
	return idea, nil
}

// SetStatus records a review decision. Any state may move to any
// non-pending state; asking for the current state changes nothing.
func (b *IdeaBoard) SetStatus(ctx context.Context, reviewer model.Account, ideaID uint64, status, notes string) error {
	if !reviewer.Role.Can(model.OpSetIdeaStatus) {
		return ErrForbidden
	}
	target := model.IdeaStatus(strings.ToLower(strings.TrimSpace(status)))
	if !target.ReviewTarget() {
		return fieldError("status", "the field 'status' must be one of [approved rejected in_progress completed featured]")
	}

	idea, err := b.ideas.GetByID(ctx, ideaID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrIdeaNotFound
	}
	if err != nil {
		return Internal("load idea", err)
	}
	if idea.Status == target {
		return nil
	}

	err = b.ideas.UpdateReview(ctx, ideaID, repository.Review{
		Status:     target,
		ReviewerID: reviewer.ID,
		Notes:      strings.TrimSpace(notes),
		At:         b.now(),
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrIdeaNotFound
	}
	if err != nil {
		return Internal("update idea status", err)
	}
	b.log.WithFields(logrus.Fields{
		"idea_id": ideaID, "reviewer_id": reviewer.ID, "from": idea.Status, "to": target,
	}).Info("idea reviewed")
	return nil
}

// Delete removes an idea with its comments and votes. Authors may delete
// their own ideas; moderators and admins may delete any.
func (b *IdeaBoard) Delete(ctx context.Context, actor model.Account, ideaID uint64) error {
	idea, err := b.ideas.GetByID(ctx, ideaID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrIdeaNotFound
	}
	if err != nil {
		return Internal("load idea", err)
	}
	if idea.AuthorID != actor.ID && !actor.Role.Can(model.OpDeleteAnyIdea) {
		return ErrForbidden
	}

	err = database.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		if err := b.comments.DeleteByIdeaTx(ctx, tx, ideaID); err != nil {
			return Internal("delete comments", err)
		}
		if err := b.votes.DeleteByIdeaTx(ctx, tx, ideaID); err != nil {
			return Internal("delete votes", err)
		}
		err := b.ideas.DeleteTx(ctx, tx, ideaID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdeaNotFound
		}
		if err != nil {
			return Internal("delete idea", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.log.WithFields(logrus.Fields{"idea_id": ideaID, "actor_id": actor.ID}).Info("idea deleted")
	return nil
}

// List returns the ideas viewer may see, featured first, then by votes,
// then newest. A nil viewer is anonymous.
func (b *IdeaBoard) List(ctx context.Context, viewer *model.Account) ([]model.IdeaView, error) {
	var f repository.IdeaFilter
	if viewer == nil || !viewer.Role.Can(model.OpSeeAllIdeas) {
		f.Statuses = model.PublicStatuses
		if viewer != nil {
			f.OrAuthorID = viewer.ID
		}
	}
	out, err := b.ideas.List(ctx, f)
	if err != nil {
		return nil, Internal("list ideas", err)
	}
	return out, nil
}

// Pending returns the review queue, oldest first.
func (b *IdeaBoard) Pending(ctx context.Context, viewer model.Account) ([]model.Idea, error) {
	if !viewer.Role.Can(model.OpListPending) {
		return nil, ErrForbidden
	}
	out, err := b.ideas.ListByStatus(ctx, model.StatusPending)
	if err != nil {
		return nil, Internal("list pending ideas", err)
	}
	return out, nil
}

// visible loads an idea and hides it from viewers who may not see it.
func (b *IdeaBoard) visible(ctx context.Context, viewer *model.Account, ideaID uint64) (model.Idea, error) {
	idea, err := b.ideas.GetByID(ctx, ideaID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Idea{}, ErrIdeaNotFound
	}
	if err != nil {
		return model.Idea{}, Internal("load idea", err)
	}
	if idea.Status.Public() {
		return idea, nil
	}
	if viewer != nil && (viewer.ID == idea.AuthorID || viewer.Role.Can(model.OpSeeAllIdeas)) {
		return idea, nil
	}
	return model.Idea{}, ErrIdeaNotFound
}

// AddComment attaches a comment to an idea the author can see.
func (b *IdeaBoard) AddComment(ctx context.Context, author model.Account, ideaID uint64, text string) (model.Comment, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < 2 || n > 2000 {
		return model.Comment{}, fieldError("text", "the field 'text' must be between 2 and 2000 characters long")
	}
	if _, err := b.visible(ctx, &author, ideaID); err != nil {
		return model.Comment{}, err
	}
	c := model.Comment{
		IdeaID:     ideaID,
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Text:       text,
		CreatedAt:  b.now(),
	}
	if err := b.comments.Create(ctx, &c); err != nil {
		return model.Comment{}, Internal("create comment", err)
	}
	return c, nil
}

// ListComments returns an idea's comments, oldest first. Missing ideas and
// ideas hidden from viewer yield an empty list.
func (b *IdeaBoard) ListComments(ctx context.Context, viewer *model.Account, ideaID uint64) ([]model.Comment, error) {
	_, err := b.visible(ctx, viewer, ideaID)
	if errors.Is(err, ErrIdeaNotFound) {
		return []model.Comment{}, nil
	}
	if err != nil {
		return nil, err
	}
	out, err := b.comments.ListByIdea(ctx, ideaID)
	if err != nil {
		return nil, Internal("list comments", err)
	}
	return out, nil
}

// DeleteComment removes a comment. Authors may delete their own comments;
// moderators and admins may delete any.
func (b *IdeaBoard) DeleteComment(ctx context.Context, actor model.Account, commentID uint64) error {
	c, err := b.comments.GetByID(ctx, commentID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCommentNotFound
	}
	if err != nil {
		return Internal("load comment", err)
	}
	if c.AuthorID != actor.ID && !actor.Role.Can(model.OpDeleteAnyComment) {
		return ErrForbidden
	}
	err = b.comments.Delete(ctx, commentID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCommentNotFound
	}
	if err != nil {
		return Internal("delete comment", err)
	}
	return nil
}

// Stats returns site-wide counters.
func (b *IdeaBoard) Stats(ctx context.Context) (model.Stats, error) {
	var (
		st  model.Stats
		err error
	)
	if st.Ideas, err = b.ideas.Count(ctx); err != nil {
		return model.Stats{}, Internal("count ideas", err)
	}
	if st.Comments, err = b.comments.Count(ctx); err != nil {
		return model.Stats{}, Internal("count comments", err)
	}
	if st.Votes, err = b.votes.Count(ctx); err != nil {
		return model.Stats{}, Internal("count votes", err)
	}
	if st.Accounts, err = b.accounts.Count(ctx); err != nil {
		return model.Stats{}, Internal("count accounts", err)
	}
	if st.Pending, err = b.ideas.CountByStatus(ctx, model.StatusPending); err != nil {
		return model.Stats{}, Internal("count pending ideas", err)
	}
	return st, nil
}
