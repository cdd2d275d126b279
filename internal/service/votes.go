package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/database"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/repository"
)

// VoteLedger records votes. Each account votes at most once per idea and
// an idea's vote_count always equals its number of vote rows.
type VoteLedger struct {
	db    *sql.DB
	ideas *repository.IdeaRepo
	votes *repository.VoteRepo
	log   logrus.FieldLogger
	now   clock
}

func NewVoteLedger(db *sql.DB, ideas *repository.IdeaRepo, votes *repository.VoteRepo, log logrus.FieldLogger) *VoteLedger {
	return &VoteLedger{db: db, ideas: ideas, votes: votes, log: log, now: systemClock}
}

// Vote adds voter's vote to an approved or featured idea. The vote row and
// the counter increment commit together or not at all.
func (l *VoteLedger) Vote(ctx context.Context, voter model.Account, ideaID uint64, voterIP string) error {
	err := database.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		idea, err := l.ideas.GetByIDTx(ctx, tx, ideaID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdeaNotFound
		}
		if err != nil {
			return Internal("load idea", err)
		}
		if !idea.Status.Votable() {
			return ErrIdeaNotVotable
		}

		v := model.Vote{IdeaID: ideaID, VoterID: voter.ID, VoterIP: truncate(voterIP, 64), CreatedAt: l.now()}
		err = l.votes.CreateTx(ctx, tx, &v)
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDuplicateVote
		}
		if err != nil {
			return Internal("record vote", err)
		}

		ok, err := l.ideas.IncrementVotesTx(ctx, tx, ideaID)
		if err != nil {
			return Internal("count vote", err)
		}
		if !ok {
			return ErrIdeaNotVotable
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.log.WithFields(logrus.Fields{"idea_id": ideaID, "voter_id": voter.ID}).Debug("vote recorded")
	return nil
}
