package model

import "time"

// IdeaStatus is a state of the moderation workflow.
type IdeaStatus string

const (
	StatusPending    IdeaStatus = "pending"
	StatusApproved   IdeaStatus = "approved"
	StatusRejected   IdeaStatus = "rejected"
	StatusInProgress IdeaStatus = "in_progress"
	StatusCompleted  IdeaStatus = "completed"
	StatusFeatured   IdeaStatus = "featured"
)

// PublicStatuses are visible to anonymous and plain-user viewers.
var PublicStatuses = []IdeaStatus{StatusApproved, StatusFeatured, StatusCompleted, StatusInProgress}

// VotableStatuses are the states in which an idea accepts votes.
var VotableStatuses = []IdeaStatus{StatusApproved, StatusFeatured}

// Valid reports whether s is a known status.
func (s IdeaStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusInProgress, StatusCompleted, StatusFeatured:
		return true
	}
	return false
}

// ReviewTarget reports whether a reviewer may move an idea into s.
// Nothing transitions back to pending.
func (s IdeaStatus) ReviewTarget() bool { return s.Valid() && s != StatusPending }

// Votable reports whether ideas in s accept votes.
func (s IdeaStatus) Votable() bool { return s.in(VotableStatuses) }

// Public reports whether ideas in s are shown to every viewer.
func (s IdeaStatus) Public() bool { return s.in(PublicStatuses) }

func (s IdeaStatus) in(set []IdeaStatus) bool {
	for _, x := range set {
		if s == x {
			return true
		}
	}
	return false
}

// Idea represents a row in the `ideas` table.
//
// IsFeatured is set when the idea is moved to featured and is never cleared
// afterwards, even if the status changes again.
type Idea struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AuthorID    uint64     `json:"authorId"`
	AuthorName  string     `json:"author"`
	VoteCount   int64      `json:"votes"`
	Status      IdeaStatus `json:"status"`
	IsFeatured  bool       `json:"isFeatured"`
	ReviewedBy  *uint64    `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
	ReviewNotes string     `json:"reviewNotes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// IdeaView is an idea as returned by the listing, with its comment count.
type IdeaView struct {
	Idea
	CommentCount int64 `json:"commentCount"`
}

// Comment represents a row in the `comments` table.
type Comment struct {
	ID         uint64    `json:"id"`
	IdeaID     uint64    `json:"ideaId"`
	AuthorID   uint64    `json:"authorId"`
	AuthorName string    `json:"author"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Vote represents a row in the `votes` table. (IdeaID, VoterID) is unique.
type Vote struct {
	ID        uint64
	IdeaID    uint64
	VoterID   uint64
	VoterIP   string
	CreatedAt time.Time
}

// Stats are the aggregate counters exposed by /api/stats.
type Stats struct {
	Ideas    int64 `json:"ideas"`
	Comments int64 `json:"comments"`
	Votes    int64 `json:"votes"`
	Accounts int64 `json:"users"`
	Pending  int64 `json:"pending"`
}
