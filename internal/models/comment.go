package models

import (
	"time"

	"github.com/google/uuid"
)

// CommentStatus is a comment's lifecycle state. Transitions happen only
// through the moderation pipeline (creation), flag aggregation (re-moderation)
// or an explicit moderator action.
type CommentStatus string

const (
	StatusPending  CommentStatus = "pending"
	StatusApproved CommentStatus = "approved"
	StatusSpam     CommentStatus = "spam"
	StatusDeleted  CommentStatus = "deleted"
)

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s CommentStatus) bool {
	switch s {
	case StatusPending, StatusApproved, StatusSpam, StatusDeleted:
		return true
	}
	return false
}

type Comment struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	SiteID         uuid.UUID     `json:"siteId" db:"site_id"`
	PageID         uuid.UUID     `json:"pageId" db:"page_id"`
	AuthorID       uuid.UUID     `json:"authorId" db:"author_id"`
	AuthorUsername string        `json:"authorUsername" db:"author_username"`
	ParentID       *uuid.UUID    `json:"parentId,omitempty" db:"parent_id"`
	Content        string        `json:"content" db:"content"`
	ContentHTML    string        `json:"contentHtml" db:"content_html"`
	Status         CommentStatus `json:"status" db:"status"`
	SpamScore      int           `json:"spamScore" db:"spam_score"`
	Likes          int           `json:"likes" db:"likes"`
	Flags          int           `json:"flags" db:"flags"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}

// StatusResponse is the generic success envelope for mutating endpoints.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SubmissionResponse is returned to the widget after a comment submission.
// Message is one of three fixed strings keyed by the resulting status.
type SubmissionResponse struct {
	ID      uuid.UUID     `json:"id"`
	Status  CommentStatus `json:"status"`
	Message string        `json:"message"`
}

// LikeResponse reports the like state after a toggle.
type LikeResponse struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}
