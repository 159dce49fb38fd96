package models

import (
	"time"

	"github.com/google/uuid"
)

// Flag is one user's report against a published comment. At most one flag
// per (comment, user) pair; the database enforces the uniqueness.
type Flag struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CommentID uuid.UUID `json:"commentId" db:"comment_id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Reason    string    `json:"reason" db:"reason"`
	Resolved  bool      `json:"resolved" db:"resolved"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
