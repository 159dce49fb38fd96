package models

import (
	"time"

	"github.com/google/uuid"
)

// Page is a host-site page that carries a comment thread. Pages are created
// lazily the first time a comment arrives for a (site, slug) pair.
type Page struct {
	ID           uuid.UUID `json:"id" db:"id"`
	SiteID       uuid.UUID `json:"siteId" db:"site_id"`
	Slug         string    `json:"slug" db:"slug"`
	Title        string    `json:"title" db:"title"`
	CommentCount int       `json:"commentCount" db:"comment_count"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
