package models

import (
	"time"

	"github.com/google/uuid"
)

// Site holds a site owner's moderation policy. Comments submitted through the
// widget are judged against these knobs before they get a lifecycle status.
type Site struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	OwnerID              uuid.UUID `json:"ownerId" db:"owner_id"`
	Name                 string    `json:"name" db:"name"`
	Domain               string    `json:"domain" db:"domain"`
	ModerationEnabled    bool      `json:"moderationEnabled" db:"moderation_enabled"`
	AutoApproveThreshold int       `json:"autoApproveThreshold" db:"auto_approve_threshold"`
	SpamFilterEnabled    bool      `json:"spamFilterEnabled" db:"spam_filter_enabled"`
	RequireAuth          bool      `json:"requireAuth" db:"require_auth"`
	WebhookURL           string    `json:"webhookUrl" db:"webhook_url"`
	WebhookSecret        string    `json:"-" db:"webhook_secret"`
	CommentCount         int       `json:"commentCount" db:"comment_count"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time `json:"updatedAt" db:"updated_at"`
}

// WebhookConfigured reports whether the site can receive signed deliveries.
// Both the endpoint and the shared secret must be present.
func (s *Site) WebhookConfigured() bool {
	return s.WebhookURL != "" && s.WebhookSecret != ""
}
