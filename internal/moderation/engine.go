package moderation

import (
	"lilypad/internal/models"
)

// Fixed per-status submission messages returned to the comment author.
const (
	MessageApproved = "Your comment has been posted."
	MessagePending  = "Your comment is awaiting moderation."
	MessageSpam     = "Your comment was filtered."
)

// Decide assigns the initial lifecycle status for a new comment from the
// site's policy, the author's reputation and the raw spam score. First match
// wins. The returned score is the effective one (zeroed when the site has
// its spam filter off) and is what gets persisted on the comment row.
func Decide(site *models.Site, authorReputation, score int) (models.CommentStatus, int) {
	if !site.SpamFilterEnabled {
		score = 0
	}
	if !site.ModerationEnabled {
		return models.StatusApproved, score
	}
	if score >= site.AutoApproveThreshold {
		return models.StatusSpam, score
	}
	if authorReputation < lowRepCutoff {
		return models.StatusPending, score
	}
	return models.StatusApproved, score
}

// StatusMessage maps a decided status to its fixed human-readable message.
func StatusMessage(status models.CommentStatus) string {
	switch status {
	case models.StatusApproved:
		return MessageApproved
	case models.StatusSpam:
		return MessageSpam
	default:
		return MessagePending
	}
}
