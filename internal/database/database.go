package database

import (
	"context"

	"lilypad/internal/models"

	"github.com/google/uuid"
)

// DBAdapter defines the common interface for database operations. Two
// implementations exist: PostgresDB for deployments and MemoryDB for tests
// and local development.
//
// Counter updates (likes, flags, reputation, comment totals) are atomic at
// the adapter level: implementations must apply them as storage-side
// read-modify-write increments, never as application-level read-then-write.
type DBAdapter interface {
	// Connection
	Close(ctx context.Context) error

	// User methods
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	// AdjustReputation applies one signed delta to a user's reputation.
	AdjustReputation(ctx context.Context, userID uuid.UUID, delta int) error

	// Site methods
	CreateSite(ctx context.Context, site *models.Site) error
	GetSite(ctx context.Context, id uuid.UUID) (*models.Site, error)
	GetSitesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Site, error)
	UpdateSitePolicy(ctx context.Context, site *models.Site) error
	IncrementSiteComments(ctx context.Context, siteID uuid.UUID) error

	// Page methods
	GetOrCreatePage(ctx context.Context, siteID uuid.UUID, slug, title string) (*models.Page, error)
	GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error)
	IncrementPageComments(ctx context.Context, pageID uuid.UUID) error

	// Comment methods
	SaveComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	GetPageComments(ctx context.Context, pageID uuid.UUID) ([]*models.Comment, error)
	ListCommentsByStatus(ctx context.Context, siteID uuid.UUID, status models.CommentStatus, limit, offset int) ([]*models.Comment, error)
	UpdateCommentStatus(ctx context.Context, commentID uuid.UUID, status models.CommentStatus) error

	// Engagement methods
	// ToggleLike flips the (comment, user) like record and returns the new
	// state plus the post-toggle like count and the comment's author.
	ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (liked bool, likes int, authorID uuid.UUID, err error)
	// AddFlag records one user's flag against a comment. A repeat flag from
	// the same user fails with ErrDuplicateFlag. When the post-increment
	// count reaches threshold the comment is forced back to pending and
	// reopened is true.
	AddFlag(ctx context.Context, commentID, userID uuid.UUID, reason string, threshold int) (flags int, reopened bool, err error)
}
