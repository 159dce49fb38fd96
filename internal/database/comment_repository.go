package database

import (
	"context"
	"database/sql"
	"log"

	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/google/uuid"
)

// SaveComment inserts a new comment row. The row arrives fully derived
// (status and spam score already decided); a failed insert therefore leaves
// no partial state behind.
func (p *PostgresDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, site_id, page_id, author_id, parent_id, content, content_html,
			status, spam_score, likes, flags, created_at, updated_at)
		VALUES (:id, :site_id, :page_id, :author_id, :parent_id, :content, :content_html,
			:status, :spam_score, :likes, :flags, :created_at, :updated_at)
	`
	_, err := p.DB.NamedExecContext(ctx, query, comment)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save comment", err)
	}
	return nil
}

func (p *PostgresDB) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	query := `
		SELECT c.id, c.site_id, c.page_id, c.author_id, u.username AS author_username,
			c.parent_id, c.content, c.content_html, c.status, c.spam_score,
			c.likes, c.flags, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1
	`
	err := p.DB.GetContext(ctx, &comment, query, id)
	if err == sql.ErrNoRows {
		return nil, utils.NewCommentNotFoundError(id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to get comment", err)
	}
	return &comment, nil
}

func (p *PostgresDB) GetPageComments(ctx context.Context, pageID uuid.UUID) ([]*models.Comment, error) {
	var comments []*models.Comment
	query := `
		SELECT c.id, c.site_id, c.page_id, c.author_id, u.username AS author_username,
			c.parent_id, c.content, c.content_html, c.status, c.spam_score,
			c.likes, c.flags, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.page_id = $1 AND c.status = 'approved'
		ORDER BY c.created_at ASC
	`
	if err := p.DB.SelectContext(ctx, &comments, query, pageID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to get page comments", err)
	}
	return comments, nil
}

func (p *PostgresDB) ListCommentsByStatus(ctx context.Context, siteID uuid.UUID, status models.CommentStatus, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	query := `
		SELECT c.id, c.site_id, c.page_id, c.author_id, u.username AS author_username,
			c.parent_id, c.content, c.content_html, c.status, c.spam_score,
			c.likes, c.flags, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.site_id = $1 AND c.status = $2
		ORDER BY c.created_at DESC
		LIMIT $3 OFFSET $4
	`
	if err := p.DB.SelectContext(ctx, &comments, query, siteID, status, limit, offset); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to list comments", err)
	}
	return comments, nil
}

func (p *PostgresDB) UpdateCommentStatus(ctx context.Context, commentID uuid.UUID, status models.CommentStatus) error {
	query := `UPDATE comments SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := p.DB.ExecContext(ctx, query, status, commentID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update comment status", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return utils.NewCommentNotFoundError(commentID.String())
	}
	return nil
}

// ToggleLike flips the like record for (comment, user) and keeps the
// denormalized like counter and the author's reputation in step, all inside
// one transaction. The likes table's UNIQUE (comment_id, user_id) constraint
// is what guarantees a user can never count twice.
func (p *PostgresDB) ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (bool, int, uuid.UUID, error) {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, uuid.Nil, utils.NewAppError(utils.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback() // Rollback is ignored if tx is committed.

	var authorID uuid.UUID
	err = tx.QueryRowxContext(ctx, `SELECT author_id FROM comments WHERE id = $1`, commentID).Scan(&authorID)
	if err == sql.ErrNoRows {
		return false, 0, uuid.Nil, utils.NewCommentNotFoundError(commentID.String())
	}
	if err != nil {
		return false, 0, uuid.Nil, utils.NewAppError(utils.ErrDatabase, "failed to get comment author", err)
	}

	var existingLikeID uuid.UUID
	err = tx.QueryRowxContext(ctx,
		`SELECT id FROM likes WHERE comment_id = $1 AND user_id = $2`,
		commentID, userID).Scan(&existingLikeID)
	if err != nil && err != sql.ErrNoRows {
		return false, 0, uuid.Nil, utils.NewAppError(utils.ErrDatabase, "failed to check existing like", err)
	}

	liked := err == sql.ErrNoRows // no row yet means this toggle turns the like on
	likeDelta := 1
	if !liked {
		likeDelta = -1
	}

	if liked {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO likes (id, comment_id, user_id, created_at) VALUES ($1, $2, $3, NOW())`,
			uuid.New(), commentID, userID)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM likes WHERE id = $1`, existingLikeID)
	}
	if err != nil {
		return false, 0, uuid.Nil, utils.NewAppError(utils.ErrDatabase, "failed to write like record", err)
	}

	var likes int
	err = tx.QueryRowxContext(ctx,
		`UPDATE comments SET likes = likes + $1, updated_at = NOW() WHERE id = $2 RETURNING likes`,
		likeDelta, commentID).Scan(&likes)
	if err != nil {
		return false, 0, uuid.Nil, utils.NewAppError(utils.ErrDatabase, "failed to update like count", err)
	}

	// Self-likes move the counter but never the author's reputation.
	if authorID != userID {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET reputation = reputation + $1, updated_at = NOW() WHERE id = $2`,
			likeDelta, authorID)
		if err != nil {
			log.Printf("Warning: Failed to adjust author (%s) reputation during like toggle: %v", authorID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, 0, uuid.Nil, utils.NewAppError(utils.ErrDatabase, "failed to commit like toggle", err)
	}

	return liked, likes, authorID, nil
}

// AddFlag records a flag, bumps the counter atomically and forces the comment
// back to pending when the post-increment count reaches threshold. The
// threshold comparison is equality, not >=, so a comment that was already
// pushed over the line once does not re-trigger on later flags.
func (p *PostgresDB) AddFlag(ctx context.Context, commentID, userID uuid.UUID, reason string, threshold int) (int, bool, error) {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, utils.NewAppError(utils.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback() // Rollback is ignored if tx is committed.

	var exists bool
	err = tx.QueryRowxContext(ctx, `SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`, commentID).Scan(&exists)
	if err != nil {
		return 0, false, utils.NewAppError(utils.ErrDatabase, "failed to check comment", err)
	}
	if !exists {
		return 0, false, utils.NewCommentNotFoundError(commentID.String())
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO flags (id, comment_id, user_id, reason, resolved, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
		ON CONFLICT (comment_id, user_id) DO NOTHING
	`, uuid.New(), commentID, userID, reason)
	if err != nil {
		return 0, false, utils.NewAppError(utils.ErrDatabase, "failed to insert flag", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, false, utils.NewAppError(utils.ErrDatabase, "failed to read flag insert result", err)
	}
	if inserted == 0 {
		return 0, false, utils.NewDuplicateFlagError(commentID.String())
	}

	var flags int
	err = tx.QueryRowxContext(ctx,
		`UPDATE comments SET flags = flags + 1, updated_at = NOW() WHERE id = $1 RETURNING flags`,
		commentID).Scan(&flags)
	if err != nil {
		return 0, false, utils.NewAppError(utils.ErrDatabase, "failed to update flag count", err)
	}

	reopened := false
	if flags == threshold {
		_, err = tx.ExecContext(ctx,
			`UPDATE comments SET status = $1, updated_at = NOW() WHERE id = $2`,
			models.StatusPending, commentID)
		if err != nil {
			return 0, false, utils.NewAppError(utils.ErrDatabase, "failed to reopen comment", err)
		}
		reopened = true
	}

	if err := tx.Commit(); err != nil {
		return 0, false, utils.NewAppError(utils.ErrDatabase, "failed to commit flag", err)
	}

	return flags, reopened, nil
}
