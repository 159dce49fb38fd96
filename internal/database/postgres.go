// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB *sqlx.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL!")

	return &PostgresDB{
		DB: db,
	}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	log.Println("Closing PostgreSQL connection...")
	return p.DB.Close()
}

// InitializeTables creates all necessary tables if they don't exist
func (p *PostgresDB) InitializeTables(ctx context.Context) error {
	// Users table
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			reputation INTEGER DEFAULT 0,
			is_banned BOOLEAN DEFAULT FALSE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	// Sites table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sites (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL REFERENCES users(id),
			name VARCHAR(100) NOT NULL,
			domain VARCHAR(255) NOT NULL DEFAULT '',
			moderation_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			auto_approve_threshold INTEGER NOT NULL DEFAULT 30,
			spam_filter_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			require_auth BOOLEAN NOT NULL DEFAULT FALSE,
			webhook_url TEXT NOT NULL DEFAULT '',
			webhook_secret TEXT NOT NULL DEFAULT '',
			comment_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sites table: %v", err)
	}

	// Pages table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pages (
			id UUID PRIMARY KEY,
			site_id UUID NOT NULL REFERENCES sites(id),
			slug VARCHAR(255) NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			comment_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (site_id, slug)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create pages table: %v", err)
	}

	// Comments table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY,
			site_id UUID NOT NULL REFERENCES sites(id),
			page_id UUID NOT NULL REFERENCES pages(id),
			author_id UUID NOT NULL REFERENCES users(id),
			parent_id UUID REFERENCES comments(id),
			content TEXT NOT NULL,
			content_html TEXT NOT NULL DEFAULT '',
			status VARCHAR(10) NOT NULL,
			spam_score INTEGER NOT NULL DEFAULT 0,
			likes INTEGER NOT NULL DEFAULT 0,
			flags INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create comments table: %v", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_comments_page ON comments (page_id, created_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create comments page index: %v", err)
	}

	// Likes table: one like per (comment, user), enforced by the database so
	// concurrent toggles cannot double count.
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS likes (
			id UUID PRIMARY KEY,
			comment_id UUID NOT NULL REFERENCES comments(id),
			user_id UUID NOT NULL REFERENCES users(id),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (comment_id, user_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create likes table: %v", err)
	}

	// Flags table: same uniqueness rule as likes.
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS flags (
			id UUID PRIMARY KEY,
			comment_id UUID NOT NULL REFERENCES comments(id),
			user_id UUID NOT NULL REFERENCES users(id),
			reason VARCHAR(200) NOT NULL,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (comment_id, user_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flags table: %v", err)
	}

	return nil
}

// --- User methods ---

func (p *PostgresDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, email, password_hash, reputation, is_banned, created_at, updated_at FROM users WHERE id = $1`
	err := p.DB.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to get user", err)
	}
	return &user, nil
}

func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, email, password_hash, reputation, is_banned, created_at, updated_at FROM users WHERE email = $1`
	err := p.DB.GetContext(ctx, &user, query, email)
	if err == sql.ErrNoRows {
		return nil, utils.NewUserNotFoundError(email)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to get user by email", err)
	}
	return &user, nil
}

func (p *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, reputation, is_banned, created_at, updated_at)
		VALUES (:id, :username, :email, :password_hash, :reputation, :is_banned, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			is_banned = EXCLUDED.is_banned,
			updated_at = NOW()
	`
	_, err := p.DB.NamedExecContext(ctx, query, user)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save user", err)
	}
	return nil
}

// AdjustReputation applies the delta with a storage-side increment. The
// update is unconditional; reputation has no floor or ceiling here.
func (p *PostgresDB) AdjustReputation(ctx context.Context, userID uuid.UUID, delta int) error {
	query := `UPDATE users SET reputation = reputation + $1, updated_at = NOW() WHERE id = $2`
	result, err := p.DB.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to adjust reputation", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return utils.NewUserNotFoundError(userID.String())
	}
	return nil
}

// --- Site methods ---

func (p *PostgresDB) CreateSite(ctx context.Context, site *models.Site) error {
	query := `
		INSERT INTO sites (id, owner_id, name, domain, moderation_enabled, auto_approve_threshold,
			spam_filter_enabled, require_auth, webhook_url, webhook_secret, comment_count, created_at, updated_at)
		VALUES (:id, :owner_id, :name, :domain, :moderation_enabled, :auto_approve_threshold,
			:spam_filter_enabled, :require_auth, :webhook_url, :webhook_secret, :comment_count, :created_at, :updated_at)
	`
	_, err := p.DB.NamedExecContext(ctx, query, site)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to create site", err)
	}
	return nil
}

func (p *PostgresDB) GetSite(ctx context.Context, id uuid.UUID) (*models.Site, error) {
	var site models.Site
	query := `SELECT id, owner_id, name, domain, moderation_enabled, auto_approve_threshold,
		spam_filter_enabled, require_auth, webhook_url, webhook_secret, comment_count, created_at, updated_at
		FROM sites WHERE id = $1`
	err := p.DB.GetContext(ctx, &site, query, id)
	if err == sql.ErrNoRows {
		return nil, utils.NewSiteNotFoundError(id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to get site", err)
	}
	return &site, nil
}

func (p *PostgresDB) GetSitesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Site, error) {
	var sites []*models.Site
	query := `SELECT id, owner_id, name, domain, moderation_enabled, auto_approve_threshold,
		spam_filter_enabled, require_auth, webhook_url, webhook_secret, comment_count, created_at, updated_at
		FROM sites WHERE owner_id = $1 ORDER BY created_at DESC`
	if err := p.DB.SelectContext(ctx, &sites, query, ownerID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to list sites", err)
	}
	return sites, nil
}

// UpdateSitePolicy rewrites the owner-tunable policy columns. The comment
// counter is deliberately excluded; it only moves through its increment query.
func (p *PostgresDB) UpdateSitePolicy(ctx context.Context, site *models.Site) error {
	query := `
		UPDATE sites SET
			name = :name,
			domain = :domain,
			moderation_enabled = :moderation_enabled,
			auto_approve_threshold = :auto_approve_threshold,
			spam_filter_enabled = :spam_filter_enabled,
			require_auth = :require_auth,
			webhook_url = :webhook_url,
			webhook_secret = :webhook_secret,
			updated_at = NOW()
		WHERE id = :id AND owner_id = :owner_id
	`
	result, err := p.DB.NamedExecContext(ctx, query, site)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update site policy", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return utils.NewSiteNotFoundError(site.ID.String())
	}
	return nil
}

func (p *PostgresDB) IncrementSiteComments(ctx context.Context, siteID uuid.UUID) error {
	query := `UPDATE sites SET comment_count = comment_count + 1, updated_at = NOW() WHERE id = $1`
	if _, err := p.DB.ExecContext(ctx, query, siteID); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to increment site comment count", err)
	}
	return nil
}

// --- Page methods ---

// GetOrCreatePage resolves the thread page for a (site, slug) pair, creating
// it on first use. The ON CONFLICT clause makes concurrent first comments on
// the same page converge on a single row.
func (p *PostgresDB) GetOrCreatePage(ctx context.Context, siteID uuid.UUID, slug, title string) (*models.Page, error) {
	insert := `
		INSERT INTO pages (id, site_id, slug, title, comment_count, created_at)
		VALUES ($1, $2, $3, $4, 0, NOW())
		ON CONFLICT (site_id, slug) DO NOTHING
	`
	if _, err := p.DB.ExecContext(ctx, insert, uuid.New(), siteID, slug, title); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to create page", err)
	}

	var page models.Page
	query := `SELECT id, site_id, slug, title, comment_count, created_at FROM pages WHERE site_id = $1 AND slug = $2`
	if err := p.DB.GetContext(ctx, &page, query, siteID, slug); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to get page", err)
	}
	return &page, nil
}

func (p *PostgresDB) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	var page models.Page
	query := `SELECT id, site_id, slug, title, comment_count, created_at FROM pages WHERE id = $1`
	err := p.DB.GetContext(ctx, &page, query, id)
	if err == sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrNotFound, "Page not found: "+id.String(), nil)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to get page", err)
	}
	return &page, nil
}

func (p *PostgresDB) IncrementPageComments(ctx context.Context, pageID uuid.UUID) error {
	query := `UPDATE pages SET comment_count = comment_count + 1 WHERE id = $1`
	if _, err := p.DB.ExecContext(ctx, query, pageID); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to increment page comment count", err)
	}
	return nil
}
