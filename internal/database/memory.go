// internal/database/memory.go
package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/google/uuid"
)

type likeKey struct {
	CommentID uuid.UUID
	UserID    uuid.UUID
}

// MemoryDB is the in-memory DBAdapter used by tests and DB_TYPE=memory
// development runs. It mirrors the Postgres adapter's semantics, including
// the (comment, user) uniqueness rules and counter atomicity: everything
// moves under one lock, so read-modify-write sequences cannot interleave.
type MemoryDB struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	sites    map[uuid.UUID]*models.Site
	pages    map[uuid.UUID]*models.Page
	comments map[uuid.UUID]*models.Comment
	likes    map[likeKey]uuid.UUID
	flags    map[likeKey]*models.Flag
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:    make(map[uuid.UUID]*models.User),
		sites:    make(map[uuid.UUID]*models.Site),
		pages:    make(map[uuid.UUID]*models.Page),
		comments: make(map[uuid.UUID]*models.Comment),
		likes:    make(map[likeKey]uuid.UUID),
		flags:    make(map[likeKey]*models.Flag),
	}
}

func (m *MemoryDB) Close(ctx context.Context) error {
	return nil
}

// --- User methods ---

func (m *MemoryDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	copied := *user
	return &copied, nil
}

func (m *MemoryDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, utils.NewUserNotFoundError(email)
}

func (m *MemoryDB) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		for _, existing := range m.users {
			if existing.Email == user.Email {
				return utils.NewAppError(utils.ErrDuplicate, "Email already registered", nil)
			}
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MemoryDB) AdjustReputation(ctx context.Context, userID uuid.UUID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return utils.NewUserNotFoundError(userID.String())
	}
	user.Reputation += delta
	user.UpdatedAt = time.Now()
	return nil
}

// --- Site methods ---

func (m *MemoryDB) CreateSite(ctx context.Context, site *models.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *site
	m.sites[site.ID] = &copied
	return nil
}

func (m *MemoryDB) GetSite(ctx context.Context, id uuid.UUID) (*models.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	site, ok := m.sites[id]
	if !ok {
		return nil, utils.NewSiteNotFoundError(id.String())
	}
	copied := *site
	return &copied, nil
}

func (m *MemoryDB) GetSitesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sites []*models.Site
	for _, site := range m.sites {
		if site.OwnerID == ownerID {
			copied := *site
			sites = append(sites, &copied)
		}
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].CreatedAt.After(sites[j].CreatedAt) })
	return sites, nil
}

func (m *MemoryDB) UpdateSitePolicy(ctx context.Context, site *models.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sites[site.ID]
	if !ok || existing.OwnerID != site.OwnerID {
		return utils.NewSiteNotFoundError(site.ID.String())
	}
	existing.Name = site.Name
	existing.Domain = site.Domain
	existing.ModerationEnabled = site.ModerationEnabled
	existing.AutoApproveThreshold = site.AutoApproveThreshold
	existing.SpamFilterEnabled = site.SpamFilterEnabled
	existing.RequireAuth = site.RequireAuth
	existing.WebhookURL = site.WebhookURL
	existing.WebhookSecret = site.WebhookSecret
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryDB) IncrementSiteComments(ctx context.Context, siteID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	site, ok := m.sites[siteID]
	if !ok {
		return utils.NewSiteNotFoundError(siteID.String())
	}
	site.CommentCount++
	site.UpdatedAt = time.Now()
	return nil
}

// --- Page methods ---

func (m *MemoryDB) GetOrCreatePage(ctx context.Context, siteID uuid.UUID, slug, title string) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, page := range m.pages {
		if page.SiteID == siteID && page.Slug == slug {
			copied := *page
			return &copied, nil
		}
	}
	page := &models.Page{
		ID:        uuid.New(),
		SiteID:    siteID,
		Slug:      slug,
		Title:     title,
		CreatedAt: time.Now(),
	}
	m.pages[page.ID] = page
	copied := *page
	return &copied, nil
}

func (m *MemoryDB) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrNotFound, "Page not found: "+id.String(), nil)
	}
	copied := *page
	return &copied, nil
}

func (m *MemoryDB) IncrementPageComments(ctx context.Context, pageID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[pageID]
	if !ok {
		return utils.NewAppError(utils.ErrNotFound, "Page not found: "+pageID.String(), nil)
	}
	page.CommentCount++
	return nil
}

// --- Comment methods ---

func (m *MemoryDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *comment
	m.comments[comment.ID] = &copied
	return nil
}

func (m *MemoryDB) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[id]
	if !ok {
		return nil, utils.NewCommentNotFoundError(id.String())
	}
	copied := *comment
	m.attachUsername(&copied)
	return &copied, nil
}

func (m *MemoryDB) GetPageComments(ctx context.Context, pageID uuid.UUID) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var comments []*models.Comment
	for _, comment := range m.comments {
		if comment.PageID == pageID && comment.Status == models.StatusApproved {
			copied := *comment
			m.attachUsername(&copied)
			comments = append(comments, &copied)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (m *MemoryDB) ListCommentsByStatus(ctx context.Context, siteID uuid.UUID, status models.CommentStatus, limit, offset int) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var comments []*models.Comment
	for _, comment := range m.comments {
		if comment.SiteID == siteID && comment.Status == status {
			copied := *comment
			m.attachUsername(&copied)
			comments = append(comments, &copied)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.After(comments[j].CreatedAt) })
	if offset >= len(comments) {
		return nil, nil
	}
	comments = comments[offset:]
	if limit > 0 && limit < len(comments) {
		comments = comments[:limit]
	}
	return comments, nil
}

func (m *MemoryDB) UpdateCommentStatus(ctx context.Context, commentID uuid.UUID, status models.CommentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[commentID]
	if !ok {
		return utils.NewCommentNotFoundError(commentID.String())
	}
	comment.Status = status
	comment.UpdatedAt = time.Now()
	return nil
}

// --- Engagement methods ---

func (m *MemoryDB) ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (bool, int, uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	comment, ok := m.comments[commentID]
	if !ok {
		return false, 0, uuid.Nil, utils.NewCommentNotFoundError(commentID.String())
	}

	key := likeKey{CommentID: commentID, UserID: userID}
	_, alreadyLiked := m.likes[key]

	delta := 1
	liked := true
	if alreadyLiked {
		delete(m.likes, key)
		delta = -1
		liked = false
	} else {
		m.likes[key] = uuid.New()
	}

	comment.Likes += delta
	comment.UpdatedAt = time.Now()

	if comment.AuthorID != userID {
		if author, ok := m.users[comment.AuthorID]; ok {
			author.Reputation += delta
		}
	}

	return liked, comment.Likes, comment.AuthorID, nil
}

func (m *MemoryDB) AddFlag(ctx context.Context, commentID, userID uuid.UUID, reason string, threshold int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	comment, ok := m.comments[commentID]
	if !ok {
		return 0, false, utils.NewCommentNotFoundError(commentID.String())
	}

	key := likeKey{CommentID: commentID, UserID: userID}
	if _, exists := m.flags[key]; exists {
		return 0, false, utils.NewDuplicateFlagError(commentID.String())
	}

	m.flags[key] = &models.Flag{
		ID:        uuid.New(),
		CommentID: commentID,
		UserID:    userID,
		Reason:    reason,
		CreatedAt: time.Now(),
	}

	comment.Flags++
	comment.UpdatedAt = time.Now()

	reopened := false
	if comment.Flags == threshold {
		comment.Status = models.StatusPending
		reopened = true
	}

	return comment.Flags, reopened, nil
}

// attachUsername fills the join column the Postgres queries produce.
// Caller must hold the lock.
func (m *MemoryDB) attachUsername(comment *models.Comment) {
	if user, ok := m.users[comment.AuthorID]; ok {
		comment.AuthorUsername = user.Username
	}
}
