package actors

import (
	stdctx "context"
	"sync"
	"testing"
	"time"

	"lilypad/internal/database"
	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedRecorder captures feed broadcasts for assertions.
type feedRecorder struct {
	mu     sync.Mutex
	events []string
}

func (f *feedRecorder) BroadcastCommentEvent(siteID uuid.UUID, event string, comment *models.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *feedRecorder) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type actorFixture struct {
	system *actor.ActorSystem
	pid    *actor.PID
	db     *database.MemoryDB
	feed   *feedRecorder
	site   *models.Site
	owner  *models.User
}

func newActorFixture(t *testing.T) *actorFixture {
	t.Helper()
	ctx := stdctx.Background()
	db := database.NewMemoryDB()
	feed := &feedRecorder{}

	owner := &models.User{
		ID:         uuid.New(),
		Username:   "owner",
		Email:      "owner@example.com",
		Reputation: 100,
		CreatedAt:  time.Now().Add(-90 * 24 * time.Hour),
	}
	require.NoError(t, db.SaveUser(ctx, owner))

	site := &models.Site{
		ID:                   uuid.New(),
		OwnerID:              owner.ID,
		Name:                 "Docs",
		Domain:               "docs.example.com",
		ModerationEnabled:    true,
		SpamFilterEnabled:    true,
		AutoApproveThreshold: 30,
		RequireAuth:          true,
	}
	require.NoError(t, db.CreateSite(ctx, site))

	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewCommentActor(db, nil, feed, utils.NewMetricsCollector(), 3)
	})
	pid := system.Root.Spawn(props)

	return &actorFixture{system: system, pid: pid, db: db, feed: feed, site: site, owner: owner}
}

func (f *actorFixture) ask(t *testing.T, msg interface{}) interface{} {
	t.Helper()
	future := f.system.Root.RequestFuture(f.pid, msg, 3*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	return result
}

func (f *actorFixture) addUser(t *testing.T, reputation int, age time.Duration) *models.User {
	t.Helper()
	user := &models.User{
		ID:         uuid.New(),
		Username:   "u-" + uuid.NewString()[:8],
		Email:      uuid.NewString() + "@example.com",
		Reputation: reputation,
		CreatedAt:  time.Now().Add(-age),
	}
	require.NoError(t, f.db.SaveUser(stdctx.Background(), user))
	return user
}

func TestCreateCommentTrustedAuthorApproved(t *testing.T) {
	f := newActorFixture(t)
	author := f.addUser(t, 50, 30*24*time.Hour)

	result := f.ask(t, &CreateCommentMsg{
		SiteID:    f.site.ID,
		PageSlug:  "/intro",
		PageTitle: "Intro",
		AuthorID:  author.ID,
		Content:   "Nice writeup, thanks.",
	})

	resp, ok := result.(*models.SubmissionResponse)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, models.StatusApproved, resp.Status)
	assert.Equal(t, "Your comment has been posted.", resp.Message)

	ctx := stdctx.Background()
	site, err := f.db.GetSite(ctx, f.site.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, site.CommentCount)

	got, err := f.db.GetUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 51, got.Reputation, "approved creation credits the author")

	comment, err := f.db.GetComment(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, comment.SpamScore)
	assert.Contains(t, comment.ContentHTML, "Nice writeup")
}

func TestCreateCommentLowRepGoesPending(t *testing.T) {
	f := newActorFixture(t)
	author := f.addUser(t, 2, 30*24*time.Hour)

	result := f.ask(t, &CreateCommentMsg{
		SiteID:   f.site.ID,
		PageSlug: "/intro",
		AuthorID: author.ID,
		Content:  "First time commenting here.",
	})

	resp, ok := result.(*models.SubmissionResponse)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, models.StatusPending, resp.Status)

	// Pending comments do not move counters or reputation, and they land on
	// the moderation feed.
	ctx := stdctx.Background()
	site, err := f.db.GetSite(ctx, f.site.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, site.CommentCount)

	got, err := f.db.GetUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Reputation)

	assert.Contains(t, f.feed.Events(), FeedCommentPending)
}

// Borderline spam: a two-hour-old account with zero reputation posting one
// URL plus "buy now" scores exactly at the default threshold of 30 and is
// filtered, with no credit and no counter movement.
func TestCreateCommentBorderlineSpamFiltered(t *testing.T) {
	f := newActorFixture(t)
	author := f.addUser(t, 0, 2*time.Hour)

	result := f.ask(t, &CreateCommentMsg{
		SiteID:   f.site.ID,
		PageSlug: "/intro",
		AuthorID: author.ID,
		Content:  "buy now at https://deals.example.com",
	})

	resp, ok := result.(*models.SubmissionResponse)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, models.StatusSpam, resp.Status)

	ctx := stdctx.Background()
	comment, err := f.db.GetComment(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, comment.SpamScore)

	site, err := f.db.GetSite(ctx, f.site.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, site.CommentCount)

	got, err := f.db.GetUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Reputation)
}

func TestCreateCommentBannedAuthorRejected(t *testing.T) {
	f := newActorFixture(t)
	author := f.addUser(t, 50, 30*24*time.Hour)
	author.IsBanned = true
	require.NoError(t, f.db.SaveUser(stdctx.Background(), author))

	result := f.ask(t, &CreateCommentMsg{
		SiteID:   f.site.ID,
		PageSlug: "/intro",
		AuthorID: author.ID,
		Content:  "hello",
	})

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, utils.ErrForbidden, appErr.Code)
}

func TestCreateCommentRejectsCrossPageParent(t *testing.T) {
	f := newActorFixture(t)
	author := f.addUser(t, 50, 30*24*time.Hour)

	first := f.ask(t, &CreateCommentMsg{
		SiteID:   f.site.ID,
		PageSlug: "/page-a",
		AuthorID: author.ID,
		Content:  "root comment",
	}).(*models.SubmissionResponse)

	result := f.ask(t, &CreateCommentMsg{
		SiteID:   f.site.ID,
		PageSlug: "/page-b",
		AuthorID: author.ID,
		ParentID: &first.ID,
		Content:  "reply on the wrong page",
	})

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestLikeAndFlagThroughActor(t *testing.T) {
	f := newActorFixture(t)
	author := f.addUser(t, 50, 30*24*time.Hour)

	created := f.ask(t, &CreateCommentMsg{
		SiteID:   f.site.ID,
		PageSlug: "/intro",
		AuthorID: author.ID,
		Content:  "like and flag me",
	}).(*models.SubmissionResponse)

	liker := f.addUser(t, 20, 10*24*time.Hour)
	likeResult := f.ask(t, &LikeCommentMsg{CommentID: created.ID, UserID: liker.ID})
	like, ok := likeResult.(*models.LikeResponse)
	require.True(t, ok, "got %T: %v", likeResult, likeResult)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.Likes)

	// Three distinct flaggers reopen the comment and push a feed event.
	for i := 0; i < 3; i++ {
		flagger := f.addUser(t, 20, 10*24*time.Hour)
		result := f.ask(t, &FlagCommentMsg{CommentID: created.ID, UserID: flagger.ID, Reason: "off topic"})
		_, ok := result.(*models.StatusResponse)
		require.True(t, ok, "got %T: %v", result, result)
	}

	comment, err := f.db.GetComment(stdctx.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, comment.Status)
	assert.Contains(t, f.feed.Events(), FeedCommentFlagged)
}

func TestFlagDuplicateSurfacesError(t *testing.T) {
	f := newActorFixture(t)
	author := f.addUser(t, 50, 30*24*time.Hour)

	created := f.ask(t, &CreateCommentMsg{
		SiteID:   f.site.ID,
		PageSlug: "/intro",
		AuthorID: author.ID,
		Content:  "flag me once",
	}).(*models.SubmissionResponse)

	flagger := f.addUser(t, 20, 10*24*time.Hour)
	f.ask(t, &FlagCommentMsg{CommentID: created.ID, UserID: flagger.ID, Reason: "spam"})

	result := f.ask(t, &FlagCommentMsg{CommentID: created.ID, UserID: flagger.ID, Reason: "spam"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, utils.ErrDuplicateFlag, appErr.Code)
}

func TestModerateCommentOwnerOnly(t *testing.T) {
	f := newActorFixture(t)
	author := f.addUser(t, 2, 30*24*time.Hour)

	created := f.ask(t, &CreateCommentMsg{
		SiteID:   f.site.ID,
		PageSlug: "/intro",
		AuthorID: author.ID,
		Content:  "awaiting review",
	}).(*models.SubmissionResponse)
	require.Equal(t, models.StatusPending, created.Status)

	stranger := f.addUser(t, 20, 10*24*time.Hour)
	result := f.ask(t, &ModerateCommentMsg{
		CommentID:   created.ID,
		ModeratorID: stranger.ID,
		Status:      models.StatusApproved,
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, utils.ErrNotSiteOwner, appErr.Code)

	result = f.ask(t, &ModerateCommentMsg{
		CommentID:   created.ID,
		ModeratorID: f.owner.ID,
		Status:      models.StatusApproved,
	})
	_, ok = result.(*models.StatusResponse)
	require.True(t, ok, "got %T: %v", result, result)

	ctx := stdctx.Background()
	comment, err := f.db.GetComment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, comment.Status)

	got, err := f.db.GetUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Reputation, "human approval credits the author")
}

func TestGetPageCommentsOnlyApproved(t *testing.T) {
	f := newActorFixture(t)
	trusted := f.addUser(t, 50, 30*24*time.Hour)
	rookie := f.addUser(t, 0, 30*24*time.Hour)

	f.ask(t, &CreateCommentMsg{SiteID: f.site.ID, PageSlug: "/p", AuthorID: trusted.ID, Content: "visible"})
	f.ask(t, &CreateCommentMsg{SiteID: f.site.ID, PageSlug: "/p", AuthorID: rookie.ID, Content: "held back"})

	result := f.ask(t, &GetPageCommentsMsg{SiteID: f.site.ID, PageSlug: "/p"})
	comments, ok := result.([]*models.Comment)
	require.True(t, ok, "got %T: %v", result, result)
	require.Len(t, comments, 1)
	assert.Equal(t, "visible", comments[0].Content)
}
