package actors

import (
	stdctx "context"
	"html"
	"log"
	"strings"
	"time"

	"lilypad/internal/database"
	"lilypad/internal/models"
	"lilypad/internal/moderation"
	"lilypad/internal/utils"
	"lilypad/internal/webhook"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for comment operations
type (
	CreateCommentMsg struct {
		SiteID    uuid.UUID
		PageSlug  string
		PageTitle string
		AuthorID  uuid.UUID
		ParentID  *uuid.UUID
		Content   string
	}

	GetCommentMsg struct {
		CommentID uuid.UUID
	}

	GetPageCommentsMsg struct {
		SiteID   uuid.UUID
		PageSlug string
	}

	LikeCommentMsg struct {
		CommentID uuid.UUID
		UserID    uuid.UUID
	}

	FlagCommentMsg struct {
		CommentID uuid.UUID
		UserID    uuid.UUID
		Reason    string
	}

	// ModerateCommentMsg is a site owner's explicit verdict on a comment.
	ModerateCommentMsg struct {
		CommentID   uuid.UUID
		ModeratorID uuid.UUID
		Status      models.CommentStatus
	}

	ListModerationQueueMsg struct {
		SiteID      uuid.UUID
		RequesterID uuid.UUID
		Status      models.CommentStatus
		Limit       int
		Offset      int
	}
)

// Feed pushes live moderation events to connected dashboard clients.
// The websocket hub implements it; tests plug in a recorder.
type Feed interface {
	BroadcastCommentEvent(siteID uuid.UUID, event string, comment *models.Comment)
}

// Feed event names.
const (
	FeedCommentPending = "comment.pending"
	FeedCommentFlagged = "comment.flagged"
)

// CommentActor runs the write pipeline for comments: capability checks,
// spam scoring, the status decision, persistence, and the post-commit side
// effects (counters, reputation, webhook, moderation feed).
type CommentActor struct {
	db            database.DBAdapter
	notifier      *webhook.Notifier
	feed          Feed
	metrics       *utils.MetricsCollector
	flagThreshold int
}

func NewCommentActor(db database.DBAdapter, notifier *webhook.Notifier, feed Feed, metrics *utils.MetricsCollector, flagThreshold int) actor.Actor {
	return &CommentActor{
		db:            db,
		notifier:      notifier,
		feed:          feed,
		metrics:       metrics,
		flagThreshold: flagThreshold,
	}
}

func (a *CommentActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("CommentActor started with PID: %v", context.Self())

	case *CreateCommentMsg:
		a.handleCreateComment(context, msg)

	case *GetCommentMsg:
		a.handleGetComment(context, msg)

	case *GetPageCommentsMsg:
		a.handleGetPageComments(context, msg)

	case *LikeCommentMsg:
		a.handleLikeComment(context, msg)

	case *FlagCommentMsg:
		a.handleFlagComment(context, msg)

	case *ModerateCommentMsg:
		a.handleModerateComment(context, msg)

	case *ListModerationQueueMsg:
		a.handleListModerationQueue(context, msg)

	default:
		log.Printf("CommentActor: Unknown message type %T", msg)
	}
}

func (a *CommentActor) handleCreateComment(context actor.Context, msg *CreateCommentMsg) {
	startTime := time.Now()
	ctx := stdctx.Background()

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Comment content is required", nil))
		return
	}
	if msg.PageSlug == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Page slug is required", nil))
		return
	}

	site, err := a.db.GetSite(ctx, msg.SiteID)
	if err != nil {
		context.Respond(err)
		return
	}

	author, err := a.db.GetUser(ctx, msg.AuthorID)
	if err != nil {
		context.Respond(err)
		return
	}

	if err := moderation.CanWrite(author, site); err != nil {
		context.Respond(err)
		return
	}

	page, err := a.db.GetOrCreatePage(ctx, site.ID, msg.PageSlug, msg.PageTitle)
	if err != nil {
		context.Respond(err)
		return
	}

	if msg.ParentID != nil {
		parent, err := a.db.GetComment(ctx, *msg.ParentID)
		if err != nil {
			context.Respond(err)
			return
		}
		if parent.PageID != page.ID {
			context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Parent comment belongs to a different page", nil))
			return
		}
	}

	now := time.Now()
	score := moderation.Score(content, moderation.AuthorProfile{
		CreatedAt:  author.CreatedAt,
		Reputation: author.Reputation,
	}, now)
	status, effectiveScore := moderation.Decide(site, author.Reputation, score)

	comment := &models.Comment{
		ID:             uuid.New(),
		SiteID:         site.ID,
		PageID:         page.ID,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		ParentID:       msg.ParentID,
		Content:        content,
		ContentHTML:    renderContentHTML(content),
		Status:         status,
		SpamScore:      effectiveScore,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := a.db.SaveComment(ctx, comment); err != nil {
		context.Respond(err)
		return
	}

	// The insert is the atomic part; everything past this point is
	// best-effort and must not fail the submission.
	if status == models.StatusApproved {
		a.applyApprovalSideEffects(ctx, site, page, author, comment)
	} else if status == models.StatusPending && a.feed != nil {
		a.feed.BroadcastCommentEvent(site.ID, FeedCommentPending, comment)
	}

	a.metrics.AddOperationLatency("create_comment", time.Since(startTime))
	context.Respond(&models.SubmissionResponse{
		ID:      comment.ID,
		Status:  status,
		Message: moderation.StatusMessage(status),
	})
}

// applyApprovalSideEffects runs the counter, reputation and webhook effects
// for a comment that became publicly visible. Failures are logged, never
// propagated.
func (a *CommentActor) applyApprovalSideEffects(ctx stdctx.Context, site *models.Site, page *models.Page, author *models.User, comment *models.Comment) {
	if err := a.db.IncrementSiteComments(ctx, site.ID); err != nil {
		log.Printf("Warning: Failed to increment comment count for site %s: %v", site.ID, err)
	}
	if err := a.db.IncrementPageComments(ctx, page.ID); err != nil {
		log.Printf("Warning: Failed to increment comment count for page %s: %v", page.ID, err)
	}
	if err := a.db.AdjustReputation(ctx, author.ID, 1); err != nil {
		log.Printf("Warning: Failed to credit reputation for user %s: %v", author.ID, err)
	}

	if a.notifier != nil {
		event, err := models.NewCommentCreatedEvent(comment, author, page, time.Now())
		if err != nil {
			log.Printf("Warning: Could not build comment.created event for %s: %v", comment.ID, err)
			return
		}
		a.notifier.Enqueue(site, event)
	}
}

func (a *CommentActor) handleGetComment(context actor.Context, msg *GetCommentMsg) {
	comment, err := a.db.GetComment(stdctx.Background(), msg.CommentID)
	if err != nil {
		context.Respond(err)
		return
	}
	context.Respond(comment)
}

func (a *CommentActor) handleGetPageComments(context actor.Context, msg *GetPageCommentsMsg) {
	ctx := stdctx.Background()

	if _, err := a.db.GetSite(ctx, msg.SiteID); err != nil {
		context.Respond(err)
		return
	}

	page, err := a.db.GetOrCreatePage(ctx, msg.SiteID, msg.PageSlug, "")
	if err != nil {
		context.Respond(err)
		return
	}

	comments, err := a.db.GetPageComments(ctx, page.ID)
	if err != nil {
		context.Respond(err)
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	context.Respond(comments)
}

func (a *CommentActor) handleLikeComment(context actor.Context, msg *LikeCommentMsg) {
	startTime := time.Now()

	liked, likes, _, err := a.db.ToggleLike(stdctx.Background(), msg.CommentID, msg.UserID)
	if err != nil {
		context.Respond(err)
		return
	}

	a.metrics.AddOperationLatency("like_comment", time.Since(startTime))
	context.Respond(&models.LikeResponse{Liked: liked, Likes: likes})
}

func (a *CommentActor) handleFlagComment(context actor.Context, msg *FlagCommentMsg) {
	startTime := time.Now()
	ctx := stdctx.Background()

	flags, reopened, err := a.db.AddFlag(ctx, msg.CommentID, msg.UserID, msg.Reason, a.flagThreshold)
	if err != nil {
		context.Respond(err)
		return
	}

	if reopened {
		log.Printf("Comment %s reopened for review after %d flags", msg.CommentID, flags)
		if a.feed != nil {
			if comment, err := a.db.GetComment(ctx, msg.CommentID); err == nil {
				a.feed.BroadcastCommentEvent(comment.SiteID, FeedCommentFlagged, comment)
			}
		}
	}

	a.metrics.AddOperationLatency("flag_comment", time.Since(startTime))
	context.Respond(&models.StatusResponse{Success: true, Message: "Flag recorded"})
}

func (a *CommentActor) handleModerateComment(context actor.Context, msg *ModerateCommentMsg) {
	ctx := stdctx.Background()

	if !models.ValidStatus(msg.Status) || msg.Status == models.StatusPending {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Moderation target must be approved, spam or deleted", nil))
		return
	}

	comment, err := a.db.GetComment(ctx, msg.CommentID)
	if err != nil {
		context.Respond(err)
		return
	}

	site, err := a.db.GetSite(ctx, comment.SiteID)
	if err != nil {
		context.Respond(err)
		return
	}
	if site.OwnerID != msg.ModeratorID {
		context.Respond(utils.NewAppError(utils.ErrNotSiteOwner, "Only the site owner may moderate comments", nil))
		return
	}

	if err := a.db.UpdateCommentStatus(ctx, comment.ID, msg.Status); err != nil {
		context.Respond(err)
		return
	}

	// A human approval is a trust signal the same way an automatic one is,
	// and the comment enters approved here, so the site gets its event.
	if msg.Status == models.StatusApproved && comment.Status != models.StatusApproved {
		if err := a.db.AdjustReputation(ctx, comment.AuthorID, 1); err != nil {
			log.Printf("Warning: Failed to credit reputation for user %s: %v", comment.AuthorID, err)
		}
		comment.Status = models.StatusApproved
		a.notifyApproved(ctx, site, comment)
	}

	context.Respond(&models.StatusResponse{Success: true, Message: "Comment " + string(msg.Status)})
}

// notifyApproved rebuilds the comment.created payload for a comment that
// entered approved through a moderator verdict. The author and page are
// loaded fresh since the moderation path never had them in hand.
func (a *CommentActor) notifyApproved(ctx stdctx.Context, site *models.Site, comment *models.Comment) {
	if a.notifier == nil {
		return
	}
	author, err := a.db.GetUser(ctx, comment.AuthorID)
	if err != nil {
		log.Printf("Warning: Could not load author %s for comment.created: %v", comment.AuthorID, err)
		return
	}
	page, err := a.db.GetPage(ctx, comment.PageID)
	if err != nil {
		log.Printf("Warning: Could not load page %s for comment.created: %v", comment.PageID, err)
		return
	}
	event, err := models.NewCommentCreatedEvent(comment, author, page, time.Now())
	if err != nil {
		log.Printf("Warning: Could not build comment.created event for %s: %v", comment.ID, err)
		return
	}
	a.notifier.Enqueue(site, event)
}

func (a *CommentActor) handleListModerationQueue(context actor.Context, msg *ListModerationQueueMsg) {
	ctx := stdctx.Background()

	site, err := a.db.GetSite(ctx, msg.SiteID)
	if err != nil {
		context.Respond(err)
		return
	}
	if site.OwnerID != msg.RequesterID {
		context.Respond(utils.NewAppError(utils.ErrNotSiteOwner, "Only the site owner may view the moderation queue", nil))
		return
	}

	status := msg.Status
	if status == "" {
		status = models.StatusPending
	}
	limit := msg.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	comments, err := a.db.ListCommentsByStatus(ctx, msg.SiteID, status, limit, msg.Offset)
	if err != nil {
		context.Respond(err)
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	context.Respond(comments)
}

// renderContentHTML produces the stored HTML rendering: escaped text with
// newlines as <br>. Markdown is out of scope for the widget.
func renderContentHTML(content string) string {
	escaped := html.EscapeString(content)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}
