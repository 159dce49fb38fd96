package actors

import (
	stdctx "context"
	"log"
	"time"

	"lilypad/internal/database"
	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for site operations
type (
	CreateSiteMsg struct {
		OwnerID       uuid.UUID
		Name          string
		Domain        string
		WebhookURL    string
		WebhookSecret string
	}

	GetSiteMsg struct {
		SiteID uuid.UUID
	}

	ListOwnerSitesMsg struct {
		OwnerID uuid.UUID
	}

	// UpdateSitePolicyMsg replaces the owner-tunable policy fields wholesale.
	UpdateSitePolicyMsg struct {
		SiteID               uuid.UUID
		OwnerID              uuid.UUID
		Name                 string
		Domain               string
		ModerationEnabled    bool
		AutoApproveThreshold int
		SpamFilterEnabled    bool
		RequireAuth          bool
		WebhookURL           string
		WebhookSecret        string
	}
)

// SiteActor owns site lifecycle and policy mutations. Only the owner may
// mutate a site; there is no site deletion.
type SiteActor struct {
	db      database.DBAdapter
	metrics *utils.MetricsCollector
}

func NewSiteActor(db database.DBAdapter, metrics *utils.MetricsCollector) actor.Actor {
	return &SiteActor{db: db, metrics: metrics}
}

func (a *SiteActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *CreateSiteMsg:
		a.handleCreateSite(context, msg)

	case *GetSiteMsg:
		site, err := a.db.GetSite(stdctx.Background(), msg.SiteID)
		if err != nil {
			context.Respond(err)
			return
		}
		context.Respond(site)

	case *ListOwnerSitesMsg:
		sites, err := a.db.GetSitesByOwner(stdctx.Background(), msg.OwnerID)
		if err != nil {
			context.Respond(err)
			return
		}
		if sites == nil {
			sites = []*models.Site{}
		}
		context.Respond(sites)

	case *UpdateSitePolicyMsg:
		a.handleUpdatePolicy(context, msg)

	default:
		log.Printf("SiteActor: Unknown message type %T", msg)
	}
}

func (a *SiteActor) handleCreateSite(context actor.Context, msg *CreateSiteMsg) {
	startTime := time.Now()
	ctx := stdctx.Background()

	if msg.Name == "" || msg.Domain == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Site name and domain are required", nil))
		return
	}

	if _, err := a.db.GetUser(ctx, msg.OwnerID); err != nil {
		context.Respond(err)
		return
	}

	now := time.Now()
	site := &models.Site{
		ID:            uuid.New(),
		OwnerID:       msg.OwnerID,
		Name:          msg.Name,
		Domain:        msg.Domain,
		WebhookURL:    msg.WebhookURL,
		WebhookSecret: msg.WebhookSecret,
		// Conservative defaults: everything gated until the owner loosens it.
		ModerationEnabled:    true,
		SpamFilterEnabled:    true,
		AutoApproveThreshold: 30,
		RequireAuth:          true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := a.db.CreateSite(ctx, site); err != nil {
		context.Respond(err)
		return
	}

	a.metrics.AddOperationLatency("create_site", time.Since(startTime))
	context.Respond(site)
}

func (a *SiteActor) handleUpdatePolicy(context actor.Context, msg *UpdateSitePolicyMsg) {
	ctx := stdctx.Background()

	if msg.AutoApproveThreshold < 0 || msg.AutoApproveThreshold > 100 {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "auto_approve_threshold must be in [0,100]", nil))
		return
	}

	site, err := a.db.GetSite(ctx, msg.SiteID)
	if err != nil {
		context.Respond(err)
		return
	}
	if site.OwnerID != msg.OwnerID {
		context.Respond(utils.NewAppError(utils.ErrNotSiteOwner, "Only the site owner may change site policy", nil))
		return
	}

	if msg.Name != "" {
		site.Name = msg.Name
	}
	if msg.Domain != "" {
		site.Domain = msg.Domain
	}
	site.ModerationEnabled = msg.ModerationEnabled
	site.AutoApproveThreshold = msg.AutoApproveThreshold
	site.SpamFilterEnabled = msg.SpamFilterEnabled
	site.RequireAuth = msg.RequireAuth
	site.WebhookURL = msg.WebhookURL
	site.WebhookSecret = msg.WebhookSecret
	site.UpdatedAt = time.Now()

	if err := a.db.UpdateSitePolicy(ctx, site); err != nil {
		context.Respond(err)
		return
	}
	context.Respond(site)
}
