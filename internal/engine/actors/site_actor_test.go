package actors

import (
	stdctx "context"
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

func spawnSiteActor(t *testing.T, db *database.MemoryDB) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSiteActor(db, utils.NewMetricsCollector())
	})
	return system, system.Root.Spawn(props)
}

func askActor(t *testing.T, system *actor.ActorSystem, pid *actor.PID, msg interface{}) interface{} {
	t.Helper()
	future := system.Root.RequestFuture(pid, msg, 3*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	return result
}

func TestCreateSiteDefaultsToStrictPolicy(t *testing.T) {
	db := database.NewMemoryDB()
	owner := &models.User{ID: uuid.New(), Username: "owner", Email: "o@example.com"}
	require.NoError(t, db.SaveUser(stdctx.Background(), owner))

	system, pid := spawnSiteActor(t, db)
	result := askActor(t, system, pid, &CreateSiteMsg{
		OwnerID: owner.ID,
		Name:    "Blog",
		Domain:  "blog.example.com",
	})

	site, ok := result.(*models.Site)
	require.True(t, ok, "got %T: %v", result, result)
	assert.True(t, site.ModerationEnabled)
	assert.True(t, site.SpamFilterEnabled)
	assert.Equal(t, 30, site.AutoApproveThreshold)
	assert.True(t, site.RequireAuth)
}

func TestCreateSiteUnknownOwnerRejected(t *testing.T) {
	db := database.NewMemoryDB()
	system, pid := spawnSiteActor(t, db)

	result := askActor(t, system, pid, &CreateSiteMsg{
		OwnerID: uuid.New(),
		Name:    "Blog",
		Domain:  "blog.example.com",
	})

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, utils.ErrUserNotFound, appErr.Code)
}

func TestUpdateSitePolicyOwnerGate(t *testing.T) {
	db := database.NewMemoryDB()
	ctx := stdctx.Background()
	owner := &models.User{ID: uuid.New(), Username: "owner", Email: "o@example.com"}
	require.NoError(t, db.SaveUser(ctx, owner))

	system, pid := spawnSiteActor(t, db)
	created := askActor(t, system, pid, &CreateSiteMsg{
		OwnerID: owner.ID,
		Name:    "Blog",
		Domain:  "blog.example.com",
	}).(*models.Site)

	result := askActor(t, system, pid, &UpdateSitePolicyMsg{
		SiteID:               created.ID,
		OwnerID:              uuid.New(), // not the owner
		ModerationEnabled:    false,
		AutoApproveThreshold: 50,
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, utils.ErrNotSiteOwner, appErr.Code)

	result = askActor(t, system, pid, &UpdateSitePolicyMsg{
		SiteID:               created.ID,
		OwnerID:              owner.ID,
		ModerationEnabled:    false,
		AutoApproveThreshold: 50,
		SpamFilterEnabled:    true,
		RequireAuth:          false,
		WebhookURL:           "https://hooks.example.com/x",
		WebhookSecret:        "s3cret",
	})
	updated, ok := result.(*models.Site)
	require.True(t, ok, "got %T: %v", result, result)
	assert.False(t, updated.ModerationEnabled)
	assert.Equal(t, 50, updated.AutoApproveThreshold)
	assert.True(t, updated.WebhookConfigured())
}

func TestUpdateSitePolicyValidatesThreshold(t *testing.T) {
	db := database.NewMemoryDB()
	system, pid := spawnSiteActor(t, db)

	result := askActor(t, system, pid, &UpdateSitePolicyMsg{
		SiteID:               uuid.New(),
		OwnerID:              uuid.New(),
		AutoApproveThreshold: 250,
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "got %T: %v", result, result)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}
