package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lilypad/internal/database"
	"lilypad/internal/engine"
	"lilypad/internal/handlers"
	"lilypad/internal/middleware"
	"lilypad/internal/models"
	"lilypad/internal/ratelimit"
	"lilypad/internal/utils"
	"lilypad/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires the full HTTP surface against the in-memory database,
// mirroring the production route setup.
func newTestServer(t *testing.T, rateLimitMax int) *httptest.Server {
	t.Helper()

	metrics := utils.NewMetricsCollector()
	db := database.NewMemoryDB()
	system := actor.NewActorSystem()

	hub := websocket.NewHub()
	go hub.Run()

	eng := engine.NewEngine(system, db, nil, hub, metrics, 3)
	limiter := ratelimit.NewLimiter(system, rateLimitMax, time.Minute)
	auth := middleware.NewAuthenticator("test-secret")
	server := handlers.NewServer(system, eng, metrics, db, auth, hub)

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return auth.RequireAuth(h)
	}
	limitedWrite := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ApplyRateLimit(auth.RequireAuth(h), limiter, metrics)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HandleHealth())
	mux.HandleFunc("/user/register", server.HandleUserRegister())
	mux.HandleFunc("/user/login", server.HandleUserLogin())
	mux.HandleFunc("/user/profile", protected(server.HandleUserProfile()))

	comments := server.HandleComments()
	submitComment := limitedWrite(comments)
	mux.HandleFunc("/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			submitComment(w, r)
			return
		}
		comments(w, r)
	})
	mux.HandleFunc("/comments/like", limitedWrite(server.HandleCommentLike()))
	mux.HandleFunc("/comments/flag", limitedWrite(server.HandleCommentFlag()))
	mux.HandleFunc("/sites", protected(server.HandleSites()))
	mux.HandleFunc("/sites/policy", protected(server.HandleSitePolicy()))
	mux.HandleFunc("/moderation/queue", protected(server.HandleModerationQueue()))
	mux.HandleFunc("/moderation/decide", protected(server.HandleModerateComment()))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body interface{}, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, base, name string) (token string, user *models.User) {
	t.Helper()
	var auth handlers.AuthResponse
	status := doJSON(t, http.MethodPost, base+"/user/register", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "correct horse battery",
	}, &auth)
	require.Equal(t, http.StatusCreated, status)
	return auth.Token, auth.User
}

func TestEndToEndCommentLifecycle(t *testing.T) {
	ts := newTestServer(t, 1000)
	ownerToken, _ := registerUser(t, ts.URL, "owner")

	var site models.Site
	status := doJSON(t, http.MethodPost, ts.URL+"/sites", ownerToken, map[string]string{
		"name":   "Docs",
		"domain": "docs.example.com",
	}, &site)
	require.Equal(t, http.StatusCreated, status)

	// A brand-new account on a strict site lands in the moderation queue.
	var submission models.SubmissionResponse
	status = doJSON(t, http.MethodPost, ts.URL+"/comments", ownerToken, map[string]string{
		"siteId":   site.ID.String(),
		"pageSlug": "/getting-started",
		"content":  "This guide cleared things up for me.",
	}, &submission)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.StatusPending, submission.Status)

	// Owner sees it in the queue and approves it.
	var queue []*models.Comment
	status = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/moderation/queue?siteId=%s", ts.URL, site.ID), ownerToken, nil, &queue)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, queue, 1)

	var verdict models.StatusResponse
	status = doJSON(t, http.MethodPost, ts.URL+"/moderation/decide", ownerToken, map[string]string{
		"commentId": submission.ID.String(),
		"status":    "approved",
	}, &verdict)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, verdict.Success)

	// The approved comment now shows on the public page listing.
	var comments []*models.Comment
	status = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/comments?siteId=%s&pageSlug=%s", ts.URL, site.ID, "%2Fgetting-started"), "", nil, &comments)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, comments, 1)
	assert.Equal(t, models.StatusApproved, comments[0].Status)
}

func TestLikeToggleAndDuplicateFlag(t *testing.T) {
	ts := newTestServer(t, 1000)
	ownerToken, _ := registerUser(t, ts.URL, "owner2")
	visitorToken, _ := registerUser(t, ts.URL, "visitor")

	var site models.Site
	doJSON(t, http.MethodPost, ts.URL+"/sites", ownerToken, map[string]string{
		"name":   "Blog",
		"domain": "blog.example.com",
	}, &site)

	// Loosen moderation so the submission is immediately approved.
	status := doJSON(t, http.MethodPut, ts.URL+"/sites/policy", ownerToken, map[string]interface{}{
		"siteId":               site.ID.String(),
		"moderationEnabled":    false,
		"autoApproveThreshold": 30,
		"spamFilterEnabled":    true,
		"requireAuth":          true,
	}, nil)
	require.Equal(t, http.StatusOK, status)

	var submission models.SubmissionResponse
	status = doJSON(t, http.MethodPost, ts.URL+"/comments", ownerToken, map[string]string{
		"siteId":   site.ID.String(),
		"pageSlug": "/post",
		"content":  "open discussion",
	}, &submission)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, models.StatusApproved, submission.Status)

	// Like toggles on, then off.
	var like models.LikeResponse
	status = doJSON(t, http.MethodPost, ts.URL+"/comments/like", visitorToken,
		map[string]string{"commentId": submission.ID.String()}, &like)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.Likes)

	status = doJSON(t, http.MethodPost, ts.URL+"/comments/like", visitorToken,
		map[string]string{"commentId": submission.ID.String()}, &like)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, like.Liked)
	assert.Equal(t, 0, like.Likes)

	// A second flag from the same visitor is a 400.
	status = doJSON(t, http.MethodPost, ts.URL+"/comments/flag", visitorToken,
		map[string]string{"commentId": submission.ID.String(), "reason": "spam"}, nil)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodPost, ts.URL+"/comments/flag", visitorToken,
		map[string]string{"commentId": submission.ID.String(), "reason": "spam"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSubmissionRateLimited(t *testing.T) {
	ts := newTestServer(t, 2)
	token, _ := registerUser(t, ts.URL, "burster")

	var site models.Site
	doJSON(t, http.MethodPost, ts.URL+"/sites", token, map[string]string{
		"name":   "Busy",
		"domain": "busy.example.com",
	}, &site)

	payload := map[string]string{
		"siteId":   site.ID.String(),
		"pageSlug": "/hot",
		"content":  "same client, many posts",
	}

	for i := 0; i < 2; i++ {
		status := doJSON(t, http.MethodPost, ts.URL+"/comments", token, payload, nil)
		require.Equal(t, http.StatusCreated, status, "request %d should pass", i+1)
	}

	status := doJSON(t, http.MethodPost, ts.URL+"/comments", token, payload, nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestSpamContentFiltered(t *testing.T) {
	ts := newTestServer(t, 1000)
	token, _ := registerUser(t, ts.URL, "spammer")

	var site models.Site
	doJSON(t, http.MethodPost, ts.URL+"/sites", token, map[string]string{
		"name":   "Target",
		"domain": "target.example.com",
	}, &site)

	var submission models.SubmissionResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/comments", token, map[string]string{
		"siteId":   site.ID.String(),
		"pageSlug": "/victim",
		"content":  "buy now at https://deals.example.com",
	}, &submission)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.StatusSpam, submission.Status)
}
