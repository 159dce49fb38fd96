package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"lilypad/internal/engine/actors"
	"lilypad/internal/middleware"
	"lilypad/internal/models"

	"github.com/google/uuid"
)

// CreateSiteRequest represents a request to register a new site
type CreateSiteRequest struct {
	Name          string `json:"name"`
	Domain        string `json:"domain"`
	WebhookURL    string `json:"webhookUrl,omitempty"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}

// UpdateSitePolicyRequest replaces a site's owner-tunable policy fields.
type UpdateSitePolicyRequest struct {
	SiteID               string `json:"siteId"`
	Name                 string `json:"name,omitempty"`
	Domain               string `json:"domain,omitempty"`
	ModerationEnabled    bool   `json:"moderationEnabled"`
	AutoApproveThreshold int    `json:"autoApproveThreshold"`
	SpamFilterEnabled    bool   `json:"spamFilterEnabled"`
	RequireAuth          bool   `json:"requireAuth"`
	WebhookURL           string `json:"webhookUrl,omitempty"`
	WebhookSecret        string `json:"webhookSecret,omitempty"`
}

// ModerateRequest is a site owner's verdict on a comment.
type ModerateRequest struct {
	CommentID string `json:"commentId"`
	Status    string `json:"status"` // approved, spam or deleted
}

// HandleSites handles site creation (POST) and listing the caller's own
// sites (GET).
func (s *Server) HandleSites() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodPost:
			var req CreateSiteRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			result, err := s.askActor(s.Engine.GetSiteActor(), &actors.CreateSiteMsg{
				OwnerID:       userID,
				Name:          req.Name,
				Domain:        req.Domain,
				WebhookURL:    req.WebhookURL,
				WebhookSecret: req.WebhookSecret,
			})
			if err != nil {
				http.Error(w, "Failed to create site", http.StatusInternalServerError)
				return
			}
			if s.wroteAppError(w, result) {
				return
			}
			respondJSON(w, http.StatusCreated, result)

		case http.MethodGet:
			result, err := s.askActor(s.Engine.GetSiteActor(), &actors.ListOwnerSitesMsg{OwnerID: userID})
			if err != nil {
				http.Error(w, "Failed to list sites", http.StatusInternalServerError)
				return
			}
			if s.wroteAppError(w, result) {
				return
			}
			respondJSON(w, http.StatusOK, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleSitePolicy updates a site's moderation policy. Owner only.
func (s *Server) HandleSitePolicy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req UpdateSitePolicyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		siteID, err := uuid.Parse(req.SiteID)
		if err != nil {
			http.Error(w, "Invalid site ID", http.StatusBadRequest)
			return
		}

		result, err := s.askActor(s.Engine.GetSiteActor(), &actors.UpdateSitePolicyMsg{
			SiteID:               siteID,
			OwnerID:              userID,
			Name:                 req.Name,
			Domain:               req.Domain,
			ModerationEnabled:    req.ModerationEnabled,
			AutoApproveThreshold: req.AutoApproveThreshold,
			SpamFilterEnabled:    req.SpamFilterEnabled,
			RequireAuth:          req.RequireAuth,
			WebhookURL:           req.WebhookURL,
			WebhookSecret:        req.WebhookSecret,
		})
		if err != nil {
			http.Error(w, "Failed to update site policy", http.StatusInternalServerError)
			return
		}
		if s.wroteAppError(w, result) {
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// HandleModerationQueue lists a site's comments by status for its owner.
func (s *Server) HandleModerationQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		siteID, err := uuid.Parse(r.URL.Query().Get("siteId"))
		if err != nil {
			http.Error(w, "Invalid site ID", http.StatusBadRequest)
			return
		}

		status := models.CommentStatus(r.URL.Query().Get("status"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		result, err := s.askActor(s.Engine.GetCommentActor(), &actors.ListModerationQueueMsg{
			SiteID:      siteID,
			RequesterID: userID,
			Status:      status,
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			http.Error(w, "Failed to load moderation queue", http.StatusInternalServerError)
			return
		}
		if s.wroteAppError(w, result) {
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// HandleModerateComment applies an owner's verdict to a comment.
func (s *Server) HandleModerateComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req ModerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		commentID, err := uuid.Parse(req.CommentID)
		if err != nil {
			http.Error(w, "Invalid comment ID", http.StatusBadRequest)
			return
		}

		result, err := s.askActor(s.Engine.GetCommentActor(), &actors.ModerateCommentMsg{
			CommentID:   commentID,
			ModeratorID: userID,
			Status:      models.CommentStatus(req.Status),
		})
		if err != nil {
			http.Error(w, "Failed to moderate comment", http.StatusInternalServerError)
			return
		}
		if s.wroteAppError(w, result) {
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}
