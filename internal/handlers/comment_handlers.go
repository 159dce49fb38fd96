package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"lilypad/internal/engine/actors"
	"lilypad/internal/middleware"

	"github.com/google/uuid"
)

// SubmitCommentRequest represents a comment submission from the widget
type SubmitCommentRequest struct {
	SiteID    string `json:"siteId"`
	PageSlug  string `json:"pageSlug"`
	PageTitle string `json:"pageTitle,omitempty"`
	Content   string `json:"content"`
	ParentID  string `json:"parentId,omitempty"` // Optional, for replies
}

// FlagCommentRequest represents a visitor flagging a comment
type FlagCommentRequest struct {
	CommentID string `json:"commentId"`
	Reason    string `json:"reason"`
}

// LikeCommentRequest represents a like toggle
type LikeCommentRequest struct {
	CommentID string `json:"commentId"`
}

// HandleComments handles comment submission (POST) and listing (GET).
func (s *Server) HandleComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handleSubmitComment(w, r)
		case http.MethodGet:
			s.handleListComments(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleSubmitComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SubmitCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	siteID, err := uuid.Parse(req.SiteID)
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != "" {
		parsed, err := uuid.Parse(req.ParentID)
		if err != nil {
			http.Error(w, "Invalid parent comment ID", http.StatusBadRequest)
			return
		}
		parentID = &parsed
	}

	result, err := s.askActor(s.Engine.GetCommentActor(), &actors.CreateCommentMsg{
		SiteID:    siteID,
		PageSlug:  req.PageSlug,
		PageTitle: req.PageTitle,
		AuthorID:  userID,
		ParentID:  parentID,
		Content:   req.Content,
	})
	if err != nil {
		log.Printf("Error getting result from comment actor: %v", err)
		http.Error(w, "Failed to create comment", http.StatusInternalServerError)
		return
	}
	if s.wroteAppError(w, result) {
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	siteID, err := uuid.Parse(r.URL.Query().Get("siteId"))
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}
	pageSlug := r.URL.Query().Get("pageSlug")
	if pageSlug == "" {
		http.Error(w, "pageSlug is required", http.StatusBadRequest)
		return
	}

	result, err := s.askActor(s.Engine.GetCommentActor(), &actors.GetPageCommentsMsg{
		SiteID:   siteID,
		PageSlug: pageSlug,
	})
	if err != nil {
		http.Error(w, "Failed to load comments", http.StatusInternalServerError)
		return
	}
	if s.wroteAppError(w, result) {
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HandleCommentLike toggles the caller's like on a comment.
func (s *Server) HandleCommentLike() http.HandlerFunc {
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

		var req LikeCommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		commentID, err := uuid.Parse(req.CommentID)
		if err != nil {
			http.Error(w, "Invalid comment ID", http.StatusBadRequest)
			return
		}

		result, err := s.askActor(s.Engine.GetCommentActor(), &actors.LikeCommentMsg{
			CommentID: commentID,
			UserID:    userID,
		})
		if err != nil {
			http.Error(w, "Failed to toggle like", http.StatusInternalServerError)
			return
		}
		if s.wroteAppError(w, result) {
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

// HandleCommentFlag records the caller's flag on a comment.
func (s *Server) HandleCommentFlag() http.HandlerFunc {
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

		var req FlagCommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		commentID, err := uuid.Parse(req.CommentID)
		if err != nil {
			http.Error(w, "Invalid comment ID", http.StatusBadRequest)
			return
		}

		result, err := s.askActor(s.Engine.GetCommentActor(), &actors.FlagCommentMsg{
			CommentID: commentID,
			UserID:    userID,
			Reason:    req.Reason,
		})
		if err != nil {
			http.Error(w, "Failed to record flag", http.StatusInternalServerError)
			return
		}
		if s.wroteAppError(w, result) {
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}
