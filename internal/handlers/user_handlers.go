package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"lilypad/internal/middleware"
	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest represents a request to create a new account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the session token plus the public user record.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// HandleUserRegister creates an account and returns a session token.
func (s *Server) HandleUserRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
			http.Error(w, "Username, email and a password of at least 8 characters are required", http.StatusBadRequest)
			return
		}

		if existing, _ := s.DB.GetUserByEmail(r.Context(), req.Email); existing != nil {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Error hashing password: %v", err)
			http.Error(w, "Registration failed", http.StatusInternalServerError)
			return
		}

		now := time.Now()
		user := &models.User{
			ID:             uuid.New(),
			Username:       req.Username,
			Email:          req.Email,
			HashedPassword: string(hashed),
			Reputation:     0,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.DB.SaveUser(r.Context(), user); err != nil {
			if s.wroteAppError(w, err) {
				return
			}
			http.Error(w, "Registration failed", http.StatusInternalServerError)
			return
		}

		token, err := s.Auth.GenerateToken(user.ID)
		if err != nil {
			log.Printf("Error generating token for user %s: %v", user.ID, err)
			http.Error(w, "Registration failed", http.StatusInternalServerError)
			return
		}

		respondJSON(w, http.StatusCreated, &AuthResponse{Token: token, User: user})
	}
}

// HandleUserLogin verifies credentials and returns a session token.
func (s *Server) HandleUserLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		user, err := s.DB.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
		if err != nil {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		token, err := s.Auth.GenerateToken(user.ID)
		if err != nil {
			log.Printf("Error generating token for user %s: %v", user.ID, err)
			http.Error(w, "Login failed", http.StatusInternalServerError)
			return
		}

		respondJSON(w, http.StatusOK, &AuthResponse{Token: token, User: user})
	}
}

// HandleUserProfile returns the authenticated user's own record.
func (s *Server) HandleUserProfile() http.HandlerFunc {
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

		user, err := s.DB.GetUser(r.Context(), userID)
		if err != nil {
			if appErr, ok := err.(*utils.AppError); ok && s.wroteAppError(w, appErr) {
				return
			}
			http.Error(w, "Failed to load profile", http.StatusInternalServerError)
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}
