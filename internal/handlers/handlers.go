package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"lilypad/internal/database"
	"lilypad/internal/engine"
	"lilypad/internal/middleware"
	"lilypad/internal/utils"
	"lilypad/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	DB             database.DBAdapter
	Auth           *middleware.Authenticator
	Hub            *websocket.Hub
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	metrics *utils.MetricsCollector,
	db database.DBAdapter,
	auth *middleware.Authenticator,
	hub *websocket.Hub,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Metrics:        metrics,
		DB:             db,
		Auth:           auth,
		Hub:            hub,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// askActor sends a request to an actor and waits for the reply.
func (s *Server) askActor(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	return future.Result()
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// wroteAppError maps an actor result that is an AppError onto the HTTP
// response and reports whether it did so. Handlers call it right after
// unwrapping a future.
func (s *Server) wroteAppError(w http.ResponseWriter, result interface{}) bool {
	appErr, ok := result.(*utils.AppError)
	if !ok {
		return false
	}
	s.Metrics.IncrementErrors()
	status := utils.AppErrorToHTTPStatus(appErr.Code)
	// Auth failures deliberately leak nothing beyond the status.
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		http.Error(w, http.StatusText(status), status)
		return true
	}
	http.Error(w, appErr.Message, status)
	return true
}
