package handlers

import (
	"log"
	"net/http"

	"lilypad/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard may be served from a different origin than the API.
		return true
	},
}

// HandleModerationFeed upgrades a site owner's dashboard connection to a
// websocket streaming that site's live moderation events. Browsers cannot
// set headers on websocket dials, so the token rides in a query parameter.
func (s *Server) HandleModerationFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			http.Error(w, "Missing authentication token", http.StatusUnauthorized)
			return
		}
		claims, err := s.Auth.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		userID := claims.UserID

		siteID, err := uuid.Parse(r.URL.Query().Get("siteId"))
		if err != nil {
			http.Error(w, "Invalid site ID", http.StatusBadRequest)
			return
		}

		// Only the owner may watch a site's feed.
		site, err := s.DB.GetSite(r.Context(), siteID)
		if err != nil {
			http.Error(w, "Site not found", http.StatusNotFound)
			return
		}
		if site.OwnerID != userID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for site %s: %v", siteID, err)
			return
		}

		client := &websocket.Client{
			Hub:    s.Hub,
			SiteID: siteID,
			UserID: userID,
			Conn:   conn,
			Send:   make(chan []byte, 256),
		}
		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
