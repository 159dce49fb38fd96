// Package websocket streams live moderation events to site-owner dashboards.
// A client subscribes to one site's feed; the comment pipeline pushes
// comment.pending and comment.flagged events as they happen.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"lilypad/internal/models"

	"github.com/google/uuid"
)

// FeedMessage is the wire format pushed to dashboard clients.
type FeedMessage struct {
	Event     string          `json:"event"`
	SiteID    uuid.UUID       `json:"siteId"`
	Comment   *models.Comment `json:"comment"`
	Timestamp time.Time       `json:"timestamp"`
}

// siteEvent pairs a serialized payload with the site feed it belongs to.
type siteEvent struct {
	SiteID  uuid.UUID
	Payload []byte
}

// Hub maintains the active dashboard connections grouped by site.
type Hub struct {
	// Registered clients. Maps site ID to a set of active connections.
	Clients map[uuid.UUID]map[*Client]bool

	// Outbound events for a site's subscribers.
	Events chan *siteEvent

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Events:     make(chan *siteEvent, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[uuid.UUID]map[*Client]bool),
	}
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	log.Println("WebSocket Hub started.")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.Clients[client.SiteID]; !ok {
				h.Clients[client.SiteID] = make(map[*Client]bool)
			}
			h.Clients[client.SiteID][client] = true
			log.Printf("Feed client registered for site %s. Connections for site: %d", client.SiteID, len(h.Clients[client.SiteID]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if siteClients, ok := h.Clients[client.SiteID]; ok {
				if _, clientOk := siteClients[client]; clientOk {
					delete(siteClients, client)
					if len(siteClients) == 0 {
						delete(h.Clients, client.SiteID)
					}
					log.Printf("Feed client unregistered for site %s", client.SiteID)
				}
			}
			h.mu.Unlock()

		case event := <-h.Events:
			h.mu.RLock()
			for client := range h.Clients[event.SiteID] {
				select {
				case client.Send <- event.Payload:
				default:
					log.Printf("Feed send buffer full for a client of site %s, dropping event", event.SiteID)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastCommentEvent pushes a moderation event to every dashboard watching
// the site. Implements the comment pipeline's Feed interface. Best-effort:
// a site with no listeners costs one channel send.
func (h *Hub) BroadcastCommentEvent(siteID uuid.UUID, event string, comment *models.Comment) {
	payload, err := json.Marshal(&FeedMessage{
		Event:     event,
		SiteID:    siteID,
		Comment:   comment,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("Failed to serialize feed event %s for site %s: %v", event, siteID, err)
		return
	}
	select {
	case h.Events <- &siteEvent{SiteID: siteID, Payload: payload}:
	default:
		log.Printf("Feed event queue full, dropping %s for site %s", event, siteID)
	}
}
