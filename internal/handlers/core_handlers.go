package handlers

import (
	"net/http"
	"time"
)

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snapshot := s.Metrics.Snapshot()
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "healthy",
			"time":           time.Now().UTC(),
			"uptime":         snapshot.Uptime.String(),
			"request_count":  snapshot.RequestCount,
			"error_count":    snapshot.ErrorCount,
			"denied_count":   snapshot.DeniedCount,
			"avg_latency_ns": snapshot.AverageLatencyNs,
		})
	}
}
