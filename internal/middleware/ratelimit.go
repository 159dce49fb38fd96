package middleware

import (
	"log"
	"net"
	"net/http"
	"strings"

	"lilypad/internal/ratelimit"
	"lilypad/internal/utils"
)

// ApplyRateLimit gates a write endpoint behind the per-client limiter. It
// runs before authentication and before any body parsing: a rejected
// request costs nothing beyond the limiter lookup, and no storage write can
// have happened.
func ApplyRateLimit(handler http.HandlerFunc, limiter *ratelimit.Limiter, metrics *utils.MetricsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := ClientKey(r)

		allowed, err := limiter.Allow(key)
		if err != nil {
			// Limiter trouble is an availability problem, not the client's
			// fault; let the request through rather than hard-failing writes.
			log.Printf("Rate limiter unavailable, admitting request from %s: %v", key, err)
			handler(w, r)
			return
		}
		if !allowed {
			metrics.IncrementDenied()
			appErr := utils.NewRateExceededError(key)
			http.Error(w, appErr.Message, utils.AppErrorToHTTPStatus(appErr.Code))
			return
		}
		handler(w, r)
	}
}

// ClientKey derives the rate-limit key for a request: the first hop in
// X-Forwarded-For when present (the widget always sits behind a proxy in
// production), otherwise the peer address without the port.
func ClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
