// Package webhook delivers site-owner notifications with at-least-once
// semantics: enqueue is fire-and-forget, a 2xx response acks, anything else
// is retried with backoff until the attempt budget runs out.
package webhook

import (
	"crypto/sha256"
	"encoding/base64"
)

// Sign computes the payload signature a receiver can verify with the site's
// shared secret: base64(sha256(body || secret)). Sent in the
// X-Lilypad-Signature header alongside every delivery.
func Sign(body []byte, secret string) string {
	h := sha256.New()
	h.Write(body)
	h.Write([]byte(secret))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
