package webhook

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"lilypad/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
)

// SignatureHeader carries the payload signature on every delivery.
const SignatureHeader = "X-Lilypad-Signature"

// DeliverEventMsg is one delivery attempt in flight. The body is serialized
// once at enqueue time so every retry signs and sends identical bytes.
type DeliverEventMsg struct {
	URL     string
	Secret  string
	Event   string
	Body    []byte
	Attempt int
}

// Dispatcher is the queue consumer: it POSTs payloads, acks on 2xx, and
// reschedules itself with exponential backoff on anything else. Deliveries
// are sequential per dispatcher; a slow endpoint delays later events but
// never the comment-creation response that enqueued them.
type Dispatcher struct {
	client      *http.Client
	maxAttempts int
	baseBackoff time.Duration
	timers      *scheduler.TimerScheduler
}

func NewDispatcher(timeout time.Duration, maxAttempts int) actor.Actor {
	return &Dispatcher{
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		baseBackoff: time.Second,
	}
}

func (d *Dispatcher) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		d.timers = scheduler.NewTimerScheduler(context)

	case *DeliverEventMsg:
		if d.attempt(msg) {
			return
		}
		if msg.Attempt >= d.maxAttempts {
			log.Printf("Webhook delivery to %s dropped after %d attempts (event %s)",
				msg.URL, msg.Attempt, msg.Event)
			return
		}
		retry := &DeliverEventMsg{
			URL:     msg.URL,
			Secret:  msg.Secret,
			Event:   msg.Event,
			Body:    msg.Body,
			Attempt: msg.Attempt + 1,
		}
		d.timers.SendOnce(d.backoff(msg.Attempt), context.Self(), retry)
	}
}

// attempt performs one POST and reports whether the receiver acked.
func (d *Dispatcher) attempt(msg *DeliverEventMsg) bool {
	req, err := http.NewRequest(http.MethodPost, msg.URL, bytes.NewReader(msg.Body))
	if err != nil {
		log.Printf("Webhook request build failed for %s: %v", msg.URL, err)
		return true // malformed URL will never succeed, do not retry
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(msg.Body, msg.Secret))

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("Webhook delivery to %s failed (attempt %d): %v", msg.URL, msg.Attempt, err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true
	}
	log.Printf("Webhook delivery to %s got status %d (attempt %d)", msg.URL, resp.StatusCode, msg.Attempt)
	return false
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	backoff := d.baseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}

// Notifier is the producer-side handle held by the comment pipeline.
type Notifier struct {
	root *actor.RootContext
	pid  *actor.PID
}

// NewNotifier spawns a dispatcher and returns the enqueue handle.
func NewNotifier(system *actor.ActorSystem, timeout time.Duration, maxAttempts int) *Notifier {
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewDispatcher(timeout, maxAttempts)
	})
	pid := system.Root.Spawn(props)
	return &Notifier{root: system.Root, pid: pid}
}

// Enqueue hands a comment.created event to the dispatcher and returns
// immediately. Sites without a configured webhook are skipped; a payload
// that fails to serialize is logged and dropped, never surfaced to the
// comment author.
func (n *Notifier) Enqueue(site *models.Site, event *models.CommentCreatedEvent) {
	if site == nil || !site.WebhookConfigured() {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Webhook payload for site %s failed to serialize: %v", site.ID, err)
		return
	}
	n.root.Send(n.pid, &DeliverEventMsg{
		URL:     site.WebhookURL,
		Secret:  site.WebhookSecret,
		Event:   event.Event,
		Body:    body,
		Attempt: 1,
	})
}
