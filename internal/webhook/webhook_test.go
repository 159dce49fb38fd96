package webhook

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lilypad/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignKnownVector(t *testing.T) {
	// base64(sha256("hello" + "secret"))
	got := Sign([]byte("hello"), "secret")
	assert.Equal(t, "hedkVuZL7YvxfkO6maoB0pbn1+zGJszC0hMjiMnxIVk=", got)
}

func TestSignChangesWithSecret(t *testing.T) {
	body := []byte(`{"event":"comment.created"}`)
	assert.NotEqual(t, Sign(body, "secret-a"), Sign(body, "secret-b"))
	assert.Equal(t, Sign(body, "secret-a"), Sign(body, "secret-a"))
}

func spawnDispatcher(system *actor.ActorSystem, maxAttempts int) *actor.PID {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &Dispatcher{
			client:      &http.Client{Timeout: time.Second},
			maxAttempts: maxAttempts,
			baseBackoff: 20 * time.Millisecond,
		}
	})
	return system.Root.Spawn(props)
}

func waitForCount(t *testing.T, counter *int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(counter) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d deliveries, saw %d", want, atomic.LoadInt32(counter))
}

func TestDispatcherRetriesUntilAck(t *testing.T) {
	var calls int32
	var lastSignature atomic.Value
	var lastBody atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(body)
		lastSignature.Store(r.Header.Get(SignatureHeader))
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	system := actor.NewActorSystem()
	pid := spawnDispatcher(system, 5)

	body := []byte(`{"event":"comment.created"}`)
	system.Root.Send(pid, &DeliverEventMsg{
		URL:     server.URL,
		Secret:  "s3cret",
		Event:   models.EventCommentCreated,
		Body:    body,
		Attempt: 1,
	})

	waitForCount(t, &calls, 2)
	// Ack stops the retries.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	assert.Equal(t, Sign(body, "s3cret"), lastSignature.Load().(string))
	assert.Equal(t, body, lastBody.Load().([]byte), "retries resend identical bytes")
}

func TestDispatcherDropsAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	system := actor.NewActorSystem()
	pid := spawnDispatcher(system, 3)

	system.Root.Send(pid, &DeliverEventMsg{
		URL:     server.URL,
		Secret:  "s3cret",
		Event:   models.EventCommentCreated,
		Body:    []byte(`{}`),
		Attempt: 1,
	})

	waitForCount(t, &calls, 3)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "budget exhausted, no further attempts")
}

func TestNotifierSkipsUnconfiguredSite(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	system := actor.NewActorSystem()
	notifier := NewNotifier(system, time.Second, 3)

	site := &models.Site{ID: uuid.New(), WebhookURL: "", WebhookSecret: ""}
	comment := &models.Comment{ID: uuid.New(), Status: models.StatusApproved}
	author := &models.User{Username: "a", Email: "a@example.com"}
	page := &models.Page{Slug: "/p", Title: "P"}

	event, err := models.NewCommentCreatedEvent(comment, author, page, time.Now())
	require.NoError(t, err)

	notifier.Enqueue(site, event)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
