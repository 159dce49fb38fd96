package ratelimit

import (
	"log"
	"time"

	"lilypad/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Message types for the limiter actors
type (
	// AdmitMsg asks whether one more request from Key may proceed right now.
	AdmitMsg struct {
		Key string
	}

	// AdmitResult carries the verdict for one AdmitMsg.
	AdmitResult struct {
		Allowed   bool
		Remaining int
	}

	// keyIdleMsg is sent by a key actor to its supervisor once the key has
	// been silent for a full window span. Handled counts the requests the
	// child had processed when it reported.
	keyIdleMsg struct {
		Key     string
		Handled uint64
	}
)

// keyEntry is the supervisor's bookkeeping for one live key.
type keyEntry struct {
	pid       *actor.PID
	forwarded uint64
}

// KeySupervisor owns one keyActor per active key. It forwards AdmitMsg to the
// right child, so the verdict for one key is never serialized behind another
// key's traffic; the supervisor itself only does map lookups and spawns.
type KeySupervisor struct {
	max  int
	span time.Duration
	keys map[string]*keyEntry
}

func NewKeySupervisor(max int, span time.Duration) actor.Actor {
	return &KeySupervisor{
		max:  max,
		span: span,
		keys: make(map[string]*keyEntry),
	}
}

func (s *KeySupervisor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *AdmitMsg:
		entry, exists := s.keys[msg.Key]
		if !exists {
			props := actor.PropsFromProducer(func() actor.Actor {
				return newKeyActor(msg.Key, s.max, s.span)
			})
			entry = &keyEntry{pid: context.Spawn(props)}
			s.keys[msg.Key] = entry
		}
		entry.forwarded++
		// Forward keeps the original sender, so the child responds straight
		// back to the caller's future.
		context.Forward(entry.pid)

	case *keyIdleMsg:
		entry, exists := s.keys[msg.Key]
		if !exists {
			return
		}
		// An idle report can cross paths with a request already forwarded to
		// the child. Evict only when the child has handled everything sent
		// its way; a stale report is dropped and the child files a fresh one
		// after its next quiet span.
		if entry.forwarded != msg.Handled {
			return
		}
		delete(s.keys, msg.Key)
		context.Poison(entry.pid)
	}
}

// keyActor wraps one Window and reaps itself after a full span of silence.
type keyActor struct {
	key     string
	window  *Window
	span    time.Duration
	handled uint64
}

func newKeyActor(key string, max int, span time.Duration) *keyActor {
	return &keyActor{
		key:    key,
		window: NewWindow(max, span),
		span:   span,
	}
}

func (a *keyActor) Receive(context actor.Context) {
	switch context.Message().(type) {
	case *actor.Started:
		context.SetReceiveTimeout(a.span)

	case *AdmitMsg:
		a.handled++
		// Rearm the timer here too: a stale idle report leaves it cancelled.
		context.SetReceiveTimeout(a.span)
		now := time.Now()
		allowed := a.window.Admit(now)
		context.Respond(&AdmitResult{
			Allowed:   allowed,
			Remaining: a.window.Remaining(now),
		})

	case *actor.ReceiveTimeout:
		// A full window of silence means the window is empty; hand the key
		// back to the supervisor for eviction.
		context.CancelReceiveTimeout()
		if parent := context.Parent(); parent != nil {
			context.Send(parent, &keyIdleMsg{Key: a.key, Handled: a.handled})
		}
	}
}

// Limiter is the synchronous front door used by HTTP middleware.
type Limiter struct {
	system  *actor.ActorSystem
	pid     *actor.PID
	timeout time.Duration
}

// NewLimiter spawns the supervisor and returns a handle for middleware use.
func NewLimiter(system *actor.ActorSystem, max int, span time.Duration) *Limiter {
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewKeySupervisor(max, span)
	})
	pid := system.Root.Spawn(props)
	return &Limiter{
		system:  system,
		pid:     pid,
		timeout: 2 * time.Second,
	}
}

// Allow reports whether one more request attributed to key may proceed.
func (l *Limiter) Allow(key string) (bool, error) {
	future := l.system.Root.RequestFuture(l.pid, &AdmitMsg{Key: key}, l.timeout)
	result, err := future.Result()
	if err != nil {
		log.Printf("Rate limiter request for key %s failed: %v", key, err)
		return false, utils.NewActorTimeoutError("rate limiter")
	}
	verdict, ok := result.(*AdmitResult)
	if !ok {
		return false, utils.NewAppError(utils.ErrActorTimeout, "unexpected rate limiter response", nil)
	}
	return verdict.Allowed, nil
}
