// Package engine wires the actor pipeline together and hands the handler
// layer the PIDs it talks to.
package engine

import (
	"lilypad/internal/database"
	"lilypad/internal/engine/actors"
	"lilypad/internal/utils"
	"lilypad/internal/webhook"

	"github.com/asynkron/protoactor-go/actor"
)

// Engine coordinates communication between actors
type Engine struct {
	commentActor *actor.PID
	siteActor    *actor.PID
}

func NewEngine(system *actor.ActorSystem, db database.DBAdapter, notifier *webhook.Notifier, feed actors.Feed, metrics *utils.MetricsCollector, flagThreshold int) *Engine {
	context := system.Root

	commentProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewCommentActor(db, notifier, feed, metrics, flagThreshold)
	})
	commentPID := context.Spawn(commentProps)

	siteProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewSiteActor(db, metrics)
	})
	sitePID := context.Spawn(siteProps)

	return &Engine{
		commentActor: commentPID,
		siteActor:    sitePID,
	}
}

// GetCommentActor returns the PID of the comment actor
func (e *Engine) GetCommentActor() *actor.PID {
	return e.commentActor
}

// GetSiteActor returns the PID of the site actor
func (e *Engine) GetSiteActor() *actor.PID {
	return e.siteActor
}
