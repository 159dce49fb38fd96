package models

import (
	"errors"
	"time"
)

// Webhook payloads are explicit tagged records, one type per event, validated
// when they are built. Nothing downstream re-validates a payload; if the
// constructor accepted it, it is deliverable.

const EventCommentCreated = "comment.created"

// EventAuthor is the author snapshot embedded in an outbound event.
type EventAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EventPost identifies the host page the comment belongs to.
type EventPost struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// CommentSnapshot is the comment as it looked when the event fired.
type CommentSnapshot struct {
	ID      string      `json:"id"`
	Content string      `json:"content"`
	Status  string      `json:"status"`
	Author  EventAuthor `json:"author"`
	Post    EventPost   `json:"post"`
}

// CommentCreatedEvent is the payload delivered for comment.created.
type CommentCreatedEvent struct {
	Event     string          `json:"event"`
	Comment   CommentSnapshot `json:"comment"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewCommentCreatedEvent builds a validated comment.created payload.
func NewCommentCreatedEvent(comment *Comment, author *User, page *Page, now time.Time) (*CommentCreatedEvent, error) {
	if comment == nil || author == nil || page == nil {
		return nil, errors.New("event requires comment, author and page")
	}
	if !ValidStatus(comment.Status) {
		return nil, errors.New("event carries unknown comment status")
	}
	return &CommentCreatedEvent{
		Event: EventCommentCreated,
		Comment: CommentSnapshot{
			ID:      comment.ID.String(),
			Content: comment.Content,
			Status:  string(comment.Status),
			Author: EventAuthor{
				Name:  author.Username,
				Email: author.Email,
			},
			Post: EventPost{
				Slug:  page.Slug,
				Title: page.Title,
			},
		},
		Timestamp: now,
	}, nil
}
