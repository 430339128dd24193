package eventbus

import (
	"errors"
	"time"
)

const (
	TopicPostDeleted = "post.deleted"
)

// Header carries the fields every published event has.
type Header struct {
	EventID   string    `json:"eventId"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHeader gives the Bus access to the embedded header.
func (h *Header) EventHeader() *Header { return h }

// Event is any envelope that embeds Header.
type Event interface {
	EventHeader() *Header
}

// PostDeleted is published by the content service after a post row is gone.
type PostDeleted struct {
	Header
	PostID   string   `json:"postId"`
	UserID   string   `json:"userId"`
	MediaIDs []string `json:"mediaIds"`
}

// Validate rejects envelopes without the fields consumers key on.
func (e *PostDeleted) Validate() error {
	if e.PostID == "" {
		return errors.New("postId is required")
	}
	if e.UserID == "" {
		return errors.New("userId is required")
	}
	if e.MediaIDs == nil {
		e.MediaIDs = []string{}
	}
	return nil
}
