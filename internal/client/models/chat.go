// Package models defines the data exchanged with the Anonify backend and the
// client-side message timeline.
package models

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/anonify/internal/timex"
)

// Chat is a named conversation owned by the current user.
type Chat struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Chat) UnmarshalJSON(b []byte) error {
	type alias Chat
	aux := struct {
		*alias
		CreatedAt timex.Timestamp `json:"created_at"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.CreatedAt = aux.CreatedAt.Time
	return nil
}

// NewChat is the body of POST /chats. An empty title lets the server pick one.
type NewChat struct {
	Title string `json:"title,omitempty"`
}

// ChatRename is the body of PATCH /chats/{id}.
type ChatRename struct {
	Title string `json:"title"`
}
