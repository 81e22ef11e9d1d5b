package models

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/anonify/internal/timex"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one immutable entry of a chat timeline.
//
// Messages loaded from the server carry an ID. Messages synthesized on the
// client (the optimistic user message, assistant replies built from
// detection results) have ID 0 and a LocalID instead.
type Message struct {
	ID        int64     `json:"id"`
	LocalID   string    `json:"-"`
	ChatID    int64     `json:"chat_id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsLocal reports whether the message was synthesized on this client.
func (m Message) IsLocal() bool { return m.LocalID != "" }

func (m *Message) UnmarshalJSON(b []byte) error {
	type alias Message
	aux := struct {
		*alias
		CreatedAt timex.Timestamp `json:"created_at"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.CreatedAt = aux.CreatedAt.Time
	return nil
}

// NewMessage is the body of POST /chats/{id}/messages.
type NewMessage struct {
	Sender   Sender `json:"sender"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}
