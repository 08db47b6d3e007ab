package session

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat message
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the ordered message history for one session.
// Messages are append-only; a user message is eventually followed by
// exactly one assistant message closing that turn.
type Conversation []Message
