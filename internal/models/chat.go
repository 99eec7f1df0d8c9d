package models

// ChatMessage is a single turn in a strategy-assistant conversation.
type ChatMessage struct {
	ID        string         `json:"id"`
	Sender    string         `json:"sender"` // "user" or "ai"
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ChatSession is a conversation persisted as one JSON document.
type ChatSession struct {
	ID        string        `json:"id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

const (
	SenderUser = "user"
	SenderAI   = "ai"
)
