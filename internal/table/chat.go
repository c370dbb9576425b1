package table

import (
	"time"

	"github.com/google/uuid"
)

// chatHistoryLimit caps the retained chat backlog per table
const chatHistoryLimit = 100

// ChatMessage is one table chat entry
type ChatMessage struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Text     string `json:"text"`
	SentAtMs int64  `json:"sentAtMs"`
}

// ChatRing keeps the most recent chat messages, dropping the oldest
// once the limit is reached
type ChatRing struct {
	msgs  []ChatMessage
	limit int
}

// NewChatRing creates an empty ring with the default limit
func NewChatRing() *ChatRing {
	return &ChatRing{limit: chatHistoryLimit}
}

// Add appends a message and returns it with its assigned id
func (r *ChatRing) Add(userID, username, text string, at time.Time) ChatMessage {
	msg := ChatMessage{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		Text:     text,
		SentAtMs: at.UnixMilli(),
	}
	r.msgs = append(r.msgs, msg)
	if len(r.msgs) > r.limit {
		r.msgs = r.msgs[len(r.msgs)-r.limit:]
	}
	return msg
}

// History returns the retained messages oldest first
func (r *ChatRing) History() []ChatMessage {
	out := make([]ChatMessage, len(r.msgs))
	copy(out, r.msgs)
	return out
}
