package store

import (
	"time"

	"github.com/siralabs/sira/internal/api"
)

// Conversation is a cached conversation with its transcript.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt int64
	UpdatedAt int64
	Messages  []api.Message
}

// FromAPI builds a cache row from a backend conversation.
func FromAPI(c api.Conversation, messages []api.Message) *Conversation {
	return &Conversation{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UnixMicro(),
		UpdatedAt: c.ActivityTime().UnixMicro(),
		Messages:  messages,
	}
}

// ToAPI converts a cache row back into the backend shape.
func (c *Conversation) ToAPI() api.Conversation {
	return api.Conversation{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: time.UnixMicro(c.CreatedAt),
		UpdatedAt: time.UnixMicro(c.UpdatedAt),
	}
}
