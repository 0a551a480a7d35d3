package store

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a conversation is not in the cache.
var ErrNotFound = errors.New("conversation not in cache")

// Get a cached conversation.
func (s *Store) Get(conversationID string) (*Conversation, error) {
	conversation := &Conversation{}
	var messagesJSON string

	err := s.db.QueryRow(`
		SELECT id, user_id, title, created_at, updated_at, messages
		FROM conversations
		WHERE id = ?
	`, conversationID).Scan(&conversation.ID, &conversation.UserID, &conversation.Title,
		&conversation.CreatedAt, &conversation.UpdatedAt, &messagesJSON)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying conversation")
	}

	if err := json.Unmarshal([]byte(messagesJSON), &conversation.Messages); err != nil {
		return nil, errors.Wrap(err, "unmarshaling messages")
	}
	return conversation, nil
}
