package store

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// List cached conversations for a user, most recently updated first.
func (s *Store) List(userID string, pageSize int) ([]*Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, title, created_at, updated_at, messages
		FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, userID, pageSize)
	if err != nil {
		return nil, errors.Wrap(err, "querying conversations")
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conversation := &Conversation{}
		var messagesJSON string
		if err := rows.Scan(&conversation.ID, &conversation.UserID, &conversation.Title,
			&conversation.CreatedAt, &conversation.UpdatedAt, &messagesJSON); err != nil {
			return nil, errors.Wrap(err, "scanning conversation row")
		}
		if err := json.Unmarshal([]byte(messagesJSON), &conversation.Messages); err != nil {
			return nil, errors.Wrap(err, "unmarshaling messages")
		}
		conversations = append(conversations, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating conversation rows")
	}
	return conversations, nil
}
