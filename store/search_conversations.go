package store

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Search runs a full-text query over cached conversations, most recently
// updated first.
func (s *Store) Search(query string, pageSize int) ([]*Conversation, error) {
	if query == "" {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at, c.messages
		FROM conversations c
		JOIN conversations_fts fts ON c.id = fts.id
		WHERE fts.searchable_content MATCH ?
		ORDER BY c.updated_at DESC
		LIMIT ?
	`, query, pageSize)
	if err != nil {
		return nil, errors.Wrap(err, "querying search results")
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conversation := &Conversation{}
		var messagesJSON string
		if err := rows.Scan(&conversation.ID, &conversation.UserID, &conversation.Title,
			&conversation.CreatedAt, &conversation.UpdatedAt, &messagesJSON); err != nil {
			return nil, errors.Wrap(err, "scanning search row")
		}
		if err := json.Unmarshal([]byte(messagesJSON), &conversation.Messages); err != nil {
			return nil, errors.Wrap(err, "unmarshaling messages")
		}
		conversations = append(conversations, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating search rows")
	}
	return conversations, nil
}
