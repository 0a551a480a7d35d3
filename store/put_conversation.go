package store

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Put writes a conversation and its transcript to the cache, replacing any
// previous row and reindexing its searchable content.
func (s *Store) Put(conversation *Conversation) error {
	messagesJSON, err := json.Marshal(conversation.Messages)
	if err != nil {
		return errors.Wrap(err, "marshaling messages")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		REPLACE INTO conversations (id, user_id, title, created_at, updated_at, messages)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conversation.ID, conversation.UserID, conversation.Title,
		conversation.CreatedAt, conversation.UpdatedAt, string(messagesJSON))
	if err != nil {
		return errors.Wrap(err, "writing conversation")
	}

	_, err = tx.Exec(`DELETE FROM conversations_fts WHERE id = ?`, conversation.ID)
	if err != nil {
		return errors.Wrap(err, "clearing FTS row")
	}
	_, err = tx.Exec(`
		INSERT INTO conversations_fts (id, searchable_content)
		VALUES (?, ?)
	`, conversation.ID, computeSearchableContent(conversation))
	if err != nil {
		return errors.Wrap(err, "writing FTS row")
	}

	return errors.Wrap(tx.Commit(), "committing transaction")
}

// computeSearchableContent flattens a conversation into the text indexed
// for full-text search.
func computeSearchableContent(conversation *Conversation) string {
	parts := []string{conversation.Title}
	for _, message := range conversation.Messages {
		parts = append(parts, message.Content)
	}
	return strings.Join(parts, "\n")
}
