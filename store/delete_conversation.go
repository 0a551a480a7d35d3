package store

import (
	"github.com/pkg/errors"
)

// Delete removes a conversation and its search index row.
func (s *Store) Delete(conversationID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		return errors.Wrap(err, "deleting conversation")
	}
	if _, err := tx.Exec(`DELETE FROM conversations_fts WHERE id = ?`, conversationID); err != nil {
		return errors.Wrap(err, "deleting FTS row")
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
