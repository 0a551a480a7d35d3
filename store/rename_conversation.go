package store

import (
	"time"

	"github.com/pkg/errors"
)

// Rename updates a cached conversation's title and reindexes it.
func (s *Store) Rename(conversationID, title string) error {
	conversation, err := s.Get(conversationID)
	if err != nil {
		return err
	}
	conversation.Title = title
	conversation.UpdatedAt = time.Now().UnixMicro()
	return errors.Wrap(s.Put(conversation), "writing renamed conversation")
}
