package store

import (
	"github.com/pkg/errors"

	"github.com/siralabs/sira/internal/api"
)

// PutTranscript mirrors a conversation and its full message list.
func (s *Store) PutTranscript(conversation api.Conversation, messages []api.Message) error {
	return s.Put(FromAPI(conversation, messages))
}

// SyncSummaries upserts conversation titles and timestamps from a backend
// listing. Cached transcripts are preserved; a conversation seen for the
// first time is stored with an empty one.
func (s *Store) SyncSummaries(conversations []api.Conversation) error {
	for _, conversation := range conversations {
		var messages []api.Message
		if cached, err := s.Get(conversation.ID); err == nil {
			messages = cached.Messages
		} else if err != ErrNotFound {
			return errors.Wrap(err, "reading cached conversation")
		}
		if err := s.Put(FromAPI(conversation, messages)); err != nil {
			return errors.Wrap(err, "writing conversation summary")
		}
	}
	return nil
}

// ListSummaries returns cached conversations in the backend shape, most
// recently updated first.
func (s *Store) ListSummaries(userID string, pageSize int) ([]api.Conversation, error) {
	cached, err := s.List(userID, pageSize)
	if err != nil {
		return nil, err
	}
	conversations := make([]api.Conversation, 0, len(cached))
	for _, c := range cached {
		conversations = append(conversations, c.ToAPI())
	}
	return conversations, nil
}
