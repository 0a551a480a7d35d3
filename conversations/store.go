// Package conversations manages the local view of a user's conversation
// list: loading, grouping, filtering, renames and deletes, plus refreshes
// driven by realtime change hints.
package conversations

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/siralabs/sira/internal/api"
)

// State of the conversation list.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
)

// DefaultRefreshDebounce between an external change hint and the reload it
// triggers. Hints arriving inside the window coalesce into one reload.
const DefaultRefreshDebounce = 1500 * time.Millisecond

// Backend is the slice of the API the list depends on.
type Backend interface {
	ListConversations(ctx context.Context, userID string) ([]api.Conversation, error)
	RenameConversation(ctx context.Context, conversationID, title string) error
	DeleteConversation(ctx context.Context, conversationID string) error
}

// Cache seeds the list before the first network load and receives summary
// updates after each successful one.
type Cache interface {
	ListSummaries(userID string, pageSize int) ([]api.Conversation, error)
	SyncSummaries(conversations []api.Conversation) error
}

// Options configure a Store.
type Options struct {
	// Debounce window for external change hints. Zero means the default.
	Debounce time.Duration
	Logger   zerolog.Logger
	// OnChange fires after every state mutation, outside the store lock.
	OnChange func()
	// OnNavigateAway fires when the conversation marked active is deleted.
	OnNavigateAway func()
	// Cache for offline seeding and mirroring. Nil disables both.
	Cache Cache
}

// Store holds the conversation list for one user.
type Store struct {
	backend Backend
	userID  string
	opts    Options

	mu         sync.Mutex
	state      State
	items      []api.Conversation
	generation int
	editingID  string
	activeID   string
	timer      *time.Timer
	closed     bool
}

// NewStore for a user's conversations. With a cache configured, the list
// starts seeded with cached rows so there is something to show before the
// first load answers; the seed still counts as unloaded.
func NewStore(backend Backend, userID string, opts Options) *Store {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultRefreshDebounce
	}
	s := &Store{
		backend: backend,
		userID:  userID,
		opts:    opts,
	}
	if opts.Cache != nil {
		if seed, err := opts.Cache.ListSummaries(userID, seedPageSize); err != nil {
			opts.Logger.Warn().Err(err).Msg("seeding conversation list from cache")
		} else {
			s.items = seed
		}
	}
	return s
}

const seedPageSize = 200

// State of the list.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Conversations returns a copy of the loaded list, most recent first.
func (s *Store) Conversations() []api.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Conversation, len(s.items))
	copy(out, s.items)
	return out
}

// SetActive marks the conversation currently open in the transcript, so a
// delete of that conversation can trigger navigation away from it.
func (s *Store) SetActive(conversationID string) {
	s.mu.Lock()
	s.activeID = conversationID
	s.mu.Unlock()
}

// Load fetches the list from the backend. A load that completes after a
// newer load has started is discarded. On failure the previous list is
// kept.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.state = StateLoading
	editingID := s.editingID
	s.mu.Unlock()
	s.notify()

	items, err := s.backend.ListConversations(ctx, s.userID)

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		// Keep whatever we had; an empty unloaded list stays unloaded.
		if len(s.items) > 0 {
			s.state = StateReady
		} else {
			s.state = StateUnloaded
		}
		s.mu.Unlock()
		s.notify()
		return errors.Wrap(err, "loading conversations")
	}
	if editingID != "" {
		// A rename is being typed; keep the local title for that row so
		// the refresh does not clobber the edit in progress.
		for i := range items {
			if items[i].ID != editingID {
				continue
			}
			for _, prev := range s.items {
				if prev.ID == editingID {
					items[i].Title = prev.Title
				}
			}
		}
	}
	s.items = items
	s.state = StateReady
	s.mu.Unlock()
	s.notify()
	if s.opts.Cache != nil {
		if err := s.opts.Cache.SyncSummaries(items); err != nil {
			s.opts.Logger.Warn().Err(err).Msg("mirroring conversation list to cache")
		}
	}
	return nil
}

// StartRename marks a conversation as being edited. While the marker is
// set, refreshes preserve its local title and external hints are ignored.
func (s *Store) StartRename(conversationID string) {
	s.mu.Lock()
	s.editingID = conversationID
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}

// CancelRename clears the editing marker without touching the title.
func (s *Store) CancelRename() {
	s.mu.Lock()
	s.editingID = ""
	s.mu.Unlock()
}

// CommitRename applies the new title locally, clears the editing marker,
// then persists. On failure the list is reloaded to drop the optimistic
// title.
func (s *Store) CommitRename(ctx context.Context, conversationID, title string) error {
	title = strings.TrimSpace(title)
	s.mu.Lock()
	s.editingID = ""
	if title == "" {
		s.mu.Unlock()
		s.notify()
		return nil
	}
	for i := range s.items {
		if s.items[i].ID == conversationID {
			s.items[i].Title = title
		}
	}
	s.mu.Unlock()
	s.notify()

	if err := s.backend.RenameConversation(ctx, conversationID, title); err != nil {
		s.opts.Logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("rename failed, reloading")
		if loadErr := s.Load(ctx); loadErr != nil {
			s.opts.Logger.Warn().Err(loadErr).Msg("rollback reload failed")
		}
		return errors.Wrap(err, "renaming conversation")
	}
	return nil
}

// Delete removes a conversation locally, navigates away if it was the
// active one, then persists. On failure the list is reloaded to restore
// the row.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	kept := s.items[:0]
	for _, c := range s.items {
		if c.ID != conversationID {
			kept = append(kept, c)
		}
	}
	s.items = kept
	wasActive := s.activeID == conversationID
	if wasActive {
		s.activeID = ""
	}
	s.mu.Unlock()
	s.notify()
	if wasActive && s.opts.OnNavigateAway != nil {
		s.opts.OnNavigateAway()
	}

	if err := s.backend.DeleteConversation(ctx, conversationID); err != nil {
		s.opts.Logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("delete failed, reloading")
		if loadErr := s.Load(ctx); loadErr != nil {
			s.opts.Logger.Warn().Err(loadErr).Msg("rollback reload failed")
		}
		return errors.Wrap(err, "deleting conversation")
	}
	return nil
}

// OnExternalChange schedules a debounced reload. Hints are dropped while a
// rename is being edited; repeated hints reset the timer so a burst loads
// once.
func (s *Store) OnExternalChange(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.editingID != "" {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.Debounce, func() {
		s.mu.Lock()
		closed := s.closed
		s.timer = nil
		s.mu.Unlock()
		if closed {
			return
		}
		if err := s.Load(ctx); err != nil {
			s.opts.Logger.Warn().Err(err).Msg("debounced reload failed")
		}
	})
	s.mu.Unlock()
}

// Close stops any pending debounced reload.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}

func (s *Store) notify() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}
