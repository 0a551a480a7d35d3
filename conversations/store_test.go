package conversations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siralabs/sira/internal/api"
)

type fakeBackend struct {
	mu          sync.Mutex
	lists       [][]api.Conversation
	listErr     error
	listCalls   int
	renameErr   error
	renamed     map[string]string
	deleteErr error
	deleted   []string
}

func newFakeBackend(items ...api.Conversation) *fakeBackend {
	return &fakeBackend{
		lists:   [][]api.Conversation{items},
		renamed: map[string]string{},
	}
}

func (f *fakeBackend) ListConversations(ctx context.Context, userID string) ([]api.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	list := f.lists[0]
	if len(f.lists) > 1 {
		f.lists = f.lists[1:]
	}
	out := make([]api.Conversation, len(list))
	copy(out, list)
	return out, nil
}

func (f *fakeBackend) RenameConversation(ctx context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renamed[id] = title
	return nil
}

func (f *fakeBackend) DeleteConversation(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func testStore(backend Backend, opts Options) *Store {
	opts.Logger = zerolog.Nop()
	return NewStore(backend, "user-1", opts)
}

func TestStoreLoad(t *testing.T) {
	backend := newFakeBackend(
		api.Conversation{ID: "c1", Title: "First"},
		api.Conversation{ID: "c2", Title: "Second"},
	)
	s := testStore(backend, Options{})
	defer s.Close()

	assert.Equal(t, StateUnloaded, s.State())
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, StateReady, s.State())
	assert.Len(t, s.Conversations(), 2)
}

func TestStoreLoadFailureKeepsPreviousList(t *testing.T) {
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "First"})
	s := testStore(backend, Options{})
	defer s.Close()

	require.NoError(t, s.Load(context.Background()))

	backend.mu.Lock()
	backend.listErr = errors.New("backend down")
	backend.mu.Unlock()

	assert.Error(t, s.Load(context.Background()))
	assert.Equal(t, StateReady, s.State())
	assert.Len(t, s.Conversations(), 1)
}

func TestStoreCommitRenameOptimistic(t *testing.T) {
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "Old title"})
	s := testStore(backend, Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	s.StartRename("c1")
	require.NoError(t, s.CommitRename(context.Background(), "c1", "New title"))

	assert.Equal(t, "New title", s.Conversations()[0].Title)
	assert.Equal(t, "New title", backend.renamed["c1"])
}

func TestStoreCommitRenameFailureRollsBackByReload(t *testing.T) {
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "Old title"})
	backend.renameErr = errors.New("rejected")
	s := testStore(backend, Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	err := s.CommitRename(context.Background(), "c1", "New title")
	assert.Error(t, err)
	// The reload restored the backend's title.
	assert.Equal(t, "Old title", s.Conversations()[0].Title)
}

func TestStoreCommitRenameBlankIsNoop(t *testing.T) {
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "Old title"})
	s := testStore(backend, Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.CommitRename(context.Background(), "c1", "   "))
	assert.Equal(t, "Old title", s.Conversations()[0].Title)
	assert.Empty(t, backend.renamed)
}

func TestStoreLoadPreservesTitleBeingEdited(t *testing.T) {
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "Local edit"})
	backend.lists = [][]api.Conversation{
		{{ID: "c1", Title: "Local edit"}},
		{{ID: "c1", Title: "Server title"}},
	}
	s := testStore(backend, Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	s.StartRename("c1")
	require.NoError(t, s.Load(context.Background()))
	// The refresh kept the local title for the row being edited.
	assert.Equal(t, "Local edit", s.Conversations()[0].Title)
}

func TestStoreDeleteOptimisticAndNavigateAway(t *testing.T) {
	backend := newFakeBackend(
		api.Conversation{ID: "c1", Title: "First"},
		api.Conversation{ID: "c2", Title: "Second"},
	)
	navigated := false
	s := testStore(backend, Options{OnNavigateAway: func() { navigated = true }})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	s.SetActive("c1")
	require.NoError(t, s.Delete(context.Background(), "c1"))

	assert.True(t, navigated)
	require.Len(t, s.Conversations(), 1)
	assert.Equal(t, "c2", s.Conversations()[0].ID)
	assert.Equal(t, []string{"c1"}, backend.deleted)
}

func TestStoreDeleteFailureRestoresRow(t *testing.T) {
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "First"})
	backend.deleteErr = errors.New("rejected")
	s := testStore(backend, Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	assert.Error(t, s.Delete(context.Background(), "c1"))
	assert.Len(t, s.Conversations(), 1)
}

func TestStoreExternalChangeDebounces(t *testing.T) {
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "First"})
	s := testStore(backend, Options{Debounce: 30 * time.Millisecond})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, 1, backend.calls())

	// A burst of hints coalesces into one reload.
	for i := 0; i < 5; i++ {
		s.OnExternalChange(context.Background())
		time.Sleep(5 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return backend.calls() == 2 }, time.Second, 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 2, backend.calls())
}

func TestStoreExternalChangeSuppressedWhileEditing(t *testing.T) {
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "First"})
	s := testStore(backend, Options{Debounce: 10 * time.Millisecond})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	s.StartRename("c1")
	s.OnExternalChange(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, backend.calls())
}

func TestStoreCloseStopsPendingReload(t *testing.T) {
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "First"})
	s := testStore(backend, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, s.Load(context.Background()))

	s.OnExternalChange(context.Background())
	s.Close()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, backend.calls())
}

type fakeCache struct {
	mu     sync.Mutex
	seed   []api.Conversation
	synced [][]api.Conversation
}

func (f *fakeCache) ListSummaries(userID string, pageSize int) ([]api.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seed, nil
}

func (f *fakeCache) SyncSummaries(conversations []api.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, conversations)
	return nil
}

func TestCacheSeedsBeforeFirstLoad(t *testing.T) {
	cache := &fakeCache{seed: []api.Conversation{{ID: "cached", Title: "From cache"}}}
	backend := newFakeBackend(api.Conversation{ID: "fresh", Title: "From backend"})
	s := testStore(backend, Options{Cache: cache})

	// Something to show before any network round trip, but still unloaded.
	assert.Equal(t, StateUnloaded, s.State())
	items := s.Conversations()
	require.Len(t, items, 1)
	assert.Equal(t, "cached", items[0].ID)

	require.NoError(t, s.Load(context.Background()))
	items = s.Conversations()
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].ID)
}

func TestLoadMirrorsToCache(t *testing.T) {
	cache := &fakeCache{}
	backend := newFakeBackend(api.Conversation{ID: "c1", Title: "Quantum"})
	s := testStore(backend, Options{Cache: cache})

	require.NoError(t, s.Load(context.Background()))

	cache.mu.Lock()
	defer cache.mu.Unlock()
	require.Len(t, cache.synced, 1)
	require.Len(t, cache.synced[0], 1)
	assert.Equal(t, "c1", cache.synced[0][0].ID)
}
