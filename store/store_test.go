package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siralabs/sira/internal/api"
)

func newTestStore(t *testing.T) *Store {
	s, err := New(filepath.Join(t.TempDir(), "cache", "sira.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func cachedConversation(id, title string, updatedAt time.Time) *Conversation {
	return FromAPI(api.Conversation{
		ID:        id,
		UserID:    "alice",
		Title:     title,
		CreatedAt: updatedAt.Add(-time.Hour),
		UpdatedAt: updatedAt,
	}, []api.Message{
		{ID: id + "-m1", ConversationID: id, Role: api.RoleUser, Content: "tell me about " + title},
		{ID: id + "-m2", ConversationID: id, Role: api.RoleAssistant, Content: "findings on " + title},
	})
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Put(cachedConversation("c1", "Quantum computing", now)))

	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "Quantum computing", got.Title)
	assert.Equal(t, "alice", got.UserID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, api.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, now.UnixMicro(), got.UpdatedAt)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutReplacesExistingRow(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Put(cachedConversation("c1", "First title", now)))
	require.NoError(t, s.Put(cachedConversation("c1", "Second title", now.Add(time.Minute))))

	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "Second title", got.Title)

	conversations, err := s.List("alice", 10)
	require.NoError(t, err)
	assert.Len(t, conversations, 1)
}

func TestListOrdersByRecency(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Put(cachedConversation("old", "Old", now.Add(-48*time.Hour))))
	require.NoError(t, s.Put(cachedConversation("new", "New", now)))
	require.NoError(t, s.Put(cachedConversation("mid", "Mid", now.Add(-time.Hour))))

	conversations, err := s.List("alice", 10)
	require.NoError(t, err)
	require.Len(t, conversations, 3)
	assert.Equal(t, "new", conversations[0].ID)
	assert.Equal(t, "mid", conversations[1].ID)
	assert.Equal(t, "old", conversations[2].ID)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(cachedConversation("c1", "Quantum", time.Now())))
	require.NoError(t, s.Delete("c1"))

	_, err := s.Get("c1")
	assert.ErrorIs(t, err, ErrNotFound)

	results, err := s.Search("quantum", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRenameReindexes(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(cachedConversation("c1", "Quantum", time.Now().Add(-time.Hour))))
	require.NoError(t, s.Rename("c1", "Fusion"))

	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "Fusion", got.Title)

	results, err := s.Search("fusion", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ID)
}

func TestSearchMatchesMessageContent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(cachedConversation("c1", "Quantum", time.Now())))
	require.NoError(t, s.Put(cachedConversation("c2", "Fusion", time.Now())))

	// Message bodies are indexed too, not only titles.
	results, err := s.Search("findings", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.Search("fusion", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ID)
}

func TestSyncSummariesPreservesTranscripts(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Put(cachedConversation("c1", "Quantum", now.Add(-time.Hour))))

	require.NoError(t, s.SyncSummaries([]api.Conversation{
		{ID: "c1", UserID: "alice", Title: "Quantum computing", UpdatedAt: now},
		{ID: "c2", UserID: "alice", Title: "Fusion", UpdatedAt: now.Add(-time.Minute)},
	}))

	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "Quantum computing", got.Title)
	assert.Len(t, got.Messages, 2)

	got, err = s.Get("c2")
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
}

func TestListSummaries(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Put(cachedConversation("c1", "Quantum", now.Add(-time.Hour))))
	require.NoError(t, s.Put(cachedConversation("c2", "Fusion", now)))

	summaries, err := s.ListSummaries("alice", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "c2", summaries[0].ID)
	assert.Equal(t, "Fusion", summaries[0].Title)
	assert.WithinDuration(t, now, summaries[0].UpdatedAt, time.Millisecond)
}

func TestPutTranscript(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutTranscript(
		api.Conversation{ID: "c1", UserID: "alice", Title: "Quantum", UpdatedAt: time.Now()},
		[]api.Message{{ID: "m1", Role: api.RoleUser, Content: "hello"}},
	))
	got, err := s.Get("c1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestSearchEmptyQuery(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Search("", 10)
	require.NoError(t, err)
	assert.Nil(t, results)
}
