package session

import (
	"context"
	"fmt"
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
	mu sync.Mutex

	conversations map[string][]api.Message
	titles        map[string]string
	nextID        int

	getDelay      time.Duration
	researchDelay time.Duration
	createErr     error
	sendErr       error
	researchErr   error
	research      *api.PipelineResult
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		conversations: map[string][]api.Message{},
		titles:        map[string]string{},
		research: &api.PipelineResult{
			Topic: "quantum computing",
			Results: []api.ResearchItem{
				{Title: "Result one", URL: "https://example.com/1"},
				{Title: "Result two", URL: "https://example.com/2"},
			},
			KnowledgeGraph: &api.KnowledgeGraph{
				Nodes: []api.KnowledgeGraphNode{{Data: api.NodeData{ID: "n1", Label: "Qubit"}}},
				Edges: []api.KnowledgeGraphEdge{},
			},
			Count: 2,
		},
	}
}

func (f *fakeBackend) CreateConversation(ctx context.Context, userID, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("conv-%d", f.nextID)
	f.conversations[id] = nil
	f.titles[id] = title
	return id, nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, conversationID string, pageSize int) (*api.Conversation, []api.Message, error) {
	if f.getDelay > 0 {
		select {
		case <-time.After(f.getDelay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	messages, ok := f.conversations[conversationID]
	if !ok {
		return nil, nil, errors.New("conversation not found")
	}
	out := make([]api.Message, len(messages))
	copy(out, messages)
	return &api.Conversation{ID: conversationID, Title: f.titles[conversationID]}, out, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, conversationID string, role api.Role, content string, meta *api.MessageMeta) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	id := fmt.Sprintf("msg-%d", len(f.conversations[conversationID])+1)
	f.conversations[conversationID] = append(f.conversations[conversationID], api.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Meta:           meta,
	})
	return id, nil
}

func (f *fakeBackend) Research(ctx context.Context, topic, userID string, deep bool) (*api.PipelineResult, error) {
	f.mu.Lock()
	delay := f.researchDelay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.researchErr != nil {
		return nil, f.researchErr
	}
	return f.research, nil
}

func fastOptions() Options {
	return Options{
		Playback: PlaybackOptions{ChunkSize: 16, Interval: time.Millisecond},
		Logger:   zerolog.Nop(),
	}
}

func TestSubmitBlankIsRejected(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	assert.ErrorIs(t, s.Submit(""), ErrBlankSubmission)
	assert.ErrorIs(t, s.Submit("   \n  "), ErrBlankSubmission)
	assert.Empty(t, s.Transcript())
	assert.Empty(t, backend.conversations)
}

func TestSubmitCreatesConversationOnFirstMessage(t *testing.T) {
	backend := newFakeBackend()
	var locations []string
	s := New(backend, "user-1", Events{
		LocationChanged: func(id string) { locations = append(locations, id) },
	}, fastOptions())
	defer s.Teardown()

	require.NoError(t, s.Submit("quantum computing"))

	assert.Equal(t, StateReady, s.State())
	assert.NotEmpty(t, s.ConversationID())
	assert.Equal(t, []string{s.ConversationID()}, locations)
	assert.Equal(t, "quantum computing", s.Title())

	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, api.RoleUser, transcript[0].Role)
	assert.Equal(t, "quantum computing", transcript[0].Content)
	assert.Equal(t, api.RoleAssistant, transcript[1].Role)
	assert.Equal(t, `I found 2 research results on "quantum computing". Memory and knowledge graph have been updated with these insights.`, transcript[1].Content)
	assert.False(t, transcript[1].InProgress)
	require.NotNil(t, transcript[1].Meta)
	assert.Len(t, transcript[1].Meta.Results, 2)

	// Both messages were persisted.
	persisted := backend.conversations[s.ConversationID()]
	require.Len(t, persisted, 2)
	assert.Equal(t, api.RoleUser, persisted[0].Role)
	assert.Equal(t, api.RoleAssistant, persisted[1].Role)
}

func TestSubmitTruncatesLongTitles(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	long := "a very long research topic that keeps going well past the title cutoff point"
	require.NoError(t, s.Submit(long))
	assert.Len(t, []rune(s.Title()), 50)
	assert.Equal(t, long[:50], s.Title())
}

func TestSubmitPromotesGraph(t *testing.T) {
	backend := newFakeBackend()
	var promoted *api.KnowledgeGraph
	s := New(backend, "user-1", Events{
		GraphChanged: func(g *api.KnowledgeGraph) { promoted = g },
	}, fastOptions())
	defer s.Teardown()

	require.NoError(t, s.Submit("quantum computing"))
	require.NotNil(t, s.Graph())
	assert.Equal(t, "n1", s.Graph().Nodes[0].Data.ID)
	assert.Equal(t, s.Graph(), promoted)
}

func TestSubmitResearchFailureAppendsLocalError(t *testing.T) {
	backend := newFakeBackend()
	backend.researchErr = errors.New("pipeline exploded")
	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	assert.Error(t, s.Submit("doomed topic"))

	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, api.RoleAssistant, transcript[1].Role)
	assert.Contains(t, transcript[1].Content, "pipeline exploded")

	// The error message exists only locally.
	persisted := backend.conversations[s.ConversationID()]
	require.Len(t, persisted, 1)
	assert.Equal(t, api.RoleUser, persisted[0].Role)

	// The session recovers for the next submission.
	backend.researchErr = nil
	require.NoError(t, s.Submit("better topic"))
}

func TestSubmitWhileBusyIsRejected(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, "user-1", Events{}, Options{
		Playback: PlaybackOptions{ChunkSize: 2, Interval: 5 * time.Millisecond},
		Logger:   zerolog.Nop(),
	})
	defer s.Teardown()

	done := make(chan error, 1)
	go func() { done <- s.Submit("slow playback topic") }()

	// Wait for the submission to take the lock, then try again.
	require.Eventually(t, func() bool { return s.Submitting() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, s.Submit("second topic"), ErrBusy)

	require.NoError(t, <-done)
	assert.False(t, s.Submitting())
}

func TestInitializeLoadsTranscriptAndGraph(t *testing.T) {
	backend := newFakeBackend()
	seed := New(backend, "user-1", Events{}, fastOptions())
	require.NoError(t, seed.Submit("quantum computing"))
	id := seed.ConversationID()
	seed.Teardown()

	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	require.NoError(t, s.Initialize(id))
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, id, s.ConversationID())
	assert.Len(t, s.Transcript(), 2)
	// The latest message's graph was promoted.
	require.NotNil(t, s.Graph())
	assert.Equal(t, "n1", s.Graph().Nodes[0].Data.ID)
}

func TestInitializeUnknownConversation(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	assert.Error(t, s.Initialize("missing"))
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.ConversationID())
}

func TestInitializeNewerTargetWins(t *testing.T) {
	backend := newFakeBackend()
	seed := New(backend, "user-1", Events{}, fastOptions())
	require.NoError(t, seed.Submit("first"))
	firstID := seed.ConversationID()
	seed.Reset()
	require.NoError(t, seed.Submit("second"))
	secondID := seed.ConversationID()
	seed.Teardown()

	backend.getDelay = 50 * time.Millisecond
	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	errs := make(chan error, 1)
	go func() { errs <- s.Initialize(firstID) }()
	time.Sleep(10 * time.Millisecond)

	// The second call supersedes the in-flight one.
	require.NoError(t, s.Initialize(secondID))
	assert.ErrorIs(t, <-errs, ErrInitializationInFlight)
	assert.Equal(t, secondID, s.ConversationID())
}

func TestResetReturnsToIdle(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	require.NoError(t, s.Submit("quantum computing"))
	require.Equal(t, StateReady, s.State())

	s.Reset()
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.ConversationID())
	assert.Empty(t, s.Transcript())
	assert.Nil(t, s.Graph())

	// The next submission starts a fresh conversation.
	require.NoError(t, s.Submit("new topic"))
	assert.NotEmpty(t, s.ConversationID())
}

func TestSubmitThenInitializeRoundTrip(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	require.NoError(t, s.Submit("quantum computing"))
	id := s.ConversationID()
	before := s.Transcript()

	require.NoError(t, s.Initialize(id))
	after := s.Transcript()

	require.Len(t, after, len(before))
	for i := range after {
		assert.Equal(t, before[i].Role, after[i].Role)
		assert.Equal(t, before[i].Content, after[i].Content)
	}
}

type recordingCache struct {
	mu   sync.Mutex
	puts []struct {
		conversation api.Conversation
		messages     []api.Message
	}
}

func (c *recordingCache) PutTranscript(conversation api.Conversation, messages []api.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts = append(c.puts, struct {
		conversation api.Conversation
		messages     []api.Message
	}{conversation, messages})
	return nil
}

func TestSubmitMirrorsTranscript(t *testing.T) {
	backend := newFakeBackend()
	cache := &recordingCache{}
	opts := fastOptions()
	opts.Cache = cache
	s := New(backend, "user-1", Events{}, opts)
	defer s.Teardown()

	require.NoError(t, s.Submit("quantum computing"))

	cache.mu.Lock()
	defer cache.mu.Unlock()
	require.Len(t, cache.puts, 1)
	put := cache.puts[0]
	assert.Equal(t, s.ConversationID(), put.conversation.ID)
	assert.Equal(t, "user-1", put.conversation.UserID)
	require.Len(t, put.messages, 2)
	assert.Equal(t, api.RoleUser, put.messages[0].Role)
	assert.Equal(t, api.RoleAssistant, put.messages[1].Role)
}

func TestInitializeMirrorsTranscript(t *testing.T) {
	backend := newFakeBackend()
	cache := &recordingCache{}
	opts := fastOptions()
	s := New(backend, "user-1", Events{}, opts)
	require.NoError(t, s.Submit("quantum computing"))
	conversationID := s.ConversationID()
	s.Teardown()

	opts.Cache = cache
	s2 := New(backend, "user-1", Events{}, opts)
	defer s2.Teardown()
	require.NoError(t, s2.Initialize(conversationID))

	cache.mu.Lock()
	defer cache.mu.Unlock()
	require.Len(t, cache.puts, 1)
	assert.Equal(t, conversationID, cache.puts[0].conversation.ID)
	assert.Len(t, cache.puts[0].messages, 2)
}

func TestInitializeSupersedesInFlightSubmit(t *testing.T) {
	backend := newFakeBackend()

	// An established conversation to navigate to mid-turn.
	s0 := New(backend, "user-1", Events{}, fastOptions())
	require.NoError(t, s0.Submit("established topic"))
	target := s0.ConversationID()
	s0.Teardown()

	backend.mu.Lock()
	backend.researchDelay = 100 * time.Millisecond
	backend.mu.Unlock()

	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	done := make(chan error, 1)
	go func() { done <- s.Submit("slow topic") }()
	require.Eventually(t, s.Submitting, time.Second, time.Millisecond)

	// Navigating away while the research call is still running must not
	// let that turn's answer land in the newly opened transcript.
	require.NoError(t, s.Initialize(target))
	require.NoError(t, <-done)

	assert.Equal(t, target, s.ConversationID())
	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	for _, message := range transcript {
		assert.Equal(t, target, message.ConversationID)
		assert.NotContains(t, message.Content, "slow topic")
		assert.False(t, message.InProgress)
	}

	// The slow turn still persisted server-side, in its own conversation.
	backend.mu.Lock()
	var persisted int
	for id, messages := range backend.conversations {
		if id != target {
			persisted = len(messages)
		}
	}
	backend.mu.Unlock()
	assert.Equal(t, 2, persisted)
}

func TestResetSupersedesInFlightSubmit(t *testing.T) {
	backend := newFakeBackend()
	backend.mu.Lock()
	backend.researchDelay = 100 * time.Millisecond
	backend.mu.Unlock()

	s := New(backend, "user-1", Events{}, fastOptions())
	defer s.Teardown()

	done := make(chan error, 1)
	go func() { done <- s.Submit("slow topic") }()
	require.Eventually(t, s.Submitting, time.Second, time.Millisecond)

	s.Reset()
	require.NoError(t, <-done)

	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Transcript())
	assert.Nil(t, s.Graph())
}
