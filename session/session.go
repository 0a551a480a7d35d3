// Package session owns the state of the open conversation: its transcript,
// the knowledge graph promoted from the latest research turn, and the
// submission pipeline that turns a typed topic into persisted messages.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/siralabs/sira/internal/api"
)

// State of a session.
type State int

const (
	// StateIdle: no conversation is open.
	StateIdle State = iota
	// StateInitializing: a transcript is being fetched.
	StateInitializing
	// StateReady: the transcript is loaded and submissions are accepted.
	StateReady
)

// Sentinel errors callers branch on.
var (
	// ErrBlankSubmission: the submitted topic was empty after trimming.
	ErrBlankSubmission = errors.New("blank submission")
	// ErrBusy: a submission or playback is already in flight.
	ErrBusy = errors.New("session is busy")
	// ErrNotReady: the session has no open conversation.
	ErrNotReady = errors.New("session is not ready")
	// ErrInitializationInFlight: a newer Initialize superseded this one.
	ErrInitializationInFlight = errors.New("initialization superseded")
)

const titleMaxLength = 50

const answerTemplate = "I found %d research results on %q. Memory and knowledge graph have been updated with these insights."

// Backend is the slice of the API the session depends on.
type Backend interface {
	CreateConversation(ctx context.Context, userID, title string) (string, error)
	GetConversation(ctx context.Context, conversationID string, pageSize int) (*api.Conversation, []api.Message, error)
	SendMessage(ctx context.Context, conversationID string, role api.Role, content string, meta *api.MessageMeta) (string, error)
	Research(ctx context.Context, topic, userID string, deep bool) (*api.PipelineResult, error)
}

// Cache mirrors loaded and written transcripts for offline listing and
// search. Mirror failures are logged, never surfaced.
type Cache interface {
	PutTranscript(conversation api.Conversation, messages []api.Message) error
}

// Events are callbacks fired as session state changes. All fire outside
// the session lock. Nil callbacks are skipped.
type Events struct {
	// TranscriptChanged fires whenever the message list mutates.
	TranscriptChanged func()
	// GraphChanged fires when a new knowledge graph is promoted.
	GraphChanged func(graph *api.KnowledgeGraph)
	// LocationChanged fires when the open conversation id changes. Empty
	// means no conversation is open.
	LocationChanged func(conversationID string)
	// Notice carries user-facing informational messages.
	Notice func(text string)
}

// Options configure a session.
type Options struct {
	// ResearchTimeout bounds one research turn. Zero means 3 minutes.
	ResearchTimeout time.Duration
	// PageSize for transcript pagination. Zero means 50.
	PageSize int
	// DeepResearch toggles the pipeline's deep mode.
	DeepResearch bool
	// Playback controls the simulated streaming of assistant answers.
	Playback PlaybackOptions
	// Cache receives transcript mirrors. Nil disables mirroring.
	Cache  Cache
	Logger zerolog.Logger
}

// Session is the engine behind the chat surface. All exported methods are
// safe for concurrent use; the transcript is owned exclusively by the
// session and only copies escape.
type Session struct {
	backend Backend
	userID  string
	events  Events
	opts    Options
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          State
	conversationID string
	title          string
	transcript     []api.Message
	graph          *api.KnowledgeGraph
	submitting     bool
	requestedID    string
	initGeneration int
}

// New session for a user. The session starts idle.
func New(backend Backend, userID string, events Events, opts Options) *Session {
	if opts.ResearchTimeout <= 0 {
		opts.ResearchTimeout = 3 * time.Minute
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	opts.Playback = opts.Playback.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		backend: backend,
		userID:  userID,
		events:  events,
		opts:    opts,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// State of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConversationID of the open conversation, empty when idle.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Title of the open conversation.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Submitting reports whether a submission or its playback is in flight.
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Transcript returns a copy of the message list.
func (s *Session) Transcript() []api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Graph returns the currently promoted knowledge graph, nil when none.
func (s *Session) Graph() *api.KnowledgeGraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Initialize opens a conversation, replacing whatever was open. When an
// initialization is already in flight the new target wins: the in-flight
// load's results are discarded and this call proceeds. A stale call that
// has itself been superseded returns ErrInitializationInFlight.
func (s *Session) Initialize(conversationID string) error {
	s.mu.Lock()
	s.initGeneration++
	generation := s.initGeneration
	s.requestedID = conversationID
	s.state = StateInitializing
	s.transcript = nil
	s.graph = nil
	s.conversationID = ""
	s.title = ""
	s.mu.Unlock()
	s.fireTranscriptChanged()
	s.fireGraphChanged(nil)

	conversation, messages, err := s.backend.GetConversation(s.ctx, conversationID, s.opts.PageSize)

	s.mu.Lock()
	if generation != s.initGeneration || s.requestedID != conversationID {
		s.mu.Unlock()
		return ErrInitializationInFlight
	}
	if err != nil {
		s.state = StateIdle
		s.requestedID = ""
		s.mu.Unlock()
		s.fireLocationChanged("")
		return errors.Wrap(err, "loading conversation")
	}
	s.state = StateReady
	s.conversationID = conversationID
	s.title = conversation.Title
	s.transcript = messages
	s.graph = latestGraph(messages)
	graph := s.graph
	s.mu.Unlock()

	s.fireLocationChanged(conversationID)
	s.fireTranscriptChanged()
	s.fireGraphChanged(graph)
	s.mirror(*conversation, messages)
	return nil
}

// Reset closes the open conversation and returns the session to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	s.initGeneration++
	s.state = StateIdle
	s.conversationID = ""
	s.title = ""
	s.requestedID = ""
	s.transcript = nil
	s.graph = nil
	s.mu.Unlock()
	s.fireLocationChanged("")
	s.fireTranscriptChanged()
	s.fireGraphChanged(nil)
}

// Submit runs one research turn: append the topic as a user message, run
// the pipeline, persist and play back the assistant's answer. Blocks until
// playback completes. The first submission of an idle session creates the
// conversation.
func (s *Session) Submit(topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ErrBlankSubmission
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state == StateInitializing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.submitting = true
	conversationID := s.conversationID
	// The turn belongs to the conversation open right now. Initialize and
	// Reset bump the generation; every local write below is discarded once
	// that happens, so a slow turn cannot leak into a conversation opened
	// while it was in flight.
	generation := s.initGeneration
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	// Optimistic user message, replaced by nothing: the local id never
	// needs reconciling because the transcript is only ever reloaded
	// whole.
	userMessage := api.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           api.RoleUser,
		Content:        topic,
		CreatedAt:      time.Now(),
	}
	s.appendTurnMessage(generation, userMessage)

	if conversationID == "" {
		id, err := s.createConversation(generation, topic)
		if err != nil {
			s.appendLocalError(generation, errors.Wrap(err, "creating conversation"))
			return err
		}
		conversationID = id
	}

	if _, err := s.backend.SendMessage(s.ctx, conversationID, api.RoleUser, topic, nil); err != nil {
		err = errors.Wrap(err, "persisting message")
		s.appendLocalError(generation, err)
		return err
	}

	researchCtx, cancel := context.WithTimeout(s.ctx, s.opts.ResearchTimeout)
	result, err := s.backend.Research(researchCtx, topic, s.userID, s.opts.DeepResearch)
	cancel()
	if err != nil {
		err = errors.Wrap(err, "running research")
		s.appendLocalError(generation, err)
		return err
	}

	answer := fmt.Sprintf(answerTemplate, len(result.Results), result.Topic)
	meta := &api.MessageMeta{
		KnowledgeGraph: result.KnowledgeGraph,
		Results:        result.Results,
	}
	messageID, err := s.backend.SendMessage(s.ctx, conversationID, api.RoleAssistant, answer, meta)
	if err != nil {
		err = errors.Wrap(err, "persisting answer")
		s.appendLocalError(generation, err)
		return err
	}

	if result.KnowledgeGraph != nil {
		s.mu.Lock()
		promote := generation == s.initGeneration
		if promote {
			s.graph = result.KnowledgeGraph
		}
		s.mu.Unlock()
		if promote {
			s.fireGraphChanged(result.KnowledgeGraph)
		}
	} else if s.turnActive(generation) {
		s.notice("research returned no knowledge graph")
	}

	assistantMessage := api.Message{
		ID:             messageID,
		ConversationID: conversationID,
		Role:           api.RoleAssistant,
		Content:        answer,
		Meta:           meta,
		CreatedAt:      time.Now(),
	}
	s.playback(generation, assistantMessage)

	s.mu.Lock()
	if generation != s.initGeneration {
		s.mu.Unlock()
		return nil
	}
	conversation := api.Conversation{
		ID:        conversationID,
		UserID:    s.userID,
		Title:     s.title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.mu.Unlock()
	s.mirror(conversation, s.Transcript())
	return nil
}

// turnActive reports whether the turn started at generation still owns the
// open conversation.
func (s *Session) turnActive(generation int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return generation == s.initGeneration
}

// mirror writes a transcript to the offline cache when one is configured.
func (s *Session) mirror(conversation api.Conversation, messages []api.Message) {
	if s.opts.Cache == nil {
		return
	}
	if conversation.UserID == "" {
		conversation.UserID = s.userID
	}
	if err := s.opts.Cache.PutTranscript(conversation, messages); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conversation.ID).Msg("mirroring transcript")
	}
}

// createConversation makes the conversation for a first submission, titled
// with a prefix of the topic, and rebinds the optimistic user message. When
// the turn has been superseded the local state is left alone; the created
// conversation still exists server-side and shows up on the next list load.
func (s *Session) createConversation(generation int, topic string) (string, error) {
	title := topic
	if runes := []rune(title); len(runes) > titleMaxLength {
		title = string(runes[:titleMaxLength])
	}
	id, err := s.backend.CreateConversation(s.ctx, s.userID, title)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	if generation != s.initGeneration {
		s.mu.Unlock()
		return id, nil
	}
	s.state = StateReady
	s.conversationID = id
	s.title = title
	for i := range s.transcript {
		if s.transcript[i].ConversationID == "" {
			s.transcript[i].ConversationID = id
		}
	}
	s.mu.Unlock()
	s.fireLocationChanged(id)
	return id, nil
}

// appendLocalError adds an assistant-styled error message that exists only
// locally; it is never persisted to the backend.
func (s *Session) appendLocalError(generation int, err error) {
	s.log.Warn().Err(err).Msg("submission failed")
	s.appendTurnMessage(generation, api.Message{
		ID:        uuid.New().String(),
		Role:      api.RoleAssistant,
		Content:   "Something went wrong: " + err.Error(),
		CreatedAt: time.Now(),
	})
}

// appendTurnMessage appends a message owned by the turn started at
// generation; a superseded turn's message is dropped.
func (s *Session) appendTurnMessage(generation int, message api.Message) bool {
	s.mu.Lock()
	if generation != s.initGeneration {
		s.mu.Unlock()
		return false
	}
	s.transcript = append(s.transcript, message)
	s.mu.Unlock()
	s.fireTranscriptChanged()
	return true
}

// Teardown cancels all in-flight work. The session must not be used after.
func (s *Session) Teardown() {
	s.cancel()
}

func (s *Session) fireTranscriptChanged() {
	if s.events.TranscriptChanged != nil {
		s.events.TranscriptChanged()
	}
}

func (s *Session) fireGraphChanged(graph *api.KnowledgeGraph) {
	if s.events.GraphChanged != nil {
		s.events.GraphChanged(graph)
	}
}

func (s *Session) fireLocationChanged(conversationID string) {
	if s.events.LocationChanged != nil {
		s.events.LocationChanged(conversationID)
	}
}

func (s *Session) notice(text string) {
	if s.events.Notice != nil {
		s.events.Notice(text)
	}
}

// latestGraph scans a transcript backwards for the most recent assistant
// message carrying a knowledge graph.
func latestGraph(messages []api.Message) *api.KnowledgeGraph {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != api.RoleAssistant {
			continue
		}
		if messages[i].Meta != nil && messages[i].Meta.KnowledgeGraph != nil {
			return messages[i].Meta.KnowledgeGraph
		}
	}
	return nil
}
