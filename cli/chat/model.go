// Package chat implements the interactive research surface: transcript,
// conversation sidebar, graph overlay, all driven by the session engine.
package chat

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.dalton.dog/bubbleup"

	"github.com/siralabs/sira/conversations"
	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/internal/auth"
	"github.com/siralabs/sira/internal/configuration"
	"github.com/siralabs/sira/internal/debug"
	"github.com/siralabs/sira/internal/history"
	"github.com/siralabs/sira/internal/markdown"
	"github.com/siralabs/sira/internal/realtime"
	"github.com/siralabs/sira/kgraph"
	"github.com/siralabs/sira/session"
	"github.com/siralabs/sira/store"
)

var log = debug.GetLogger()

// Message types for Bubble Tea.
type (
	transcriptChangedMsg struct{}
	graphChangedMsg      struct{}
	locationChangedMsg   struct{ conversationID string }
	noticeMsg            struct{ text string }
	listChangedMsg       struct{}
	realtimeHintMsg      struct{}
	submitDoneMsg        struct{ err error }
	initDoneMsg          struct{ err error }
)

// Model represents the Bubble Tea model for the research surface.
type Model struct {
	// Core dependencies
	ctx     context.Context
	config  *configuration.Config
	session *session.Session
	list    *conversations.Store
	channel *realtime.Channel

	// UI components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *markdown.Renderer
	graph    *kgraph.Renderer
	alert    bubbleup.AlertModel

	// UI state
	width          int
	height         int
	ready          bool
	quitting       bool
	submitting     bool
	initializing   bool
	sidebarVisible bool
	sidebarIndex   int
	graphMode      bool
	renaming       bool
	renamingID     string
	err            error

	// Program reference for sending messages from goroutines
	program   *tea.Program
	programMu sync.Mutex

	// Input history
	history           *history.History
	historyNavigating bool

	unsubscribeAuth func()
}

// New creates the chat surface model. The session and conversation list
// report changes through the program reference, so SetProgram must be
// called before the program runs.
func New(
	ctx context.Context,
	config *configuration.Config,
	client *api.Client,
	channel *realtime.Channel,
	identity auth.Provider,
	cache *store.Store,
) (*Model, error) {
	current, _ := identity.Current()
	ta := textarea.New()
	ta.Placeholder = "Research a topic... (Ctrl+J to send, Alt+G graph, Alt+S sidebar, Ctrl+C to quit)"
	ta.Focus()
	ta.CharLimit = 0
	ta.SetWidth(defaultTextareaWidth)
	ta.SetHeight(minTextareaHeight)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(true)
	ta.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	renderer, err := markdown.NewRenderer(defaultTextareaWidth)
	if err != nil {
		return nil, err
	}

	var sessionCache session.Cache
	var listCache conversations.Cache
	if cache != nil {
		sessionCache = cache
		listCache = cache
	}

	m := &Model{
		ctx:          ctx,
		config:       config,
		channel:      channel,
		textarea:     ta,
		spinner:      sp,
		renderer:     renderer,
		graph:        kgraph.NewRenderer(log),
		alert:        *bubbleup.NewAlertModel(25, true, 1),
		history:      history.NewHistory(),
		sidebarIndex: -1,
	}

	m.session = session.New(client, current.UserID, session.Events{
		TranscriptChanged: func() { m.send(transcriptChangedMsg{}) },
		GraphChanged:      func(*api.KnowledgeGraph) { m.send(graphChangedMsg{}) },
		LocationChanged:   func(id string) { m.send(locationChangedMsg{conversationID: id}) },
		Notice:            func(text string) { m.send(noticeMsg{text: text}) },
	}, session.Options{
		ResearchTimeout: config.API.ResearchTimeout(),
		PageSize:        config.Chat.PageSize,
		DeepResearch:    config.Chat.DeepResearch,
		Playback: session.PlaybackOptions{
			ChunkSize: config.Chat.StreamChunkSize,
			Interval:  config.Chat.StreamInterval(),
		},
		Cache:  sessionCache,
		Logger: log,
	})

	m.list = conversations.NewStore(client, current.UserID, conversations.Options{
		Debounce: config.Realtime.RefreshDebounce(),
		Logger:   log,
		OnChange: func() { m.send(listChangedMsg{}) },
		OnNavigateAway: func() {
			m.session.Reset()
		},
		Cache: listCache,
	})

	// An identity swap invalidates everything derived from the old user.
	m.unsubscribeAuth = identity.Subscribe(func(auth.Identity, bool) {
		m.session.Reset()
		m.send(realtimeHintMsg{})
	})

	return m, nil
}

// SetProgram sets the tea.Program reference for async message sending.
func (m *Model) SetProgram(p *tea.Program) {
	m.programMu.Lock()
	defer m.programMu.Unlock()
	m.program = p
}

func (m *Model) getProgram() *tea.Program {
	m.programMu.Lock()
	defer m.programMu.Unlock()
	return m.program
}

// send forwards a message to the program if it is running yet.
func (m *Model) send(msg tea.Msg) {
	if p := m.getProgram(); p != nil {
		p.Send(msg)
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.alert.Init(),
		m.loadConversations(),
		m.watchRealtime(),
	)
}

// Teardown releases everything the surface holds.
func (m *Model) Teardown() {
	if m.unsubscribeAuth != nil {
		m.unsubscribeAuth()
	}
	m.session.Teardown()
	m.list.Close()
	m.graph.Teardown()
	if m.channel != nil {
		m.channel.Close()
	}
}
