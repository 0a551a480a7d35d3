package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.dalton.dog/bubbleup"
	"golang.design/x/clipboard"

	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/kgraph"
	"github.com/siralabs/sira/session"
)

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Always update the alert model with every message
	outAlert, alertCmd := m.alert.Update(msg)
	m.alert = outAlert.(bubbleup.AlertModel)
	if alertCmd != nil {
		cmds = append(cmds, alertCmd)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if model, cmd, handled := m.handleKey(msg); handled {
			return model, tea.Batch(append(cmds, cmd)...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()

	case transcriptChangedMsg:
		wasAtBottom := m.viewport.AtBottom()
		m.viewport.SetContent(m.renderMessages())
		if wasAtBottom {
			m.viewport.GotoBottom()
		}
		return m, tea.Batch(cmds...)

	case graphChangedMsg:
		if m.graphMode {
			m.mountGraph()
		}
		return m, tea.Batch(cmds...)

	case locationChangedMsg:
		m.list.SetActive(msg.conversationID)
		return m, tea.Batch(cmds...)

	case noticeMsg:
		cmds = append(cmds, m.alert.NewAlertCmd(bubbleup.InfoKey, msg.text))
		return m, tea.Batch(cmds...)

	case listChangedMsg:
		m.clampSidebarIndex()
		return m, tea.Batch(cmds...)

	case realtimeHintMsg:
		m.list.OnExternalChange(m.ctx)
		cmds = append(cmds, m.watchRealtime())
		return m, tea.Batch(cmds...)

	case submitDoneMsg:
		m.submitting = false
		if msg.err != nil && !isExpected(msg.err) {
			m.err = msg.err
		}
		m.recalculateLayout()
		cmds = append(cmds, m.loadConversations())
		return m, tea.Batch(cmds...)

	case initDoneMsg:
		m.initializing = false
		if msg.err != nil && msg.err != session.ErrInitializationInFlight {
			m.err = msg.err
		}
		m.recalculateLayout()
		m.viewport.GotoBottom()
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update textarea unless a turn is in flight
	if !m.submitting && !m.initializing && !m.graphMode {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
		m.adjustTextareaHeight()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes key presses. The bool result reports whether the key
// was consumed.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	// Graph overlay has its own minimal keymap.
	if m.graphMode {
		switch msg.String() {
		case "+", "=":
			m.graph.ZoomIn()
		case "-":
			m.graph.ZoomOut()
		case "esc", "alt+g", "q":
			m.graphMode = false
			m.graph.Teardown()
			m.textarea.Focus()
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit, true
		}
		return m, nil, true
	}

	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit, true

	case "ctrl+j":
		if m.submitting || m.initializing || m.renaming {
			return m, nil, true
		}
		topic := strings.TrimSpace(m.textarea.Value())
		if topic == "" {
			return m, nil, true
		}
		m.history.Add(topic)
		m.historyNavigating = false
		m.textarea.Reset()
		m.submitting = true
		m.recalculateLayout()
		m.viewport.GotoBottom()
		return m, m.submit(topic), true

	case "enter":
		if m.renaming {
			title := strings.TrimSpace(m.textarea.Value())
			id := m.renamingID
			m.renaming = false
			m.renamingID = ""
			m.textarea.Reset()
			m.textarea.Placeholder = "Research a topic... (Ctrl+J to send, Alt+G graph, Alt+S sidebar, Ctrl+C to quit)"
			return m, m.commitRename(id, title), true
		}
		if m.sidebarVisible && m.sidebarIndex >= 0 && !m.submitting && !m.initializing {
			if selected, ok := m.selectedConversation(); ok {
				m.initializing = true
				m.sidebarVisible = false
				m.recalculateLayout()
				return m, m.openConversation(selected.ID), true
			}
		}

	case "esc":
		if m.renaming {
			m.renaming = false
			m.renamingID = ""
			m.list.CancelRename()
			m.textarea.Reset()
			return m, nil, true
		}
		if m.sidebarVisible {
			m.sidebarVisible = false
			m.recalculateLayout()
			return m, nil, true
		}

	case "alt+g":
		if m.session.Graph() == nil {
			return m, m.alert.NewAlertCmd(bubbleup.InfoKey, "No knowledge graph yet"), true
		}
		m.graphMode = true
		m.mountGraph()
		m.textarea.Blur()
		return m, nil, true

	case "alt+s":
		m.sidebarVisible = !m.sidebarVisible
		if m.sidebarVisible && m.sidebarIndex < 0 {
			m.sidebarIndex = 0
		}
		m.clampSidebarIndex()
		m.recalculateLayout()
		return m, nil, true

	case "alt+j":
		if m.sidebarVisible {
			m.sidebarIndex++
			m.clampSidebarIndex()
			return m, nil, true
		}

	case "alt+k":
		if m.sidebarVisible {
			m.sidebarIndex--
			m.clampSidebarIndex()
			return m, nil, true
		}

	case "alt+r":
		if m.sidebarVisible && !m.renaming {
			if selected, ok := m.selectedConversation(); ok {
				m.renaming = true
				m.renamingID = selected.ID
				m.list.StartRename(selected.ID)
				m.textarea.SetValue(selected.Title)
				m.textarea.Placeholder = "New title... (Enter to save, Esc to cancel)"
				m.textarea.Focus()
				return m, textarea.Blink, true
			}
		}

	case "alt+d":
		if m.sidebarVisible && !m.renaming && !m.submitting && !m.initializing {
			if selected, ok := m.selectedConversation(); ok {
				return m, m.deleteConversation(selected.ID), true
			}
		}

	case "ctrl+n":
		if !m.submitting && !m.initializing {
			m.session.Reset()
			m.sidebarVisible = false
			m.recalculateLayout()
			return m, nil, true
		}

	case "alt+w":
		if content, ok := lastAssistantContent(m.session.Transcript()); ok {
			clipboard.Write(clipboard.FmtText, []byte(content))
			return m, m.alert.NewAlertCmd(bubbleup.InfoKey, "Copied to clipboard!"), true
		}

	case "alt+p":
		if !m.submitting && !m.renaming {
			if entry, ok := m.history.Previous(m.textarea.Value()); ok {
				m.textarea.SetValue(entry)
				m.historyNavigating = true
				m.adjustTextareaHeight()
			}
			return m, nil, true
		}

	case "alt+n":
		if !m.submitting && !m.renaming {
			if entry, ok := m.history.Next(); ok {
				m.textarea.SetValue(entry)
				m.historyNavigating = true
				m.adjustTextareaHeight()
			}
			return m, nil, true
		}
	}

	// Reset history navigation on keys that modify input
	if m.historyNavigating {
		switch msg.Type {
		case tea.KeyRunes, tea.KeyBackspace, tea.KeyDelete:
			m.history.Reset()
			m.historyNavigating = false
		}
	}
	return m, nil, false
}

// mountGraph sanitizes the promoted graph and mounts it on the renderer,
// surfacing truncation notices as alerts.
func (m *Model) mountGraph() {
	sanitized, err := kgraph.Sanitize(m.session.Graph(), kgraph.Limits{
		MaxNodes: m.config.Graph.MaxNodes,
		MaxEdges: m.config.Graph.MaxEdges,
	})
	if err != nil {
		m.graphMode = false
		m.err = err
		return
	}
	m.graph.Mount(sanitized)
}

// selectedConversation resolves the sidebar cursor to a conversation.
func (m *Model) selectedConversation() (api.Conversation, bool) {
	items := m.list.Conversations()
	if m.sidebarIndex < 0 || m.sidebarIndex >= len(items) {
		return api.Conversation{}, false
	}
	return m.sidebarConversations()[m.sidebarIndex], true
}

func (m *Model) clampSidebarIndex() {
	n := len(m.list.Conversations())
	if m.sidebarIndex >= n {
		m.sidebarIndex = n - 1
	}
	if m.sidebarIndex < 0 && n > 0 && m.sidebarVisible {
		m.sidebarIndex = 0
	}
}

// isExpected filters sentinel errors that do not deserve the error banner.
func isExpected(err error) bool {
	return err == session.ErrBlankSubmission || err == session.ErrBusy
}

func lastAssistantContent(messages []api.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == api.RoleAssistant && !messages[i].InProgress {
			return messages[i].Content, true
		}
	}
	return "", false
}
