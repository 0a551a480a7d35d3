package chat

import (
	tea "github.com/charmbracelet/bubbletea"
)

// loadConversations refreshes the sidebar list.
func (m *Model) loadConversations() tea.Cmd {
	return func() tea.Msg {
		if err := m.list.Load(m.ctx); err != nil {
			log.Warn().Err(err).Msg("loading conversation list")
		}
		return listChangedMsg{}
	}
}

// watchRealtime forwards change hints from the websocket channel. Each
// completed wait re-arms itself.
func (m *Model) watchRealtime() tea.Cmd {
	if m.channel == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case _, ok := <-m.channel.Events():
			if !ok {
				return nil
			}
			return realtimeHintMsg{}
		}
	}
}

// submit runs one research turn in the background. The session reports
// transcript and graph changes through the program reference; the returned
// message only closes the submission out.
func (m *Model) submit(topic string) tea.Cmd {
	p := m.getProgram()
	go func() {
		err := m.session.Submit(topic)
		if p != nil {
			p.Send(submitDoneMsg{err: err})
		}
	}()
	return m.spinner.Tick
}

// openConversation switches the transcript to a sidebar selection.
func (m *Model) openConversation(conversationID string) tea.Cmd {
	p := m.getProgram()
	go func() {
		err := m.session.Initialize(conversationID)
		if p != nil {
			p.Send(initDoneMsg{err: err})
		}
	}()
	return m.spinner.Tick
}

// commitRename persists the title typed into the rename prompt.
func (m *Model) commitRename(conversationID, title string) tea.Cmd {
	return func() tea.Msg {
		if err := m.list.CommitRename(m.ctx, conversationID, title); err != nil {
			return noticeMsg{text: "rename failed: " + err.Error()}
		}
		return listChangedMsg{}
	}
}

// deleteConversation removes the sidebar selection.
func (m *Model) deleteConversation(conversationID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.list.Delete(m.ctx, conversationID); err != nil {
			return noticeMsg{text: "delete failed: " + err.Error()}
		}
		return listChangedMsg{}
	}
}
