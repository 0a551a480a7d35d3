package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/siralabs/sira/conversations"
	"github.com/siralabs/sira/internal/api"
)

// View renders the model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	if m.graphMode {
		return m.alert.Render(m.renderGraphView())
	}

	var b strings.Builder
	b.WriteString(m.renderTitle())
	b.WriteString("\n")

	main := viewportStyle.Render(m.viewport.View())
	if m.sidebarVisible {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	}
	b.WriteString(main)
	b.WriteString("\n")

	switch {
	case m.submitting:
		b.WriteString(fmt.Sprintf("%s Researching...\n", m.spinner.View()))
	case m.initializing:
		b.WriteString(fmt.Sprintf("%s Loading conversation...\n", m.spinner.View()))
	case m.renaming:
		b.WriteString(renameStyle.Render(m.textarea.View()))
		b.WriteString("\n")
	default:
		b.WriteString(textAreaStyle.Render(m.textarea.View()))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return m.alert.Render(b.String())
}

func (m *Model) renderTitle() string {
	title := m.session.Title()
	if title == "" {
		title = "New research"
	}
	status := ""
	if m.session.Graph() != nil {
		status = " │ graph ready (Alt+G)"
	}
	return titleStyle.Width(m.width).Render(fmt.Sprintf(" SIRA │ %s%s ", title, status))
}

func (m *Model) renderGraphView() string {
	var b strings.Builder
	b.WriteString(m.renderTitle())
	b.WriteString("\n")
	b.WriteString(m.graph.View(m.width, m.height-headerHeight-1))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("+/- zoom  Esc close"))
	return b.String()
}

func (m *Model) renderMessages() string {
	transcript := m.session.Transcript()

	var b strings.Builder
	for i, message := range transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch message.Role {
		case api.RoleUser:
			rendered := m.renderer.Render(i, true, message.Content)
			b.WriteString(userMessageStyle.Render(rendered))

		case api.RoleAssistant:
			rendered := m.renderer.Render(i, !message.InProgress, message.Content)
			b.WriteString(assistantMessageStyle.Render(rendered))
			if message.InProgress {
				b.WriteString(spinnerStyle.Render("▋"))
				continue
			}
			b.WriteString(m.renderAttachments(message))
		}
	}
	return b.String()
}

// renderAttachments lists the research results attached to a completed
// assistant message.
func (m *Model) renderAttachments(message api.Message) string {
	if message.Meta == nil || len(message.Meta.Results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, result := range message.Meta.Results {
		b.WriteString("\n")
		b.WriteString(attachmentStyle.Render(fmt.Sprintf("[%d] %s", i+1, result.Title)))
		if result.URL != "" {
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("    " + result.URL))
		}
	}
	return b.String()
}

// sidebarConversations is the flattened sidebar order: grouped by recency,
// most recent first within each bucket.
func (m *Model) sidebarConversations() []api.Conversation {
	var out []api.Conversation
	for _, group := range conversations.GroupByRecency(m.list.Conversations(), time.Now()) {
		out = append(out, group.Conversations...)
	}
	return out
}

// truncateTitle fits a title into width cells, rune-safe, marking the cut
// with an ellipsis.
func truncateTitle(title string, width int) string {
	runes := []rune(title)
	if len(runes) <= width {
		return title
	}
	if width <= 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

func (m *Model) renderSidebar() string {
	var b strings.Builder
	index := 0
	groups := conversations.GroupByRecency(m.list.Conversations(), time.Now())
	if len(groups) == 0 {
		b.WriteString(helpStyle.Render("no conversations"))
	}
	for gi, group := range groups {
		if gi > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sidebarBucketStyle.Render(group.Label))
		b.WriteString("\n")
		for _, c := range group.Conversations {
			line := "  " + truncateTitle(c.Title, sidebarWidth-4)
			if index == m.sidebarIndex {
				b.WriteString(sidebarSelectedStyle.Render(line))
			} else {
				b.WriteString(sidebarItemStyle.Render(line))
			}
			b.WriteString("\n")
			index++
		}
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Alt+J/K move  Enter open\nAlt+R rename  Alt+D delete"))
	return sidebarStyle.Height(m.viewport.Height).Render(b.String())
}

// adjustTextareaHeight resizes the textarea based on content line count.
func (m *Model) adjustTextareaHeight() {
	lineCount := strings.Count(m.textarea.Value(), "\n") + 1
	newHeight := lineCount
	if newHeight < minTextareaHeight {
		newHeight = minTextareaHeight
	}
	if newHeight > maxTextareaHeight {
		newHeight = maxTextareaHeight
	}
	if m.textarea.Height() != newHeight {
		m.textarea.SetHeight(newHeight)
		m.recalculateLayout()
	}
}

// recalculateLayout adjusts viewport and textarea dimensions.
func (m *Model) recalculateLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	viewportHeight := m.height - headerHeight - m.textarea.Height() - inputBorderHeight
	if m.err != nil {
		viewportHeight--
	}
	if viewportHeight < minViewportHeight {
		viewportHeight = minViewportHeight
	}
	viewportWidth := m.width
	if m.sidebarVisible {
		viewportWidth -= sidebarWidth + 1
	}

	m.renderer.SetWidth(viewportWidth - assistantMessageStyle.GetHorizontalFrameSize())

	if !m.ready {
		m.viewport = viewport.New(viewportWidth, viewportHeight)
		m.ready = true
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
	} else {
		m.viewport.Width = viewportWidth
		m.viewport.Height = viewportHeight
		m.viewport.SetContent(m.renderMessages())
	}

	m.textarea.SetWidth(m.width - textAreaStyle.GetHorizontalPadding() - textAreaStyle.GetHorizontalBorderSize())
}
