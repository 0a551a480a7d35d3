package chat

import "github.com/charmbracelet/lipgloss"

// Layout constants
const (
	minTextareaHeight    = 3
	maxTextareaHeight    = 10
	defaultTextareaWidth = 80
	minViewportHeight    = 1
	sidebarWidth         = 32

	inputBorderHeight = 2
	headerHeight      = 2
)

var (
	// Color palette
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#06B6D4") // Cyan
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	textColor      = lipgloss.Color("#F9FAFB") // Light gray
	messageColor   = lipgloss.Color("#E5E7EB")
	borderColor    = lipgloss.Color("#4B5563")

	// Title bar style
	titleStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(textColor).
			Bold(true)

	// User message styles
	userMessageStyle = lipgloss.NewStyle().
				Foreground(textColor).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1).
				MarginLeft(10)

	// Assistant message styles
	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(messageColor).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(secondaryColor).
				Padding(0, 1).
				MarginRight(10)

	messageErrorStyle = lipgloss.NewStyle().
				Foreground(errorColor).
				Italic(true).
				PaddingLeft(2)

	attachmentStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			PaddingLeft(2)

	// Sidebar styles
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(borderColor).
			Width(sidebarWidth)

	sidebarBucketStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Bold(true)

	sidebarItemStyle = lipgloss.NewStyle().
				Foreground(messageColor)

	sidebarSelectedStyle = lipgloss.NewStyle().
				Foreground(textColor).
				Background(primaryColor)

	// Input area styles
	textAreaStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			PaddingLeft(1)

	renameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			PaddingLeft(1)

	// Spinner style
	spinnerStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	// Help text style
	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	// Viewport border
	viewportStyle = lipgloss.NewStyle().Margin(0).Padding(0)
)
