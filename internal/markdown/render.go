// Package markdown renders message content for the terminal.
package markdown

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// Renderer handles markdown rendering with syntax highlighting. Finalized
// messages are cached by index so a transcript repaint does not re-render
// the whole history.
type Renderer struct {
	glamour *glamour.TermRenderer
	width   int
	cache   map[int]string
}

// NewRenderer creates a new markdown renderer.
func NewRenderer(width int) (*Renderer, error) {
	gr, err := glamour.NewTermRenderer(
		glamour.WithStyles(customStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		glamour: gr,
		width:   width,
		cache:   map[int]string{},
	}, nil
}

// Render markdown content. The index is used for caching; set finalized
// when the content will no longer change. Messages still playing back are
// rendered fresh each time.
func (r *Renderer) Render(messageIndex int, finalized bool, content string) string {
	if md, ok := r.cache[messageIndex]; ok {
		return md
	}
	rendered, err := r.glamour.Render(content)
	if err != nil {
		rendered = content
	}
	rendered = strings.Trim(rendered, "\n")
	if finalized {
		r.cache[messageIndex] = rendered
	}
	return rendered
}

// SetWidth updates the renderer width, recreating internals if needed.
// The cache is dropped since wrapped output depends on width.
func (r *Renderer) SetWidth(width int) error {
	if r.width == width {
		return nil
	}
	newRenderer, err := NewRenderer(width)
	if err != nil {
		return err
	}
	*r = *newRenderer
	return nil
}

// customStyle returns a modified glamour style for cleaner output.
func customStyle() ansi.StyleConfig {
	style := styles.DraculaStyleConfig
	zero := uint(0)
	style.Document.Margin = &zero
	style.CodeBlock.Margin = &zero
	style.CodeBlock.Indent = &zero
	style.CodeBlock.Prefix = ""
	style.CodeBlock.BlockPrefix = ""
	style.Paragraph.BlockPrefix = ""
	style.Paragraph.BlockSuffix = ""
	return style
}
