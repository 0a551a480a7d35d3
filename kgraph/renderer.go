package kgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

const (
	zoomInFactor  = 1.25
	zoomOutFactor = 0.8
	minScale      = 0.25
	maxScale      = 4.0
)

var (
	nodeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	conceptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	edgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Renderer draws a sanitized graph onto a character canvas. It holds at
// most one mounted graph at a time; mounting a new graph releases the
// previous one first.
type Renderer struct {
	log zerolog.Logger

	graph     *Sanitized
	positions map[string]Point
	scale     float64
	renderErr error
}

// NewRenderer with nothing mounted.
func NewRenderer(log zerolog.Logger) *Renderer {
	return &Renderer{log: log, scale: 1.0}
}

// Mount replaces the displayed graph. The previous graph, if any, is torn
// down before the new layout is computed. A panic during layout is
// captured as a render error instead of crashing the client.
func (r *Renderer) Mount(graph *Sanitized) {
	r.Teardown()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Msg("graph layout panicked")
			r.graph = nil
			r.positions = nil
			r.renderErr = fmt.Errorf("graph failed to render: %v", rec)
		}
	}()
	r.graph = graph
	r.positions = Layout(graph)
}

// Teardown releases the mounted graph and resets zoom.
func (r *Renderer) Teardown() {
	r.graph = nil
	r.positions = nil
	r.renderErr = nil
	r.scale = 1.0
}

// Mounted reports whether a graph is currently displayed.
func (r *Renderer) Mounted() bool {
	return r.graph != nil
}

// ZoomIn by a fixed factor, clamped.
func (r *Renderer) ZoomIn() {
	r.scale *= zoomInFactor
	if r.scale > maxScale {
		r.scale = maxScale
	}
}

// ZoomOut by a fixed factor, clamped.
func (r *Renderer) ZoomOut() {
	r.scale *= zoomOutFactor
	if r.scale < minScale {
		r.scale = minScale
	}
}

// View renders the mounted graph into a width x height cell block.
func (r *Renderer) View(width, height int) string {
	if r.renderErr != nil {
		return errorStyle.Render(r.renderErr.Error())
	}
	if r.graph == nil {
		return edgeStyle.Render("no graph to display")
	}
	if width < 10 || height < 4 {
		return ""
	}
	if len(r.graph.Nodes) == 0 {
		return edgeStyle.Render("graph is empty")
	}

	canvasHeight := height - len(r.graph.Notices) - 1
	if canvasHeight < 4 {
		canvasHeight = 4
	}
	canvas := newCanvas(width, canvasHeight)
	for _, e := range r.graph.Edges {
		from, okf := r.positions[e.Data.Source]
		to, okt := r.positions[e.Data.Target]
		if !okf || !okt {
			continue
		}
		x0, y0 := r.project(from, width, canvasHeight)
		x1, y1 := r.project(to, width, canvasHeight)
		canvas.line(x0, y0, x1, y1)
	}
	for _, n := range r.graph.Nodes {
		p, ok := r.positions[n.Data.ID]
		if !ok {
			continue
		}
		x, y := r.project(p, width, canvasHeight)
		label := n.Data.Label
		if label == "" {
			label = n.Data.ID
		}
		canvas.label(x, y, label, n.Data.Type)
	}

	var b strings.Builder
	b.WriteString(canvas.render())
	for _, notice := range r.graph.Notices {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(notice))
	}
	b.WriteString("\n")
	b.WriteString(edgeStyle.Render(fmt.Sprintf(
		"%d nodes, %d edges  zoom %.0f%%", len(r.graph.Nodes), len(r.graph.Edges), r.scale*100)))
	return b.String()
}

// project maps a unit-square point to canvas coordinates, applying zoom
// around the center.
func (r *Renderer) project(p Point, width, height int) (int, int) {
	x := 0.5 + (p.X-0.5)*r.scale
	y := 0.5 + (p.Y-0.5)*r.scale
	cx := int(x * float64(width-1))
	cy := int(y * float64(height-1))
	if cx < 0 {
		cx = 0
	}
	if cx >= width {
		cx = width - 1
	}
	if cy < 0 {
		cy = 0
	}
	if cy >= height {
		cy = height - 1
	}
	return cx, cy
}

// cell is one canvas position, carrying the style to apply at render time.
type cell struct {
	ch    rune
	style *lipgloss.Style
}

type canvas struct {
	width  int
	height int
	cells  []cell
}

func newCanvas(width, height int) *canvas {
	cells := make([]cell, width*height)
	for i := range cells {
		cells[i] = cell{ch: ' '}
	}
	return &canvas{width: width, height: height, cells: cells}
}

func (c *canvas) set(x, y int, ch rune, style *lipgloss.Style) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.cells[y*c.width+x] = cell{ch: ch, style: style}
}

// line draws a Bresenham segment with edge characters.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	for {
		if c.at(x, y) == ' ' {
			c.set(x, y, edgeRune(dx, dy), &edgeStyle)
		}
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func (c *canvas) at(x, y int) rune {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return ' '
	}
	return c.cells[y*c.width+x].ch
}

// label writes a node marker and as much of its label as fits.
func (c *canvas) label(x, y int, label, nodeType string) {
	style := &nodeStyle
	marker := '●'
	if nodeType == "concept" {
		style = &conceptStyle
		marker = '◆'
	}
	c.set(x, y, marker, style)
	const maxLabel = 14
	runes := []rune(label)
	if len(runes) > maxLabel {
		runes = append(runes[:maxLabel-1], '…')
	}
	for i, ch := range runes {
		px := x + 1 + i
		if px >= c.width {
			break
		}
		// Labels may cover edge strokes but never another node's label.
		if existing := c.at(px, y); existing != ' ' && !isEdgeRune(existing) {
			break
		}
		c.set(px, y, ch, style)
	}
}

func (c *canvas) render() string {
	lines := make([]string, c.height)
	for y := 0; y < c.height; y++ {
		var b strings.Builder
		run := make([]rune, 0, c.width)
		var runStyle *lipgloss.Style
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runStyle != nil {
				b.WriteString(runStyle.Render(string(run)))
			} else {
				b.WriteString(string(run))
			}
			run = run[:0]
		}
		for x := 0; x < c.width; x++ {
			cl := c.cells[y*c.width+x]
			if cl.style != runStyle {
				flush()
				runStyle = cl.style
			}
			run = append(run, cl.ch)
		}
		flush()
		lines[y] = strings.TrimRight(b.String(), " ")
	}
	return strings.Join(lines, "\n")
}

func isEdgeRune(ch rune) bool {
	return ch == '─' || ch == '│' || ch == '·'
}

func edgeRune(dx, dy int) rune {
	switch {
	case dy == 0:
		return '─'
	case dx == 0:
		return '│'
	default:
		return '·'
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SortedNodeTypes lists the distinct node types present, for a legend.
func SortedNodeTypes(g *Sanitized) []string {
	seen := map[string]struct{}{}
	for _, n := range g.Nodes {
		if n.Data.Type != "" {
			seen[n.Data.Type] = struct{}{}
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
