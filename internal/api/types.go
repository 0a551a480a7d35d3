package api

import (
	"encoding/json"
	"time"
)

// Role of a message author. The backend speaks "agent" on the wire for
// assistant messages; the translation happens at this boundary and nowhere
// else.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	wireRoleAgent = "agent"
)

// Conversation is a named, ordered thread of messages owned by one user.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActivityTime is the timestamp conversations are bucketed and sorted by:
// the most recent activity, falling back to creation when the backend did
// not report an update time.
func (c Conversation) ActivityTime() time.Time {
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// Message belongs to exactly one conversation.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Role           Role         `json:"role"`
	Content        string       `json:"content"`
	Meta           *MessageMeta `json:"meta,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`

	// InProgress marks a message whose content is still being played back.
	// Attachments are suppressed from rendering until it clears. Local only.
	InProgress bool `json:"-"`
}

// MessageMeta carries the research artifacts attached to an assistant turn.
type MessageMeta struct {
	KnowledgeGraph *KnowledgeGraph `json:"kg,omitempty"`
	Results        []ResearchItem  `json:"results,omitempty"`
}

// ResearchItem is a citation. Immutable once attached to a message.
type ResearchItem struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Summary     string  `json:"summary"`
	Credibility float64 `json:"credibility"`
	Provider    string  `json:"provider"`
}

// KnowledgeGraphNode in the cytoscape-style envelope the backend emits.
type KnowledgeGraphNode struct {
	Data NodeData `json:"data"`
}

// NodeData identifies and labels a graph node.
type NodeData struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// KnowledgeGraphEdge connects two node ids.
type KnowledgeGraphEdge struct {
	Data EdgeData `json:"data"`
}

// EdgeData holds an edge's endpoints and label.
type EdgeData struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// GraphCounts are the sizes the backend claims; not trusted for rendering.
type GraphCounts struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// KnowledgeGraph is an untrusted graph payload. A nil node or edge slice
// after decoding means the collection was absent or not list-shaped.
type KnowledgeGraph struct {
	Nodes  []KnowledgeGraphNode `json:"nodes"`
	Edges  []KnowledgeGraphEdge `json:"edges"`
	Counts GraphCounts          `json:"counts"`
}

// UnmarshalJSON decodes tolerantly: a malformed node or edge collection is
// left nil rather than failing the whole payload, so the sanitizer can
// report it instead of the decoder.
func (g *KnowledgeGraph) UnmarshalJSON(data []byte) error {
	var wire struct {
		Nodes  json.RawMessage `json:"nodes"`
		Edges  json.RawMessage `json:"edges"`
		Counts GraphCounts     `json:"counts"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	g.Counts = wire.Counts
	g.Nodes = nil
	g.Edges = nil
	if len(wire.Nodes) > 0 {
		var nodes []KnowledgeGraphNode
		if err := json.Unmarshal(wire.Nodes, &nodes); err == nil {
			g.Nodes = nodes
		}
	}
	if len(wire.Edges) > 0 {
		var edges []KnowledgeGraphEdge
		if err := json.Unmarshal(wire.Edges, &edges); err == nil {
			g.Edges = edges
		}
	}
	return nil
}

// PipelineResult is the outcome of one research turn.
type PipelineResult struct {
	Topic          string          `json:"topic"`
	Results        []ResearchItem  `json:"results"`
	KnowledgeGraph *KnowledgeGraph `json:"knowledge_graph"`
	Count          int             `json:"count"`
}

// ScheduledJob is a recurring research task managed by the backend.
type ScheduledJob struct {
	ID              string
	Topic           string
	IntervalSeconds int
	NextRun         *time.Time
}

// MemoryDoc is a document stored in the backend research memory.
type MemoryDoc struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	URL      string `json:"url"`
	Source   string `json:"source,omitempty"`
}

// MemorySearchResult is one scored match from the research memory.
type MemorySearchResult struct {
	Score float64 `json:"score"`
	Text  string  `json:"text"`
	URL   string  `json:"url"`
	Title string  `json:"title"`
	ID    string  `json:"id,omitempty"`
}

// HealthStatus reports per-provider pipeline health.
type HealthStatus struct {
	Serpapi string `json:"serpapi"`
	Brave   string `json:"brave"`
	DDG     string `json:"ddg"`
	Offline string `json:"offline"`
}

// timestampLayouts covers the formats the backend has been seen emitting.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
