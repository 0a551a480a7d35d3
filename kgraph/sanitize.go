// Package kgraph validates, caps, lays out and renders knowledge graph
// payloads. Graph data from the backend is untrusted: collections may be
// missing, oversized, or reference nodes that do not exist.
package kgraph

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/siralabs/sira/internal/api"
)

const (
	// DefaultMaxNodes caps how many nodes are rendered.
	DefaultMaxNodes = 150
	// DefaultMaxEdges caps how many edges are rendered.
	DefaultMaxEdges = 300
)

// ErrMalformedGraph reports a payload whose node or edge collection is
// missing or not list-shaped. Such graphs are rejected whole.
var ErrMalformedGraph = errors.New("malformed graph payload")

// Limits bound what the renderer will accept.
type Limits struct {
	MaxNodes int
	MaxEdges int
}

// DefaultLimits for rendering.
func DefaultLimits() Limits {
	return Limits{MaxNodes: DefaultMaxNodes, MaxEdges: DefaultMaxEdges}
}

// Sanitized is a graph reduced to what is safe to render. Every edge's
// endpoints are members of the node set.
type Sanitized struct {
	Nodes []api.KnowledgeGraphNode
	Edges []api.KnowledgeGraphEdge

	// TotalNodes and TotalEdges are the pre-cap counts.
	TotalNodes int
	TotalEdges int

	// Notices describe what was dropped, for display alongside the graph.
	Notices []string
}

// Truncated reports whether any nodes or edges were dropped by the caps.
func (s *Sanitized) Truncated() bool {
	return len(s.Notices) > 0
}

// Sanitize validates and caps an untrusted graph. A nil graph, or one
// whose nodes or edges collection failed to decode as a list, returns
// ErrMalformedGraph.
func Sanitize(graph *api.KnowledgeGraph, limits Limits) (*Sanitized, error) {
	if graph == nil || graph.Nodes == nil || graph.Edges == nil {
		return nil, ErrMalformedGraph
	}
	if limits.MaxNodes <= 0 {
		limits.MaxNodes = DefaultMaxNodes
	}
	if limits.MaxEdges <= 0 {
		limits.MaxEdges = DefaultMaxEdges
	}

	out := &Sanitized{
		TotalNodes: len(graph.Nodes),
		TotalEdges: len(graph.Edges),
	}

	nodes := graph.Nodes
	if len(nodes) > limits.MaxNodes {
		nodes = nodes[:limits.MaxNodes]
		out.Notices = append(out.Notices, fmt.Sprintf(
			"showing %d of %d nodes", limits.MaxNodes, out.TotalNodes))
	}
	out.Nodes = nodes

	known := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.Data.ID] = struct{}{}
	}

	edges := make([]api.KnowledgeGraphEdge, 0, len(graph.Edges))
	dangling := 0
	for _, e := range graph.Edges {
		if _, ok := known[e.Data.Source]; !ok {
			dangling++
			continue
		}
		if _, ok := known[e.Data.Target]; !ok {
			dangling++
			continue
		}
		edges = append(edges, e)
	}
	if dangling > 0 {
		out.Notices = append(out.Notices, fmt.Sprintf(
			"dropped %d edges with missing endpoints", dangling))
	}
	if len(edges) > limits.MaxEdges {
		edges = edges[:limits.MaxEdges]
		out.Notices = append(out.Notices, fmt.Sprintf(
			"showing %d of %d edges", limits.MaxEdges, out.TotalEdges))
	}
	out.Edges = edges
	return out, nil
}
