package api

import (
	"context"

	"github.com/pkg/errors"
)

// Research runs the backend pipeline on a topic. This is the long-latency
// call of the system; callers are expected to pass a context with a
// deadline.
func (c *Client) Research(ctx context.Context, topic, userID string, deep bool) (*PipelineResult, error) {
	out := &PipelineResult{}
	request := c.http.R().
		SetContext(ctx).
		SetQueryParam("topic", topic).
		SetQueryParam("user_id", userID).
		SetResult(out)
	if deep {
		request.SetQueryParam("deep", "true")
	}
	resp, err := request.Get("/api/pipeline/research")
	if err != nil {
		return nil, errors.Wrap(err, "running research")
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return out, nil
}

// CurrentGraph fetches the backend's current global knowledge graph.
func (c *Client) CurrentGraph(ctx context.Context) (*KnowledgeGraph, error) {
	out := &KnowledgeGraph{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(out).
		Get("/api/kg")
	if err != nil {
		return nil, errors.Wrap(err, "fetching knowledge graph")
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return out, nil
}

// Health checks the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	out := struct {
		OK bool `json:"ok"`
	}{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/health")
	if err != nil {
		return errors.Wrap(err, "checking health")
	}
	if resp.IsError() {
		return statusError(resp)
	}
	if !out.OK {
		return errors.New("backend reports unhealthy")
	}
	return nil
}

// PipelineHealth reports per-provider health of the research pipeline.
func (c *Client) PipelineHealth(ctx context.Context) (*HealthStatus, error) {
	out := &HealthStatus{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(out).
		Get("/api/pipeline/health")
	if err != nil {
		return nil, errors.Wrap(err, "checking pipeline health")
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return out, nil
}
