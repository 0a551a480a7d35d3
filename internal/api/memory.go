package api

import (
	"context"

	"github.com/pkg/errors"
)

// AddMemory upserts a document into the backend research memory.
func (c *Client) AddMemory(ctx context.Context, userID string, doc MemoryDoc) (string, error) {
	text := doc.Abstract
	if text == "" {
		text = doc.Title
	}
	out := struct {
		ID string `json:"id"`
	}{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"user_id": userID,
			"text":    text,
			"url":     doc.URL,
			"title":   doc.Title,
		}).
		SetResult(&out).
		Post("/api/memory/add")
	if err != nil {
		return "", errors.Wrap(err, "adding memory")
	}
	if resp.IsError() {
		return "", statusError(resp)
	}
	return out.ID, nil
}

// SearchMemory queries the backend research memory.
func (c *Client) SearchMemory(ctx context.Context, userID, query string) ([]MemorySearchResult, error) {
	out := struct {
		Matches []MemorySearchResult `json:"matches"`
	}{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", userID).
		SetQueryParam("q", query).
		SetResult(&out).
		Get("/api/memory/search")
	if err != nil {
		return nil, errors.Wrap(err, "searching memory")
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return out.Matches, nil
}
