package api

import (
	"context"

	"github.com/pkg/errors"
)

// GenerateReport asks the backend to compile a report for a conversation.
func (c *Client) GenerateReport(ctx context.Context, conversationID string) (string, error) {
	out := struct {
		ReportID string `json:"report_id"`
	}{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Post("/api/report/" + conversationID)
	if err != nil {
		return "", errors.Wrap(err, "generating report")
	}
	if resp.IsError() {
		return "", statusError(resp)
	}
	return out.ReportID, nil
}

// DownloadReport fetches the rendered report for a conversation as a blob.
func (c *Client) DownloadReport(ctx context.Context, conversationID string) ([]byte, string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/api/reports/conversation/" + conversationID + "/download")
	if err != nil {
		return nil, "", errors.Wrap(err, "downloading report")
	}
	if resp.IsError() {
		return nil, "", statusError(resp)
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}
