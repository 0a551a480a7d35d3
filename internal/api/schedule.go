package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// StartScheduledJob registers a recurring research task and returns its id.
func (c *Client) StartScheduledJob(ctx context.Context, topic, userID string, intervalSeconds int) (string, error) {
	out := struct {
		Status string `json:"status"`
		JobID  string `json:"job_id"`
	}{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("topic", topic).
		SetQueryParam("user_id", userID).
		SetQueryParam("interval_seconds", fmt.Sprintf("%d", intervalSeconds)).
		SetResult(&out).
		Post("/api/schedule/start")
	if err != nil {
		return "", errors.Wrap(err, "starting scheduled job")
	}
	if resp.IsError() {
		return "", statusError(resp)
	}
	return out.JobID, nil
}

// CancelScheduledJob cancels a job by id.
func (c *Client) CancelScheduledJob(ctx context.Context, jobID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"job_id": jobID}).
		Post("/api/schedule/cancel")
	if err != nil {
		return errors.Wrap(err, "cancelling scheduled job")
	}
	if resp.IsError() {
		return statusError(resp)
	}
	return nil
}

// scheduledJobWire tolerates `interval` vs `interval_seconds`.
type scheduledJobWire struct {
	Topic           string `json:"topic"`
	Interval        int    `json:"interval"`
	IntervalSeconds int    `json:"interval_seconds"`
	NextRun         string `json:"next_run"`
}

// ListScheduledJobs returns the active jobs. The backend keys them by id in
// an object; the result is flattened and sorted by id for stable output.
func (c *Client) ListScheduledJobs(ctx context.Context) ([]ScheduledJob, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/api/schedule/list")
	if err != nil {
		return nil, errors.Wrap(err, "listing scheduled jobs")
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	var raw map[string]scheduledJobWire
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, errors.Wrap(err, "unmarshaling scheduled jobs")
	}
	jobs := make([]ScheduledJob, 0, len(raw))
	for id, w := range raw {
		interval := w.IntervalSeconds
		if interval == 0 {
			interval = w.Interval
		}
		job := ScheduledJob{ID: id, Topic: w.Topic, IntervalSeconds: interval}
		if t := parseTimestamp(w.NextRun); !t.IsZero() {
			job.NextRun = &t
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

// ScheduleHistory returns the raw run history for a user's jobs.
func (c *Client) ScheduleHistory(ctx context.Context, userID string) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", userID).
		Get("/api/schedule/history")
	if err != nil {
		return nil, errors.Wrap(err, "fetching schedule history")
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return json.RawMessage(resp.Body()), nil
}
