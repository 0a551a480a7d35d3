// Package api implements the JSON client for the research backend. All wire
// shape quirks (grouped vs flat lists, title field variants, the "agent"
// role) are normalized here so the rest of the program sees one canonical
// model.
package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Options configure a backend client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Client talks to the research backend.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient instantiates and returns a backend client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only reads are retried; writes are not idempotent here.
			if r == nil || r.Request == nil || r.Request.Method != resty.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= 500
		})
	if opts.Token != "" {
		http.SetAuthToken(opts.Token)
	}
	return &Client{
		http: http,
		log:  opts.Logger.With().Str("component", "api").Logger(),
	}
}

// BaseURL returns the backend base URL the client was built with.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// statusError turns a non-2xx response into an error carrying the backend's
// message when one was provided.
func statusError(resp *resty.Response) error {
	body := &errorBody{}
	if err := json.Unmarshal(resp.Body(), body); err == nil {
		message := body.Message
		if message == "" {
			message = body.Detail
		}
		if message != "" {
			return errors.Errorf("backend: %s (status %d)", message, resp.StatusCode())
		}
	}
	return errors.Errorf("backend: request failed (status %d)", resp.StatusCode())
}
