package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/inventory"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/format"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/tracing"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

// ErrNotFound matches errors for instances the server does not list
var ErrNotFound = errors.New("instance not found")

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type errorBody struct {
	Error string `json:"error"`
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryConfig retries transient failures three times
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		MinWait:    200 * time.Millisecond,
		MaxWait:    2 * time.Second,
	}
}

// Client talks to a running launcher server
type Client struct {
	resty *resty.Client
}

// New creates a client for the server at baseURL
func New(baseURL string, retry RetryConfig) *Client {
	// Create underlying retryable client
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retry.MaxRetries
	retryClient.RetryWaitMin = retry.MinWait
	retryClient.RetryWaitMax = retry.MaxWait
	retryClient.Logger = nil // Disable logging

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "PrisonLauncher-instlist/1.0").
		SetHeader("Accept", "application/json")
	restyClient.JSONMarshal = sonic.Marshal
	restyClient.JSONUnmarshal = sonic.Unmarshal

	// Propagate the caller's trace
	restyClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		headers := make(map[string]string)
		tracing.InjectTraceContext(req.Context(), headers)
		req.SetHeaders(headers)
		return nil
	})

	return &Client{resty: restyClient}
}

// List fetches the whole instance list
func (c *Client) List(ctx context.Context) (format.Document, error) {
	var doc format.Document
	err := c.do(c.resty.R().SetContext(ctx).SetResult(&doc), http.MethodGet, "/api/instances")
	return doc, err
}

// Get fetches one instance
func (c *Client) Get(ctx context.Context, instanceID string) (types.InstanceView, error) {
	var view types.InstanceView
	req := c.resty.R().
		SetContext(ctx).
		SetPathParam("id", instanceID).
		SetResult(&view)
	err := c.do(req, http.MethodGet, "/api/instances/{id}")
	return view, err
}

// Reload asks the server to rescan its instance root
func (c *Client) Reload(ctx context.Context) (instance.LoadReport, error) {
	var report instance.LoadReport
	err := c.do(c.resty.R().SetContext(ctx).SetResult(&report), http.MethodPost, "/api/instances/reload")
	return report, err
}

// Summary fetches counts by group and type, measuring sizes when asked
func (c *Client) Summary(ctx context.Context, sizes bool) (inventory.Summary, error) {
	var summary inventory.Summary
	req := c.resty.R().SetContext(ctx).SetResult(&summary)
	if sizes {
		req.SetQueryParam("sizes", "true")
	}
	err := c.do(req, http.MethodGet, "/api/summary")
	return summary, err
}

func (c *Client) do(req *resty.Request, method, path string) error {
	var body errorBody
	resp, err := req.SetError(&body).Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Message: body.Error}
	}
	return nil
}
