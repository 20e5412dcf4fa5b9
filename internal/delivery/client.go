// Package delivery talks to the Mail Delivery Endpoint, the backend that
// actually sends a submitted grievance. The endpoint itself is not part of
// this repository; Stub provides a stand-in for local development.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/conneroisu/grievance/internal/errors"
	"github.com/conneroisu/grievance/internal/logging"
	"github.com/conneroisu/grievance/internal/version"
	"github.com/conneroisu/grievance/internal/widget"
)

// maxReplyBytes caps how much of a reply body is read.
const maxReplyBytes = 64 << 10

// Reply is the JSON body the endpoint answers with. Message is only consulted
// when the status is not 2xx.
type Reply struct {
	Message string `json:"message,omitempty"`
}

// Client posts submissions to one endpoint. It implements widget.Submitter.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	logger     logging.Logger
}

var _ widget.Submitter = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client. hc itself is never
// modified; a nil hc keeps the default.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request. Zero means no bound.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.WithComponent("delivery")
	}
}

// NewClient creates a client for endpoint, e.g. "http://localhost:8080/api/send".
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout > 0 {
		bounded := *c.httpClient
		bounded.Timeout = c.timeout
		c.httpClient = &bounded
	}
	return c
}

// Endpoint returns the URL submissions are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send posts input as {"name","email","message"} JSON.
//
// A 2xx answer returns nil. Any other status returns *errors.ServerRejection
// with the reply's message, if it had one. A request that cannot complete for
// any reason returns *errors.NetworkFailure.
func (c *Client) Send(ctx context.Context, input widget.FormInput) error {
	op := logging.StartOperation(c.logger, "deliver")

	body, err := json.Marshal(input)
	if err != nil {
		return errors.NewNetworkFailure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.NewNetworkFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		op.End(ctx, "outcome", "network_failure")
		return errors.NewNetworkFailure(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		op.End(ctx, "outcome", "network_failure")
		return errors.NewNetworkFailure(fmt.Errorf("reading reply: %w", err))
	}

	op.End(ctx, "status", resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var reply Reply
	// A missing or malformed body leaves Message empty; the default applies.
	_ = json.Unmarshal(data, &reply)
	return &errors.ServerRejection{Status: resp.StatusCode, Message: reply.Message}
}
