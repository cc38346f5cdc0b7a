// Package trusthub checks changed skills against the Gen Digital Trust Hub
// lookup API from CI.
package trusthub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/logger"
)

const (
	DefaultURL      = "https://ai.gendigital.com/api/scan/lookup"
	DefaultTimeout  = 30 * time.Second
	DefaultAttempts = 3
)

// Lookup statuses returned by the API
const (
	StatusSafe   = "safe"
	StatusUnsafe = "unsafe"
)

// Response is the API verdict for one skill
type Response struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Client calls the lookup API
type Client struct {
	url      string
	http     *http.Client
	attempts uint
	delay    time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAttempts sets the number of tries per lookup
func WithAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithRetryDelay sets the initial backoff delay
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// NewClient creates a client for the lookup endpoint at url
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:      url,
		http:     &http.Client{Timeout: DefaultTimeout},
		attempts: DefaultAttempts,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type retryableError struct{ error }

func (e retryableError) Unwrap() error { return e.error }

// Lookup asks the API about the skill served at skillURL. Transport errors
// and 5xx responses are retried with backoff.
func (c *Client) Lookup(ctx context.Context, skillURL string) (Response, error) {
	body, err := json.Marshal(map[string]string{"skillUrl": skillURL})
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to encode request")
	}

	var resp Response
	err = retry.Do(
		func() error {
			var lookupErr error
			resp, lookupErr = c.lookupOnce(ctx, body)
			return lookupErr
		},
		retry.RetryIf(func(err error) bool {
			var r retryableError
			return errors.As(err, &r)
		}),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("max_attempts", c.attempts).Warn("retrying Trust Hub lookup")
		}),
	)
	if err != nil {
		return Response{}, errors.Wrap(err, "trust hub lookup failed")
	}
	return resp, nil
}

func (c *Client) lookupOnce(ctx context.Context, body []byte) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Response{}, retryableError{err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Response{}, retryableError{err}
	}
	if res.StatusCode >= 500 {
		return Response{}, retryableError{fmt.Errorf("server returned %s", res.Status)}
	}
	if res.StatusCode != http.StatusOK {
		return Response{}, errors.Errorf("server returned %s", res.Status)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return Response{}, errors.Wrap(err, "failed to decode response")
	}
	return out, nil
}
