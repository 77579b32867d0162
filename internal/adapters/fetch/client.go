// Package fetch issues single bounded outbound HTTP calls.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/okian/servhooks/pkg/metrics"
)

// Defaults for outbound calls.
const (
	DefaultTimeout          = 5 * time.Second
	DefaultMaxResponseBytes = 1 << 20
	DefaultUserAgent        = "servhooks"
)

// Request is one outbound call. Op names it in errors and metrics.
type Request struct {
	Op      string
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Client performs exactly one HTTP exchange per Do call. It never retries.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	maxBytes  int64
	userAgent string
}

// New returns a Client with a 5s timeout and traced transport.
func New(opts ...Option) *Client {
	c := &Client{
		timeout:   DefaultTimeout,
		maxBytes:  DefaultMaxResponseBytes,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	c.http.Timeout = c.timeout
	return c
}

// Do sends req and returns the response body. Connection failures,
// timeouts, unreadable bodies and non-2xx statuses are *TransportError.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	op := req.Op
	if op == "" {
		op = "fetch"
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	defer func() {
		metrics.RecordFetchLatency(op, float64(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, c.fail(op, req.URL, 0, fmt.Errorf("build request: %w", withoutURL(err)))
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		err = withoutURL(err)
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrTimeout, c.timeout, err)
		}
		return nil, c.fail(op, req.URL, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, c.fail(op, req.URL, 0, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(op, req.URL, resp.StatusCode, nil)
	}
	return data, nil
}

func (c *Client) fail(op, rawURL string, status int, err error) *TransportError {
	te := &TransportError{Op: op, URL: redactURL(rawURL), Status: status, Err: err}
	cause := "network"
	switch {
	case status != 0:
		cause = "status"
	case te.timedOut():
		cause = "timeout"
	}
	metrics.RecordFetchError(op, cause)
	return te
}

// withoutURL replaces a *url.Error by its cause. The address it quotes may
// carry credentials in the query string.
func withoutURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}

// redactURL keeps scheme, host and path only.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	return u.String()
}
