// Package notify tells the accounts backend that an account was dropped.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/servhooks/internal/adapters/fetch"
)

// ErrNoEndpoint is returned when no deletion URL is configured.
var ErrNoEndpoint = errors.New("deletion endpoint not configured")

// Doer performs one outbound call.
type Doer interface {
	Do(ctx context.Context, req fetch.Request) ([]byte, error)
}

type deletion struct {
	Username string `json:"username"`
}

// Client implements enrichment.DeletionNotifier.
type Client struct {
	doer Doer
	url  string
}

// New returns a Client posting to url.
func New(doer Doer, url string) *Client {
	return &Client{doer: doer, url: url}
}

// NotifyDeleted posts {"username": account} once. The response body is
// ignored; any transport failure or non-2xx status is returned.
func (c *Client) NotifyDeleted(ctx context.Context, account string) error {
	if c.url == "" {
		return ErrNoEndpoint
	}
	payload, err := json.Marshal(deletion{Username: account})
	if err != nil {
		return fmt.Errorf("encode deletion: %w", err)
	}
	_, err = c.doer.Do(ctx, fetch.Request{
		Op:      "notify_delete",
		Method:  http.MethodPost,
		URL:     c.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	})
	return err
}
