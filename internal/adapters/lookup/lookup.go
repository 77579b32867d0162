// Package lookup reads video metadata from the YouTube Data API.
package lookup

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/servhooks/internal/adapters/fetch"
	"github.com/okian/servhooks/internal/domain/enrichment"
)

// DefaultBaseURL is the videos endpoint of the YouTube Data API v3.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3/videos"

// Doer performs one outbound call.
type Doer interface {
	Do(ctx context.Context, req fetch.Request) ([]byte, error)
}

// Client implements enrichment.Lookup.
type Client struct {
	doer    Doer
	baseURL string
	apiKey  string
}

// New returns a Client querying baseURL with apiKey.
func New(doer Doer, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{doer: doer, baseURL: baseURL, apiKey: apiKey}
}

// Lookup fetches and evaluates the metadata of id.
func (c *Client) Lookup(ctx context.Context, id enrichment.ResourceID) enrichment.Result {
	body, err := c.doer.Do(ctx, fetch.Request{
		Op:     "lookup",
		Method: http.MethodGet,
		URL:    c.URL(id),
	})
	return enrichment.Evaluate(body, err)
}

// URL builds the request address for id.
func (c *Client) URL(id enrichment.ResourceID) string {
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep +
		"id=" + url.QueryEscape(string(id)) +
		"&key=" + url.QueryEscape(c.apiKey) +
		"&part=snippet,statistics"
}
