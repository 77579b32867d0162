// Package host sends actions back to the services daemon's control
// endpoint: notices, channel messages, forced renames and kills.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/servhooks/internal/adapters/fetch"
	"github.com/okian/servhooks/pkg/logger"
	"github.com/okian/servhooks/pkg/metrics"
)

// Control actions.
const (
	ActionNotice    = "notice"
	ActionPrivmsg   = "privmsg"
	ActionForceNick = "force_nick"
	ActionKill      = "kill"
)

// Doer performs one outbound call.
type Doer interface {
	Do(ctx context.Context, req fetch.Request) ([]byte, error)
}

// Action is the control payload.
type Action struct {
	Action    string `json:"action"`
	Source    string `json:"source,omitempty"`
	Target    string `json:"target,omitempty"`
	Text      string `json:"text,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Nick      string `json:"nick,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Client posts actions to the control URL. With no URL it only logs them.
type Client struct {
	doer   Doer
	url    string
	logger logger.Logger
}

// New returns a Client for url.
func New(doer Doer, url string) *Client {
	return &Client{doer: doer, url: url, logger: logger.Get().Named("host")}
}

// NotifyPrivately sends a notice from source to target.
func (c *Client) NotifyPrivately(ctx context.Context, source, target, text string) error {
	return c.send(ctx, Action{Action: ActionNotice, Source: source, Target: target, Text: text})
}

// Broadcast sends a message from source to channel.
func (c *Client) Broadcast(ctx context.Context, source, channel, text string) error {
	return c.send(ctx, Action{Action: ActionPrivmsg, Source: source, Target: channel, Text: text})
}

// ForceRename changes a session's nickname without asking.
func (c *Client) ForceRename(ctx context.Context, sessionID, nick string) error {
	return c.send(ctx, Action{Action: ActionForceNick, SessionID: sessionID, Nick: nick})
}

// TerminateSession disconnects a session.
func (c *Client) TerminateSession(ctx context.Context, sessionID, reason string) error {
	return c.send(ctx, Action{Action: ActionKill, SessionID: sessionID, Reason: reason})
}

func (c *Client) send(ctx context.Context, a Action) error {
	if c.url == "" {
		c.logger.Info(ctx, "host action",
			logger.String("action", a.Action),
			logger.String("target", a.Target),
			logger.String("session", a.SessionID),
			logger.String("text", a.Text),
			logger.String("nick", a.Nick),
		)
		return nil
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode %s: %w", a.Action, err)
	}
	if _, err := c.doer.Do(ctx, fetch.Request{
		Op:      "host_" + a.Action,
		Method:  http.MethodPost,
		URL:     c.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}); err != nil {
		metrics.RecordOutboundFailure(a.Action)
		return fmt.Errorf("host %s: %w", a.Action, err)
	}
	return nil
}
