// Package api exposes the hook ingress and operator commands over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/okian/servhooks/internal/domain/dedupe"
	"github.com/okian/servhooks/internal/domain/model"
	"github.com/okian/servhooks/internal/domain/role"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Dispatch runs the handlers for ev. proceed reports whether the host
	// may continue the action being hooked.
	Dispatch(ctx context.Context, ev model.TriggerEvent) (proceed bool, err error)

	// SetRole stores an operator rank and returns the confirmation line.
	SetRole(ctx context.Context, req role.SetRoleRequest) (string, error)

	// AccountInfo returns the extra INFO lines for account.
	AccountInfo(ctx context.Context, account string) []string
}

// Server wires HTTP routes for the hook ingress.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	hooksHandler    *HooksHandler
	commandsHandler *CommandsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		hooksHandler:    NewHooksHandler(deps),
		commandsHandler: NewCommandsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	h := s.hooksHandler
	mux.HandleFunc("/hooks/channel-message", MetricsMiddleware(h.Handle(decodeHook[channelMessageRequest]), "hook_channel_message"))
	mux.HandleFunc("/hooks/account-deleted", MetricsMiddleware(h.Handle(decodeHook[accountDeletedRequest]), "hook_account_deleted"))
	mux.HandleFunc("/hooks/session-authenticated", MetricsMiddleware(h.Handle(decodeHook[sessionAuthenticatedRequest]), "hook_session_authenticated"))
	mux.HandleFunc("/hooks/session-logout", MetricsMiddleware(h.Handle(decodeHook[sessionLogoutRequest]), "hook_session_logout"))
	mux.HandleFunc("/hooks/session-connected", MetricsMiddleware(h.Handle(decodeHook[sessionConnectedRequest]), "hook_session_connected"))
	mux.HandleFunc("/hooks/session-nick", MetricsMiddleware(h.Handle(decodeHook[nickChangedRequest]), "hook_session_nick"))
	mux.HandleFunc("/hooks/session-quit", MetricsMiddleware(h.Handle(decodeHook[sessionQuitRequest]), "hook_session_quit"))
	mux.HandleFunc("/hooks/channel-bot", MetricsMiddleware(h.Handle(decodeHook[botAssignmentRequest]), "hook_channel_bot"))

	mux.HandleFunc("/commands/setrole", MetricsMiddleware(s.commandsHandler.HandleSetRole, "command_setrole"))
	mux.HandleFunc("/accounts/info", MetricsMiddleware(s.commandsHandler.HandleAccountInfo, "account_info"))
}
