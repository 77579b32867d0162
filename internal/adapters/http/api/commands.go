package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/servhooks/internal/domain/role"
)

type setRoleRequest struct {
	Source     string `json:"source"`
	Account    string `json:"account"`
	Role       string `json:"role"`
	Privileged bool   `json:"privileged"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type accountInfoResponse struct {
	Account string   `json:"account"`
	Lines   []string `json:"lines"`
}

// CommandsHandler serves operator commands and account INFO lines.
type CommandsHandler struct {
	deps Dependencies
}

// NewCommandsHandler creates a new commands handler.
func NewCommandsHandler(deps Dependencies) *CommandsHandler {
	return &CommandsHandler{deps: deps}
}

// HandleSetRole handles POST /commands/setrole. The caller must have
// resolved the target account already; unknown names are not rejected.
func (h *CommandsHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	const op = "api.setrole"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req setRoleRequest
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}

	line, err := h.deps.SetRole(r.Context(), role.SetRoleRequest{
		Source:     req.Source,
		Account:    req.Account,
		Role:       req.Role,
		Privileged: req.Privileged,
	})
	if err != nil {
		writeRoleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: line})
}

func writeRoleError(w http.ResponseWriter, err error) {
	var verr *role.ValidationError
	switch {
	case errors.Is(err, role.ErrNoPrivilege):
		writeError(w, http.StatusForbidden, "no_privilege", err)
	case errors.Is(err, role.ErrNeedMoreParams):
		writeError(w, http.StatusBadRequest, "need_more_params", err)
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid_role", verr)
	default:
		writeError(w, http.StatusInternalServerError, "store_error", err)
	}
}

// HandleAccountInfo handles GET /accounts/info?account=<name>.
func (h *CommandsHandler) HandleAccountInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	account := strings.TrimSpace(r.URL.Query().Get("account"))
	if account == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing account", ErrBadRequest))
		return
	}
	lines := h.deps.AccountInfo(r.Context(), account)
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, accountInfoResponse{Account: account, Lines: lines})
}
