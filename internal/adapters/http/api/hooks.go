package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/servhooks/internal/domain/identity"
	"github.com/okian/servhooks/internal/domain/model"
	"github.com/okian/servhooks/pkg/metrics"
)

// hookRequest is the JSON body of one hook route.
type hookRequest interface {
	validate() error
	event() model.TriggerEvent
}

type channelMessageRequest struct {
	DeliveryID string `json:"delivery_id"`
	Channel    string `json:"channel"`
	Sender     string `json:"sender"`
	Text       string `json:"text"`
}

func (r channelMessageRequest) validate() error {
	return required("channel", r.Channel, "sender", r.Sender)
}

func (r channelMessageRequest) event() model.TriggerEvent {
	return model.ChannelMessage{DeliveryID: r.DeliveryID, Channel: r.Channel, Sender: r.Sender, Text: r.Text}
}

type accountDeletedRequest struct {
	DeliveryID string `json:"delivery_id"`
	Account    string `json:"account"`
	Forced     bool   `json:"forced"`
}

func (r accountDeletedRequest) validate() error { return required("account", r.Account) }

func (r accountDeletedRequest) event() model.TriggerEvent {
	return model.AccountDeleted{DeliveryID: r.DeliveryID, Account: r.Account, Forced: r.Forced}
}

type sessionAuthenticatedRequest struct {
	DeliveryID string `json:"delivery_id"`
	SessionID  string `json:"session_id"`
	Account    string `json:"account"`
	Nick       string `json:"nick"`
}

func (r sessionAuthenticatedRequest) validate() error {
	return required("session_id", r.SessionID, "account", r.Account, "nick", r.Nick)
}

func (r sessionAuthenticatedRequest) event() model.TriggerEvent {
	return model.SessionAuthenticated{DeliveryID: r.DeliveryID, SessionID: r.SessionID, Account: r.Account, Nick: r.Nick}
}

type sessionLogoutRequest struct {
	DeliveryID string `json:"delivery_id"`
	SessionID  string `json:"session_id"`
}

func (r sessionLogoutRequest) validate() error { return required("session_id", r.SessionID) }

func (r sessionLogoutRequest) event() model.TriggerEvent {
	return model.SessionLoggingOut{DeliveryID: r.DeliveryID, SessionID: r.SessionID}
}

type sessionConnectedRequest struct {
	SessionID string `json:"session_id"`
	Nick      string `json:"nick"`
}

func (r sessionConnectedRequest) validate() error {
	return required("session_id", r.SessionID, "nick", r.Nick)
}

func (r sessionConnectedRequest) event() model.TriggerEvent {
	return model.SessionConnected{SessionID: r.SessionID, Nick: r.Nick}
}

type nickChangedRequest struct {
	SessionID string `json:"session_id"`
	Nick      string `json:"nick"`
}

func (r nickChangedRequest) validate() error {
	return required("session_id", r.SessionID, "nick", r.Nick)
}

func (r nickChangedRequest) event() model.TriggerEvent {
	return model.NickChanged{SessionID: r.SessionID, Nick: r.Nick}
}

type sessionQuitRequest struct {
	SessionID string `json:"session_id"`
}

func (r sessionQuitRequest) validate() error { return required("session_id", r.SessionID) }

func (r sessionQuitRequest) event() model.TriggerEvent {
	return model.SessionQuit{SessionID: r.SessionID}
}

type botAssignmentRequest struct {
	Channel  string `json:"channel"`
	Bot      string `json:"bot"`
	Assigned bool   `json:"assigned"`
}

func (r botAssignmentRequest) validate() error {
	if err := required("channel", r.Channel); err != nil {
		return err
	}
	if r.Assigned {
		return required("bot", r.Bot)
	}
	return nil
}

func (r botAssignmentRequest) event() model.TriggerEvent {
	return model.BotAssignment{Channel: r.Channel, Bot: r.Bot, Assigned: r.Assigned}
}

// required takes name/value pairs and reports the first blank value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: missing %s", ErrBadRequest, pairs[i])
		}
	}
	return nil
}

// decodeHook reads and validates a T and converts it to its event.
func decodeHook[T hookRequest](r io.Reader) (model.TriggerEvent, error) {
	var req T
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return req.event(), nil
}

type hookResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	Proceed   bool   `json:"proceed"`
}

// HooksHandler turns hook deliveries into dispatched events.
type HooksHandler struct {
	deps Dependencies
}

// NewHooksHandler creates a new hooks handler.
func NewHooksHandler(deps Dependencies) *HooksHandler {
	return &HooksHandler{deps: deps}
}

// Handle returns the POST handler for one hook route.
func (h *HooksHandler) Handle(decode func(io.Reader) (model.TriggerEvent, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.hook"
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		ev, err := decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
			return
		}
		metrics.RecordHookEvent(string(ev.Kind()))

		ctx := r.Context()
		id := model.DeliveryID(ev)
		if id != "" && h.deps.SeenAndRecord(ctx, id) {
			metrics.RecordHookDuplicate()
			writeJSON(w, http.StatusOK, hookResponse{Status: "duplicate", Duplicate: true, Proceed: true})
			return
		}

		proceed, err := h.deps.Dispatch(ctx, ev)
		if err != nil {
			// Let the host redeliver.
			if id != "" {
				h.deps.Unrecord(ctx, id)
			}
			if errors.Is(err, identity.ErrUnknownSession) {
				writeError(w, http.StatusNotFound, "unknown_session", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "dispatch_failed", fmt.Errorf("%s: %w: %w", op, ErrDispatch, err))
			return
		}
		writeJSON(w, http.StatusOK, hookResponse{Status: "ok", Proceed: proceed})
	}
}
