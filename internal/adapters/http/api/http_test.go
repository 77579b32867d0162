package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/servhooks/internal/adapters/http/api"
	"github.com/okian/servhooks/internal/domain/dedupe"
	"github.com/okian/servhooks/internal/domain/identity"
	"github.com/okian/servhooks/internal/domain/model"
	"github.com/okian/servhooks/internal/domain/role"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDependencies struct {
	dedupe.Deduper

	mu          sync.Mutex
	dispatched  []model.TriggerEvent
	dispatchErr error
	proceed     bool

	lastRole role.SetRoleRequest
	roleErr  error
	info     map[string][]string
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		Deduper: dedupe.NewInMemoryDeduper(),
		proceed: true,
		info:    map[string][]string{},
	}
}

func (m *mockDependencies) Dispatch(ctx context.Context, ev model.TriggerEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dispatchErr != nil {
		return false, m.dispatchErr
	}
	m.dispatched = append(m.dispatched, ev)
	return m.proceed, nil
}

func (m *mockDependencies) SetRole(ctx context.Context, req role.SetRoleRequest) (string, error) {
	m.lastRole = req
	if m.roleErr != nil {
		return "", m.roleErr
	}
	return fmt.Sprintf("Oper rank \x02%s\x02 has been set for account \x02%s\x02.", req.Role, req.Account), nil
}

func (m *mockDependencies) AccountInfo(ctx context.Context, account string) []string {
	return m.info[account]
}

func (m *mockDependencies) events() []model.TriggerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TriggerEvent(nil), m.dispatched...)
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"queue_size": 3}})
	mux := http.NewServeMux()
	server.Register(mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("Then health serves the metrics exposition", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats serves the provider's map", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["queue_size"], ShouldEqual, 3)
		})

		Convey("Then unknown paths are not found", func() {
			w := do(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then hooks reject other methods", func() {
			w := do(mux, http.MethodGet, "/hooks/channel-message", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(deps.events(), ShouldBeEmpty)
		})
	})
}

func TestHooks(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When each hook route is posted a valid body", func() {
			cases := []struct {
				path string
				body string
				want model.TriggerEvent
			}{
				{"/hooks/channel-message", `{"channel":"#lobby","sender":"alice","text":"hi"}`,
					model.ChannelMessage{Channel: "#lobby", Sender: "alice", Text: "hi"}},
				{"/hooks/account-deleted", `{"account":"alice","forced":true}`,
					model.AccountDeleted{Account: "alice", Forced: true}},
				{"/hooks/session-authenticated", `{"session_id":"s1","account":"alice","nick":"al"}`,
					model.SessionAuthenticated{SessionID: "s1", Account: "alice", Nick: "al"}},
				{"/hooks/session-logout", `{"session_id":"s1"}`,
					model.SessionLoggingOut{SessionID: "s1"}},
				{"/hooks/session-connected", `{"session_id":"s1","nick":"al"}`,
					model.SessionConnected{SessionID: "s1", Nick: "al"}},
				{"/hooks/session-nick", `{"session_id":"s1","nick":"bob"}`,
					model.NickChanged{SessionID: "s1", Nick: "bob"}},
				{"/hooks/session-quit", `{"session_id":"s1"}`,
					model.SessionQuit{SessionID: "s1"}},
				{"/hooks/channel-bot", `{"channel":"#lobby","bot":"BotServ","assigned":true}`,
					model.BotAssignment{Channel: "#lobby", Bot: "BotServ", Assigned: true}},
			}

			Convey("Then each is decoded into its event and acknowledged", func() {
				for _, tc := range cases {
					w := do(mux, http.MethodPost, tc.path, tc.body)
					So(w.Code, ShouldEqual, http.StatusOK)
					So(decode(w)["status"], ShouldEqual, "ok")
				}
				got := deps.events()
				So(got, ShouldHaveLength, len(cases))
				for i, tc := range cases {
					So(got[i], ShouldResemble, tc.want)
				}
			})
		})

		Convey("When the logout hook is posted", func() {
			w := do(mux, http.MethodPost, "/hooks/session-logout", `{"session_id":"s1"}`)

			Convey("Then the host is told to proceed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["proceed"], ShouldEqual, true)
			})
		})

		Convey("When a body is malformed", func() {
			w := do(mux, http.MethodPost, "/hooks/channel-message", `{"channel":`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
				So(deps.events(), ShouldBeEmpty)
			})
		})

		Convey("When a body is empty", func() {
			w := do(mux, http.MethodPost, "/hooks/session-quit", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["message"], ShouldContainSubstring, "empty body")
		})

		Convey("When a required field is missing", func() {
			w := do(mux, http.MethodPost, "/hooks/session-authenticated", `{"session_id":"s1","nick":"al"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["message"], ShouldContainSubstring, "missing account")
		})

		Convey("When a bot is unassigned without a bot name", func() {
			w := do(mux, http.MethodPost, "/hooks/channel-bot", `{"channel":"#lobby","assigned":false}`)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the same delivery is posted twice", func() {
			body := `{"delivery_id":"d-1","account":"alice"}`
			first := do(mux, http.MethodPost, "/hooks/account-deleted", body)
			second := do(mux, http.MethodPost, "/hooks/account-deleted", body)

			Convey("Then the redelivery is acknowledged but not dispatched", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(decode(second)["duplicate"], ShouldEqual, true)
				So(deps.events(), ShouldHaveLength, 1)
			})
		})

		Convey("When dispatch fails for an unknown session", func() {
			deps.dispatchErr = fmt.Errorf("authenticated s9: %w", identity.ErrUnknownSession)
			body := `{"delivery_id":"d-2","session_id":"s9","account":"alice","nick":"al"}`
			w := do(mux, http.MethodPost, "/hooks/session-authenticated", body)

			Convey("Then it is not found and the delivery can be retried", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode(w)["code"], ShouldEqual, "unknown_session")
				So(deps.SeenAndRecord(context.Background(), "d-2"), ShouldBeFalse)
			})
		})

		Convey("When dispatch fails otherwise", func() {
			deps.dispatchErr = errors.New("host unreachable")
			w := do(mux, http.MethodPost, "/hooks/session-authenticated", `{"session_id":"s1","account":"alice","nick":"al"}`)

			Convey("Then it is a server error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decode(w)["message"], ShouldContainSubstring, "host unreachable")
			})
		})
	})
}

func TestCommands(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When a privileged SETROLE is posted", func() {
			w := do(mux, http.MethodPost, "/commands/setrole", `{"source":"oper","account":"alice","role":"Network Admin","privileged":true}`)

			Convey("Then the confirmation line is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["message"], ShouldEqual, "Oper rank \x02Network Admin\x02 has been set for account \x02alice\x02.")
				So(deps.lastRole, ShouldResemble, role.SetRoleRequest{Source: "oper", Account: "alice", Role: "Network Admin", Privileged: true})
			})
		})

		Convey("When SETROLE fails", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{role.ErrNoPrivilege, http.StatusForbidden, "no_privilege"},
				{role.ErrNeedMoreParams, http.StatusBadRequest, "need_more_params"},
				{&role.ValidationError{Field: "role", Reason: "Invalid role name. Role cannot contain newlines or semicolons."}, http.StatusBadRequest, "invalid_role"},
				{fmt.Errorf("%w: boom", role.ErrStore), http.StatusInternalServerError, "store_error"},
			}

			Convey("Then each error maps to its status", func() {
				for _, tc := range cases {
					deps.roleErr = tc.err
					w := do(mux, http.MethodPost, "/commands/setrole", `{"account":"alice","role":"x"}`)
					So(w.Code, ShouldEqual, tc.status)
					So(decode(w)["code"], ShouldEqual, tc.code)
				}
			})
		})

		Convey("When account info is requested", func() {
			deps.info["alice"] = []string{"Oper rank  : Network Admin"}

			w := do(mux, http.MethodGet, "/accounts/info?account=alice", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["lines"], ShouldResemble, []any{"Oper rank  : Network Admin"})

			Convey("And the account has no lines", func() {
				w := do(mux, http.MethodGet, "/accounts/info?account=bob", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["lines"], ShouldResemble, []any{})
			})

			Convey("And the account is missing", func() {
				w := do(mux, http.MethodGet, "/accounts/info", "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
