// Package registry mirrors the host's live sessions and channel bot
// assignments from hook events.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/okian/servhooks/internal/domain/model"
	"github.com/okian/servhooks/pkg/metrics"
)

// Actuator applies identity changes on the host.
type Actuator interface {
	ForceRename(ctx context.Context, sessionID, nick string) error
	TerminateSession(ctx context.Context, sessionID, reason string) error
}

// Registry is safe for concurrent use. Nicknames and channel names are
// compared case-insensitively.
type Registry struct {
	actuator Actuator

	mu       sync.RWMutex
	sessions map[string]model.Session
	byNick   map[string]string // folded nick -> session id
	bots     map[string]string // folded channel -> bot nick
}

// New returns an empty registry that forwards renames and kills to actuator.
func New(actuator Actuator, opts ...Option) *Registry {
	r := &Registry{
		actuator: actuator,
		sessions: make(map[string]model.Session),
		byNick:   make(map[string]string),
		bots:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func fold(s string) string { return strings.ToLower(s) }

// Connect records a new session, replacing any previous record with the same id.
func (r *Registry) Connect(id, nick string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(model.Session{ID: id, Nick: nick})
}

// ChangeNick records a rename the host already applied.
func (r *Registry) ChangeNick(id, nick string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = model.Session{ID: id}
	}
	s.Nick = nick
	r.put(s)
}

// Authenticate binds a session to account, creating it if unseen.
func (r *Registry) Authenticate(id, nick, account string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || nick != "" {
		s.ID, s.Nick = id, nick
	}
	s.Account = account
	r.put(s)
}

// Logout unbinds a session from its account.
func (r *Registry) Logout(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Account = ""
		r.sessions[id] = s
	}
}

// DropAccount unbinds every session bound to account.
func (r *Registry) DropAccount(account string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.Account == account {
			s.Account = ""
			r.sessions[id] = s
		}
	}
}

// Quit forgets a session. Unknown ids are ignored.
func (r *Registry) Quit(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(id)
}

// Session returns the session with id.
func (r *Registry) Session(id string) (model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// FindByAccount returns a copy of the sessions bound to account, ordered by id.
func (r *Registry) FindByAccount(account string) []model.Session {
	if account == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Session
	for _, s := range r.sessions {
		if s.Account == account {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindByNick returns the session holding nick.
func (r *Registry) FindByNick(nick string) (model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byNick[fold(nick)]
	if !ok {
		return model.Session{}, false
	}
	return r.sessions[id], true
}

// CanonicalNick returns the nickname registered to account, which is the
// account name itself.
func (r *Registry) CanonicalNick(account string) (string, bool) {
	return account, account != ""
}

// Rename forces a new nickname through the host and mirrors it on
// success. Unknown sessions are ignored.
func (r *Registry) Rename(ctx context.Context, id, nick string) error {
	if _, ok := r.Session(id); !ok {
		return nil
	}
	if err := r.actuator.ForceRename(ctx, id, nick); err != nil {
		return fmt.Errorf("force rename %s: %w", id, err)
	}
	r.ChangeNick(id, nick)
	return nil
}

// Terminate disconnects a session through the host. Terminating a session
// that is already gone is a no-op.
func (r *Registry) Terminate(ctx context.Context, id, reason string) error {
	if _, ok := r.Session(id); !ok {
		return nil
	}
	if err := r.actuator.TerminateSession(ctx, id, reason); err != nil {
		return fmt.Errorf("terminate %s: %w", id, err)
	}
	r.Quit(id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// AssignBot records bot as the managed bot of channel. An empty bot
// unassigns it.
func (r *Registry) AssignBot(channel, bot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bot == "" {
		delete(r.bots, fold(channel))
		return
	}
	r.bots[fold(channel)] = bot
}

// ManagedBot returns the bot assigned to channel.
func (r *Registry) ManagedBot(channel string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bot, ok := r.bots[fold(channel)]
	return bot, ok
}

// put stores s and reindexes its nick. Callers hold mu.
func (r *Registry) put(s model.Session) {
	if old, ok := r.sessions[s.ID]; ok && r.byNick[fold(old.Nick)] == s.ID {
		delete(r.byNick, fold(old.Nick))
	}
	r.sessions[s.ID] = s
	if s.Nick != "" {
		r.byNick[fold(s.Nick)] = s.ID
	}
	metrics.UpdateLiveSessions(len(r.sessions))
}

// remove deletes id. Callers hold mu.
func (r *Registry) remove(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	if r.byNick[fold(s.Nick)] == id {
		delete(r.byNick, fold(s.Nick))
	}
	delete(r.sessions, id)
	metrics.UpdateLiveSessions(len(r.sessions))
}
