// Package model contains domain models passed between layers.
package model

// EventKind names a hook event variant.
type EventKind string

// Hook event kinds.
const (
	KindChannelMessage       EventKind = "channel_message"
	KindAccountDeleted       EventKind = "account_deleted"
	KindSessionAuthenticated EventKind = "session_authenticated"
	KindSessionLoggingOut    EventKind = "session_logging_out"
	KindSessionConnected     EventKind = "session_connected"
	KindNickChanged          EventKind = "nick_changed"
	KindSessionQuit          EventKind = "session_quit"
	KindBotAssignment        EventKind = "bot_assignment"
)

// TriggerEvent is a single hook invocation delivered by the host.
// Values are immutable and consumed once.
type TriggerEvent interface {
	Kind() EventKind
}

// ChannelMessage is a message sent to a channel.
type ChannelMessage struct {
	DeliveryID string
	Channel    string
	Sender     string // nickname of the sending session
	Text       string
}

// AccountDeleted fires when an account is dropped. Forced marks an
// operator-initiated drop.
type AccountDeleted struct {
	DeliveryID string
	Account    string
	Forced     bool
}

// SessionAuthenticated fires once a session has logged in to an account.
type SessionAuthenticated struct {
	DeliveryID string
	SessionID  string
	Account    string
	Nick       string // nickname the session holds at login time
}

// SessionLoggingOut fires before a session is detached from its account.
type SessionLoggingOut struct {
	DeliveryID string
	SessionID  string
}

// SessionConnected announces a new live session.
type SessionConnected struct {
	SessionID string
	Nick      string
}

// NickChanged announces a nickname change the host already applied.
type NickChanged struct {
	SessionID string
	Nick      string
}

// SessionQuit announces a session that left the network.
type SessionQuit struct {
	SessionID string
}

// BotAssignment assigns (or unassigns) a managed bot to a channel.
type BotAssignment struct {
	Channel  string
	Bot      string
	Assigned bool
}

func (ChannelMessage) Kind() EventKind       { return KindChannelMessage }
func (AccountDeleted) Kind() EventKind       { return KindAccountDeleted }
func (SessionAuthenticated) Kind() EventKind { return KindSessionAuthenticated }
func (SessionLoggingOut) Kind() EventKind    { return KindSessionLoggingOut }
func (SessionConnected) Kind() EventKind     { return KindSessionConnected }
func (NickChanged) Kind() EventKind          { return KindNickChanged }
func (SessionQuit) Kind() EventKind          { return KindSessionQuit }
func (BotAssignment) Kind() EventKind        { return KindBotAssignment }

// DeliveryID returns the host-supplied idempotency key of e, if any.
func DeliveryID(e TriggerEvent) string {
	switch ev := e.(type) {
	case ChannelMessage:
		return ev.DeliveryID
	case AccountDeleted:
		return ev.DeliveryID
	case SessionAuthenticated:
		return ev.DeliveryID
	case SessionLoggingOut:
		return ev.DeliveryID
	default:
		return ""
	}
}
