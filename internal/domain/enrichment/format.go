package enrichment

import (
	"fmt"

	"github.com/okian/servhooks/internal/domain/text"
)

// DefaultMessageLimit is the outbound line ceiling of the host.
const DefaultMessageLimit = 512

// Banner prefixes every broadcast summary.
const Banner = "\x02\x0301,00You\x0300,04Tube\x0F\x02"

// Scope says who receives a rendered message.
type Scope int

// Message scopes.
const (
	// Private messages go only to the user who posted the link.
	Private Scope = iota
	// Broadcast messages go to the whole channel.
	Broadcast
)

func (s Scope) String() string {
	if s == Broadcast {
		return "broadcast"
	}
	return "private"
}

// Message is one rendered outbound line.
type Message struct {
	Scope Scope
	Text  text.Bounded
}

// Format renders r as a single line of at most limit bytes. Only a
// success is ever broadcast. The boolean is false for a zero Result.
func Format(r Result, limit int) (Message, bool) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	var (
		scope = Private
		line  string
	)
	switch r.Kind() {
	case KindSuccess:
		v, _ := r.Video()
		scope = Broadcast
		line = fmt.Sprintf("%s \"%s\" by %s with %s views.", Banner,
			text.SanitizeLine(v.Title), text.SanitizeLine(v.Author), text.SanitizeLine(v.Views))
	case KindNotFound:
		line = "No metadata found for the video."
	case KindIncomplete:
		line = "Incomplete metadata found for the video."
	case KindTransportError:
		line = "Failed to fetch YouTube metadata: " + text.SanitizeLine(r.Detail())
	case KindParseError:
		line = "Error: Failed to parse YouTube API response: " + text.SanitizeLine(r.Detail())
	default:
		return Message{}, false
	}

	return Message{Scope: scope, Text: text.Bound(line, limit)}, true
}
