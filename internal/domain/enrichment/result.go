// Package enrichment turns links posted in managed channels into video
// summaries and relays account deletions to the accounts backend.
package enrichment

// Kind names the outcome of a single lookup.
type Kind int

// Lookup outcomes.
const (
	kindNone Kind = iota
	KindSuccess
	KindNotFound
	KindIncomplete
	KindTransportError
	KindParseError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNotFound:
		return "not_found"
	case KindIncomplete:
		return "incomplete"
	case KindTransportError:
		return "transport_error"
	case KindParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Video holds the fields rendered for a successful lookup.
type Video struct {
	Title  string
	Author string
	Views  string
}

// Result is exactly one lookup outcome. Use the constructors; the zero
// value is not a valid Result.
type Result struct {
	kind   Kind
	video  Video
	detail string
}

// Success builds a successful result.
func Success(v Video) Result { return Result{kind: KindSuccess, video: v} }

// NotFound builds a result for a document without items.
func NotFound() Result { return Result{kind: KindNotFound} }

// Incomplete builds a result for an item missing required fields.
func Incomplete() Result { return Result{kind: KindIncomplete} }

// TransportFailure builds a result for a failed fetch.
func TransportFailure(detail string) Result {
	return Result{kind: KindTransportError, detail: detail}
}

// ParseFailure builds a result for an unreadable document.
func ParseFailure(detail string) Result {
	return Result{kind: KindParseError, detail: detail}
}

// Kind returns the outcome.
func (r Result) Kind() Kind { return r.kind }

// Video returns the rendered fields and whether r is a success.
func (r Result) Video() (Video, bool) { return r.video, r.kind == KindSuccess }

// Detail returns the failure cause for transport and parse failures.
func (r Result) Detail() string { return r.detail }
