package enrichment

import (
	"regexp"
	"strings"

	"github.com/okian/servhooks/internal/domain/text"
)

// ResourceIDLen is the fixed length of a video id.
const ResourceIDLen = 11

// ResourceID is a validated video id.
type ResourceID string

var (
	linkPattern = regexp.MustCompile(`https?://(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)([A-Za-z0-9_-]{11})`)
	idPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractResourceID strips formatting from raw and returns the id of the
// first recognised video link.
func ExtractResourceID(raw string) (ResourceID, bool) {
	m := linkPattern.FindStringSubmatch(text.StripFormatting(raw))
	if m == nil {
		return "", false
	}
	return ValidResourceID(CleanID(m[1]))
}

// CleanID cuts s at the first '&' or '?' and caps it at ResourceIDLen bytes.
func CleanID(s string) string {
	if i := strings.IndexAny(s, "&?"); i >= 0 {
		s = s[:i]
	}
	if len(s) > ResourceIDLen {
		s = s[:ResourceIDLen]
	}
	return s
}

// ValidResourceID checks s against the id format.
func ValidResourceID(s string) (ResourceID, bool) {
	if !idPattern.MatchString(s) {
		return "", false
	}
	return ResourceID(s), true
}
