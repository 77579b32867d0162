// Package text holds byte-bounded strings and chat formatting helpers.
package text

import (
	"strings"
	"unicode/utf8"
)

// Formatting control bytes understood by chat clients.
const (
	Bold          = '\x02'
	Color         = '\x03'
	HexColor      = '\x04'
	Reset         = '\x0F'
	Monospace     = '\x11'
	Reverse       = '\x16'
	Italic        = '\x1D'
	Strikethrough = '\x1E'
	Underline     = '\x1F'
)

// Bounded is a string known to fit in a byte limit.
type Bounded struct {
	value     string
	limit     int
	truncated bool
}

// Bound returns s cut to at most limit bytes. The cut never splits a
// UTF-8 sequence, so the result may be shorter than limit. A limit <= 0
// yields an empty value.
func Bound(s string, limit int) Bounded {
	if limit <= 0 {
		return Bounded{limit: 0, truncated: s != ""}
	}
	if len(s) <= limit {
		return Bounded{value: s, limit: limit}
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return Bounded{value: s[:cut], limit: limit, truncated: true}
}

// String returns the bounded value.
func (b Bounded) String() string { return b.value }

// Limit returns the byte limit b was built with.
func (b Bounded) Limit() int { return b.limit }

// Truncated reports whether Bound dropped bytes.
func (b Bounded) Truncated() bool { return b.truncated }

// Len returns the length of the value in bytes.
func (b Bounded) Len() int { return len(b.value) }

// StripFormatting removes formatting control codes, including the digit
// arguments of colour codes. StripFormatting(StripFormatting(s)) equals
// StripFormatting(s) for every s.
func StripFormatting(s string) string {
	if strings.IndexFunc(s, isFormatting) < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		switch s[i] {
		case Color:
			i = skipColor(s, i+1, isDigit, 2)
		case HexColor:
			i = skipColor(s, i+1, isHex, 6)
		case Bold, Reset, Monospace, Reverse, Italic, Strikethrough, Underline:
			i++
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

// SanitizeLine drops bytes that would split or terminate an outbound line.
func SanitizeLine(s string) string {
	if !strings.ContainsAny(s, "\r\n\x00") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', 0:
			return -1
		}
		return r
	}, s)
}

// skipColor consumes "fg[,bg]" after a colour code starting at i. The
// comma is consumed only when a background digit follows it.
func skipColor(s string, i int, digit func(byte) bool, width int) int {
	n := span(s, i, digit, width)
	if n == 0 {
		return i
	}
	i += n
	if i+1 < len(s) && s[i] == ',' {
		if bg := span(s, i+1, digit, width); bg > 0 {
			i += 1 + bg
		}
	}
	return i
}

func span(s string, i int, digit func(byte) bool, width int) int {
	n := 0
	for n < width && i+n < len(s) && digit(s[i+n]) {
		n++
	}
	return n
}

func isFormatting(r rune) bool {
	switch r {
	case Bold, Color, HexColor, Reset, Monospace, Reverse, Italic, Strikethrough, Underline:
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
