package enrichment

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
)

// Document is a decoded lookup response. Nothing about its shape is
// assumed until ExtractRecord walks it.
type Document struct {
	root map[string]any
}

// Parse decodes body. Empty, malformed or non-object bodies yield a
// *ParseError carrying the decoder message.
func Parse(body []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, parseErrorf("unexpected end of JSON input")
		}
		return Document{}, newParseError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Document{}, parseErrorf("invalid character after top-level value")
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return Document{}, parseErrorf("response is not a JSON object")
	}
	return Document{root: obj}, nil
}

// ExtractRecord reads the first item of doc. A missing or empty item list
// is NotFound; a first item lacking title, channel title or view count is
// Incomplete.
func ExtractRecord(doc Document) Result {
	items, ok := doc.root["items"].([]any)
	if !ok || len(items) == 0 {
		return NotFound()
	}

	item, ok := items[0].(map[string]any)
	if !ok {
		return Incomplete()
	}

	title, ok := stringAt(item, "snippet", "title")
	if !ok {
		return Incomplete()
	}
	author, ok := stringAt(item, "snippet", "channelTitle")
	if !ok {
		return Incomplete()
	}
	views, ok := countAt(item, "statistics", "viewCount")
	if !ok {
		return Incomplete()
	}

	return Success(Video{Title: title, Author: author, Views: views})
}

// Evaluate maps a fetch outcome to a Result. A non-nil fetchErr wins over
// any body. The detail never quotes the request address.
func Evaluate(body []byte, fetchErr error) Result {
	if fetchErr != nil {
		var ue *url.Error
		if errors.As(fetchErr, &ue) && ue.Err != nil {
			return TransportFailure(ue.Err.Error())
		}
		return TransportFailure(fetchErr.Error())
	}
	doc, err := Parse(body)
	if err != nil {
		return ParseFailure(err.Error())
	}
	return ExtractRecord(doc)
}

func stringAt(item map[string]any, section, field string) (string, bool) {
	obj, ok := item[section].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := obj[field].(string)
	return s, ok
}

// countAt accepts the count as a decimal string or a JSON number.
func countAt(item map[string]any, section, field string) (string, bool) {
	obj, ok := item[section].(map[string]any)
	if !ok {
		return "", false
	}
	switch v := obj[field].(type) {
	case string:
		if _, err := strconv.ParseUint(v, 10, 64); err != nil {
			return "", false
		}
		return v, true
	case json.Number:
		if _, err := strconv.ParseUint(v.String(), 10, 64); err != nil {
			return "", false
		}
		return v.String(), true
	default:
		return "", false
	}
}
