package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

// AnomalyField is the key of the wrapper object used for bodies that are not JSON
const AnomalyField = "anomaly_payload"

// Anomaly wraps a body that could not be parsed as JSON
type Anomaly struct {
	Raw string `json:"anomaly_payload"`
}

// Normalize turns a raw body into a JSON value.
// A body holding exactly one JSON value is decoded (numbers keep their literal
// text as json.Number); anything else, including an empty body, is wrapped in
// an Anomaly carrying the bytes as lossy UTF-8. Normalize never fails.
func Normalize(body []byte) any {
	if value, err := Parse(body); err == nil {
		return value
	}
	return Anomaly{Raw: Lossy(body)}
}

// Parse decodes a body that must contain a single JSON value
func Parse(body []byte) (any, error) {
	// the decoder would silently replace invalid bytes inside strings
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("decoding payload: invalid UTF-8")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	// trailing data after the first value is not JSON
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decoding payload: unexpected data after JSON value")
	}
	return value, nil
}

// Lossy decodes b as UTF-8, replacing each invalid byte with U+FFFD
func Lossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b) + 8)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		// RuneError with size 1 marks an invalid byte
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}

// NormalizeHeaders converts a header set into a flat name to value map.
// Names are lower-cased; repeated headers are joined with ", " in arrival
// order. Values that are not valid UTF-8 are replaced by a placeholder
// stating their byte length.
func NormalizeHeaders(headers http.Header) map[string]string {
	normalized := make(map[string]string, len(headers))

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := strings.ToLower(name)
		for _, value := range headers[name] {
			text := HeaderValue(value)
			if existing, ok := normalized[key]; ok {
				text = existing + ", " + text
			}
			normalized[key] = text
		}
	}
	return normalized
}

// HeaderValue returns value unchanged when it is valid UTF-8 and a
// "<binary: N bytes>" placeholder otherwise
func HeaderValue(value string) string {
	if utf8.ValidString(value) {
		return value
	}
	return fmt.Sprintf("<binary: %d bytes>", len(value))
}
