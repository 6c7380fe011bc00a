package monitor

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// rejectReason says why a raw response body was not usable.
type rejectReason string

const (
	rejectHTML      rejectReason = "html"
	rejectMalformed rejectReason = "malformed"
	rejectNoMarkers rejectReason = "no-data-markers"
)

// payload is a parsed vendor response. Values stay raw until a caller
// asks for them because the same field can be a number in one endpoint
// generation and a string in another.
type payload map[string]json.RawMessage

// dataMarkerKeys are top-level fields that mark a payload as
// data-bearing even without a wrapper object or success flag.
var dataMarkerKeys = []string{
	"data", "datas", "deviceList", "plantList", "invList", "totalData",
	"pac", "power", "powerValue", "etoday", "eTotal",
}

// classify decides whether a raw body is a usable structured payload.
// The vendor serves its login and error pages as HTML with HTTP 200, so
// the status code is never consulted; this is the single gate that
// keeps cascade callers from treating an error page as a valid
// zero-data response.
func classify(body []byte) (payload, rejectReason) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, rejectMalformed
	}
	if trimmed[0] == '<' {
		return nil, rejectHTML
	}

	var p payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, rejectMalformed
	}
	// a bare JSON null unmarshals into a nil map without error
	if p == nil {
		return nil, rejectMalformed
	}

	// generation-specific success markers, any one is enough
	if _, ok := p["back"]; ok {
		return p, ""
	}
	if _, ok := p["obj"]; ok {
		return p, ""
	}
	if p.boolField("success") {
		return p, ""
	}
	for _, key := range dataMarkerKeys {
		if _, ok := p[key]; ok {
			return p, ""
		}
	}
	return nil, rejectNoMarkers
}

// container returns the data-bearing object of a payload, unwrapping
// the per-generation wrapper objects when present.
func (p payload) container() payload {
	for _, key := range []string{"back", "obj", "data"} {
		if inner, ok := p.object(key); ok {
			return inner
		}
	}
	return p
}

func (p payload) object(key string) (payload, bool) {
	raw, ok := p[key]
	if !ok {
		return nil, false
	}
	var inner payload
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, false
	}
	return inner, true
}

func (p payload) array(key string) []json.RawMessage {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// scalar returns the value under key as a float64, string or bool,
// or nil when absent or not a scalar.
func (p payload) scalar(key string) any {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	return decodeScalar(raw)
}

func decodeScalar(raw json.RawMessage) any {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return nil
}

// str returns the value under key as a string, tolerating the numeric
// IDs some generations use where others use strings.
func (p payload) str(key string) string {
	switch v := p.scalar(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (p payload) boolField(key string) bool {
	v, _ := p.scalar(key).(bool)
	return v
}
