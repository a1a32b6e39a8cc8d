// models/event.go
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Event types emitted by the browser tracker. The set is open; unknown types are stored as-is.
const (
	EventTypePageView    = "page_view"
	EventTypeInteraction = "interaction"
	EventTypePageExit    = "page_exit"
	EventTypeHeartbeat   = "heartbeat"
	EventTypeCustom      = "custom_event"
)

// ISOLayout matches JavaScript's Date.prototype.toISOString output.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// Event is one tracked occurrence. Envelope fields are typed; every other key the
// client sent lives in Extra and is written back verbatim. An envelope key whose value
// could not be decoded (or only lossily, like a fractional timestamp) is also kept in
// Extra, and that verbatim copy is what gets written back.
type Event struct {
	Type            string
	VisitorID       string
	SessionID       string
	Timestamp       int64 // client clock, ms since epoch
	ServerTimestamp time.Time
	EventID         string

	URL       string
	Path      string
	Referrer  string
	Title     string
	UserAgent string
	Language  string

	TimeSpent      *float64 // ms
	MaxScrollDepth *float64

	Extra map[string]json.RawMessage
}

// Time returns the client timestamp as a UTC time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// Stamp records server-side receipt metadata, replacing anything the client claimed.
func (e *Event) Stamp(eventID string, receivedAt time.Time) {
	e.EventID = eventID
	e.ServerTimestamp = receivedAt.UTC()
	delete(e.Extra, "eventId")
	delete(e.Extra, "serverTimestamp")
}

// ExtraString returns a string-valued extension field, or "" when absent or not a string.
func (e Event) ExtraString(key string) string {
	var s string
	if raw, ok := e.Extra[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// ExtraNumber returns a numeric extension field.
func (e Event) ExtraNumber(key string) (float64, bool) {
	raw, ok := e.Extra[key]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

// ExtraObject returns a nested object extension field (e.g. "interaction").
func (e Event) ExtraObject(key string) map[string]any {
	raw, ok := e.Extra[key]
	if !ok {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

// VisitorKey identifies the visitor for counting: the JSON encoding of visitorId as sent,
// so 7 and "7" stay distinct. An absent id is "".
func (e Event) VisitorKey() string {
	return e.idKey(e.VisitorID, "visitorId")
}

// SessionKey is VisitorKey for sessionId.
func (e Event) SessionKey() string {
	return e.idKey(e.SessionID, "sessionId")
}

// VisitorLabel is visitorId for display: the string value, or the raw JSON of any
// other non-null value.
func (e Event) VisitorLabel() string {
	return e.idLabel(e.VisitorID, "visitorId")
}

func (e Event) SessionLabel() string {
	return e.idLabel(e.SessionID, "sessionId")
}

func (e Event) idKey(typed, key string) string {
	if typed != "" {
		b, _ := json.Marshal(typed)
		return string(b)
	}
	return string(e.Extra[key])
}

func (e Event) idLabel(typed, key string) string {
	if typed != "" {
		return typed
	}
	raw, ok := e.Extra[key]
	if !ok || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// SetExtra stores value under key as an extension field.
func (e *Event) SetExtra(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if e.Extra == nil {
		e.Extra = make(map[string]json.RawMessage)
	}
	e.Extra[key] = raw
	return nil
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Event{}
	for key, value := range raw {
		if e.setKnown(key, value) {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]json.RawMessage)
		}
		e.Extra[key] = value
	}
	return nil
}

// setKnown decodes an envelope field. A value of the wrong JSON type is rejected so the
// caller keeps it in Extra untouched; so is a fractional timestamp, after its whole
// milliseconds are recorded.
func (e *Event) setKnown(key string, value json.RawMessage) bool {
	if string(value) == "null" {
		return false
	}

	switch key {
	case "type":
		return decodeString(value, &e.Type)
	case "visitorId":
		return decodeString(value, &e.VisitorID)
	case "sessionId":
		return decodeString(value, &e.SessionID)
	case "eventId":
		return decodeString(value, &e.EventID)
	case "url":
		return decodeString(value, &e.URL)
	case "path":
		return decodeString(value, &e.Path)
	case "referrer":
		return decodeString(value, &e.Referrer)
	case "title":
		return decodeString(value, &e.Title)
	case "userAgent":
		return decodeString(value, &e.UserAgent)
	case "language":
		return decodeString(value, &e.Language)
	case "timestamp":
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			return false
		}
		e.Timestamp = int64(f)
		return f == math.Trunc(f)
	case "serverTimestamp":
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return false
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return false
		}
		e.ServerTimestamp = t.UTC()
		return true
	case "timeSpent":
		return decodeNumber(value, &e.TimeSpent)
	case "maxScrollDepth":
		return decodeNumber(value, &e.MaxScrollDepth)
	}
	return false
}

// decodeString leaves empty strings in Extra so `"referrer": ""` survives a round trip.
func decodeString(value json.RawMessage, dst *string) bool {
	var s string
	if err := json.Unmarshal(value, &s); err != nil || s == "" {
		return false
	}
	*dst = s
	return true
}

func decodeNumber(value json.RawMessage, dst **float64) bool {
	var f float64
	if err := json.Unmarshal(value, &f); err != nil {
		return false
	}
	*dst = &f
	return true
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+16)
	for key, value := range e.Extra {
		out[key] = value
	}

	// set never replaces a verbatim copy held in Extra.
	set := func(key string, value any) {
		if _, kept := e.Extra[key]; !kept {
			out[key] = value
		}
	}
	setString := func(key, value string) {
		if value != "" {
			set(key, value)
		}
	}

	set("type", e.Type)
	set("visitorId", e.VisitorID)
	set("sessionId", e.SessionID)
	set("timestamp", e.Timestamp)

	setString("eventId", e.EventID)
	setString("url", e.URL)
	setString("path", e.Path)
	setString("referrer", e.Referrer)
	setString("title", e.Title)
	setString("userAgent", e.UserAgent)
	setString("language", e.Language)

	if !e.ServerTimestamp.IsZero() {
		set("serverTimestamp", e.ServerTimestamp.UTC().Format(ISOLayout))
	}
	if e.TimeSpent != nil {
		set("timeSpent", *e.TimeSpent)
	}
	if e.MaxScrollDepth != nil {
		set("maxScrollDepth", *e.MaxScrollDepth)
	}

	return json.Marshal(out)
}
