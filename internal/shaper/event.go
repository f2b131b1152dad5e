// Package shaper turns gateway-forwarded Feishu events into workflow records.
//
// The gateway wraps every Feishu event in an envelope:
//
//	{"type": "event", "event_type": "im.message.receive_v1", "timestamp": 1700000000000, "payload": {...}}
//
// where payload is the original Feishu v2 body with "header" and "event"
// sections. Shape filters envelopes by event type and optionally lifts the
// interesting message fields to the top level.
package shaper

// Event is a decoded JSON object of arbitrary depth.
// Accessors never fail: a missing or mistyped key yields the zero value.
type Event map[string]any

// Lookup returns the raw value stored under key and whether the key exists.
func (e Event) Lookup(key string) (any, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e[key]
	return v, ok
}

// Map returns the nested object under key, or an empty Event when the key is
// missing, null, or not an object.
func (e Event) Map(key string) Event {
	if m, ok := e.asMap(key); ok {
		return m
	}
	return Event{}
}

// String returns the string under key, or "" when the key is missing or not a string.
func (e Event) String(key string) string {
	v, _ := e.Lookup(key)
	s, _ := v.(string)
	return s
}

func (e Event) asMap(key string) (Event, bool) {
	v, ok := e.Lookup(key)
	if !ok {
		return nil, false
	}
	switch m := v.(type) {
	case Event:
		return m, true
	case map[string]any:
		return Event(m), true
	default:
		return nil, false
	}
}
