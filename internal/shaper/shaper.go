package shaper

import (
	"encoding/json"
	"math"
)

// AllEvents is the filter value that matches every event type.
const AllEvents = "all"

// Kind identifies which of the three shapes an Outcome has.
type Kind int

const (
	// Suppressed means the event did not match the filter; no item is produced.
	Suppressed Kind = iota
	// Passthrough means the body is emitted unchanged.
	Passthrough
	// Flattened means selected fields were lifted into a flat record.
	Flattened
)

func (k Kind) String() string {
	switch k {
	case Suppressed:
		return "suppressed"
	case Passthrough:
		return "passthrough"
	case Flattened:
		return "flattened"
	default:
		return "unknown"
	}
}

// Outcome is the result of shaping one event. Record is nil when Kind is Suppressed.
type Outcome struct {
	Kind   Kind
	Record Event
}

// Emits reports whether the outcome produces a workflow item.
func (o Outcome) Emits() bool {
	return o.Kind != Suppressed
}

// Flattened record field names.
const (
	FieldType        = "type"
	FieldEventType   = "event_type"
	FieldTimestamp   = "timestamp"
	FieldEventID     = "event_id"
	FieldSenderID    = "sender_id"
	FieldMessageID   = "message_id"
	FieldChatID      = "chat_id"
	FieldChatType    = "chat_type"
	FieldMessageType = "message_type"
	FieldContent     = "content"
	FieldCreateTime  = "create_time"
	FieldRawPayload  = "raw_payload"
)

// messageFields are copied from payload.event.message under the same name.
var messageFields = []string{
	FieldMessageID,
	FieldChatID,
	FieldChatType,
	FieldMessageType,
	FieldContent,
	FieldCreateTime,
}

// Shape applies the event type filter and, when simplify is set, flattens
// the envelope. It does not mutate body and is safe for concurrent use.
func Shape(body Event, eventTypeFilter string, simplify bool) Outcome {
	eventType := body.String(FieldEventType)

	if eventTypeFilter != AllEvents && eventType != eventTypeFilter {
		return Outcome{Kind: Suppressed}
	}

	if !simplify {
		return Outcome{Kind: Passthrough, Record: body}
	}

	return Outcome{Kind: Flattened, Record: flatten(body, eventType)}
}

func flatten(body Event, eventType string) Event {
	payload := body.Map("payload")

	// Some payloads carry the event fields directly instead of under "event".
	event, ok := payload.asMap("event")
	if !ok {
		if v, _ := payload.Lookup("event"); isEmptyValue(v) {
			event = payload
		} else {
			event = Event{}
		}
	}

	header := payload.Map("header")
	sender := event.Map("sender")
	message := event.Map("message")

	out := Event{
		FieldEventType:  eventType,
		FieldRawPayload: payload,
	}
	copyField(out, FieldType, body, FieldType)
	copyField(out, FieldTimestamp, body, FieldTimestamp)
	copyField(out, FieldEventID, header, "event_id")
	copyField(out, FieldSenderID, sender, "sender_id")
	for _, name := range messageFields {
		copyField(out, name, message, name)
	}
	return out
}

// isEmptyValue reports whether v is null, false, "" or a numeric zero.
func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && (f == 0 || math.IsNaN(f))
	case float64:
		return x == 0 || math.IsNaN(x)
	case float32:
		return x == 0 || math.IsNaN(float64(x))
	case int:
		return x == 0
	case int64:
		return x == 0
	case int32:
		return x == 0
	case uint:
		return x == 0
	case uint64:
		return x == 0
	}
	return false
}

func copyField(dst Event, dstKey string, src Event, srcKey string) {
	if v, ok := src.Lookup(srcKey); ok {
		dst[dstKey] = v
	}
}
