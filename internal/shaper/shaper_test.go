package shaper

import (
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageEnvelope() Event {
	return Event{
		"type":       1,
		"event_type": "im.message.receive_v1",
		"timestamp":  "100",
		"payload": Event{
			"header": Event{"event_id": "e1"},
			"event": Event{
				"sender": Event{"sender_id": "u1"},
				"message": Event{
					"message_id":   "m1",
					"chat_id":      "c1",
					"chat_type":    "p2p",
					"message_type": "text",
					"content":      `{"text":"hi"}`,
					"create_time":  "99",
				},
			},
		},
	}
}

func TestShape_FlattensMessageEvent(t *testing.T) {
	body := messageEnvelope()

	out := Shape(body, AllEvents, true)

	require.Equal(t, Flattened, out.Kind)
	assert.Equal(t, Event{
		"type":         1,
		"event_type":   "im.message.receive_v1",
		"timestamp":    "100",
		"event_id":     "e1",
		"sender_id":    "u1",
		"message_id":   "m1",
		"chat_id":      "c1",
		"chat_type":    "p2p",
		"message_type": "text",
		"content":      `{"text":"hi"}`,
		"create_time":  "99",
		"raw_payload":  body["payload"],
	}, out.Record)

	// raw_payload is the input payload itself, not a copy.
	raw, ok := out.Record[FieldRawPayload].(Event)
	require.True(t, ok)
	raw["marker"] = true
	assert.Equal(t, true, body.Map("payload")["marker"])
}

func TestShape_FilterMismatchSuppresses(t *testing.T) {
	for _, simplify := range []bool{true, false} {
		out := Shape(messageEnvelope(), "card_action_trigger", simplify)
		assert.Equal(t, Suppressed, out.Kind)
		assert.Nil(t, out.Record)
		assert.False(t, out.Emits())
	}
}

func TestShape_FilterMatch(t *testing.T) {
	body := messageEnvelope()

	out := Shape(body, "im.message.receive_v1", false)
	assert.Equal(t, Passthrough, out.Kind)

	out = Shape(body, "im.message.receive_v1", true)
	assert.Equal(t, Flattened, out.Kind)
	assert.True(t, out.Emits())
}

func TestShape_FilterIsExactMatch(t *testing.T) {
	tests := []struct {
		name   string
		filter string
	}{
		{"prefix", "im.message"},
		{"case differs", "IM.MESSAGE.RECEIVE_V1"},
		{"trailing space", "im.message.receive_v1 "},
		{"empty filter", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Shape(messageEnvelope(), tt.filter, true)
			assert.Equal(t, Suppressed, out.Kind)
		})
	}
}

func TestShape_EmptyFilterMatchesMissingEventType(t *testing.T) {
	out := Shape(Event{"type": "event"}, "", false)
	assert.Equal(t, Passthrough, out.Kind)
}

func TestShape_PassthroughReturnsBodyUnchanged(t *testing.T) {
	body := messageEnvelope()
	before, err := json.Marshal(body)
	require.NoError(t, err)

	out := Shape(body, AllEvents, false)

	require.Equal(t, Passthrough, out.Kind)
	after, err := json.Marshal(out.Record)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))

	// The same map is handed back, not a copy.
	out.Record["marker"] = true
	assert.Equal(t, true, body["marker"])
}

func TestShape_MissingFields(t *testing.T) {
	out := Shape(Event{"event_type": "x"}, AllEvents, true)

	require.Equal(t, Flattened, out.Kind)
	assert.Equal(t, Event{
		"event_type":  "x",
		"raw_payload": Event{},
	}, out.Record)
	for _, field := range []string{
		FieldEventID, FieldSenderID, FieldMessageID, FieldChatID, FieldChatType,
		FieldMessageType, FieldContent, FieldCreateTime, FieldType, FieldTimestamp,
	} {
		_, ok := out.Record[field]
		assert.False(t, ok, "field %s should be absent", field)
	}
}

func TestShape_PayloadWithoutEventWrapper(t *testing.T) {
	body := Event{
		"event_type": "card_action_trigger",
		"payload": Event{
			"sender":  Event{"sender_id": "u2"},
			"message": Event{"message_id": "m2"},
		},
	}

	out := Shape(body, AllEvents, true)

	require.Equal(t, Flattened, out.Kind)
	assert.Equal(t, "u2", out.Record[FieldSenderID])
	assert.Equal(t, "m2", out.Record[FieldMessageID])
	assert.Equal(t, body["payload"], out.Record[FieldRawPayload])
}

func TestShape_EmptyEventFallsBackToPayload(t *testing.T) {
	tests := []struct {
		name  string
		event any
	}{
		{"null", nil},
		{"false", false},
		{"empty string", ""},
		{"zero", 0},
		{"zero float", 0.0},
		{"zero json number", json.Number("0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := Event{
				"event_type": "x",
				"payload": Event{
					"event":   tt.event,
					"message": Event{"message_id": "m"},
				},
			}

			out := Shape(body, AllEvents, true)

			require.Equal(t, Flattened, out.Kind)
			assert.Equal(t, "m", out.Record[FieldMessageID])
		})
	}
}

func TestShape_NonMapEventYieldsNoEventFields(t *testing.T) {
	for _, event := range []any{true, "text", 3, json.Number("1"), []any{}} {
		body := Event{
			"event_type": "x",
			"payload": Event{
				"event":   event,
				"message": Event{"message_id": "m"},
			},
		}

		out := Shape(body, AllEvents, true)

		assert.NotContains(t, out.Record, FieldMessageID, "event = %#v", event)
	}
}

func TestShape_MistypedIntermediates(t *testing.T) {
	tests := []struct {
		name string
		body Event
	}{
		{"payload is a string", Event{"event_type": "x", "payload": "oops"}},
		{"event is a number", Event{"event_type": "x", "payload": Event{"event": 3}}},
		{"message is a list", Event{"event_type": "x", "payload": Event{"event": Event{"message": []any{1}}}}},
		{"event_type is a number", Event{"event_type": 7}},
		{"null payload", Event{"event_type": "x", "payload": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				out := Shape(tt.body, AllEvents, true)
				assert.Equal(t, Flattened, out.Kind)
				assert.NotContains(t, out.Record, FieldMessageID)
				assert.Contains(t, out.Record, FieldRawPayload)
			})
		})
	}
}

func TestShape_NonStringEventTypeBecomesEmpty(t *testing.T) {
	out := Shape(Event{"event_type": 7}, AllEvents, true)
	assert.Equal(t, "", out.Record[FieldEventType])

	out = Shape(Event{"event_type": 7}, "7", true)
	assert.Equal(t, Suppressed, out.Kind)
}

func TestShape_NullLeafIsKept(t *testing.T) {
	body := Event{
		"event_type": "x",
		"payload":    Event{"header": Event{"event_id": nil}},
	}

	out := Shape(body, AllEvents, true)

	v, ok := out.Record[FieldEventID]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestShape_DecodedJSON(t *testing.T) {
	raw := `{
		"type": "event",
		"event_type": "im.message.receive_v1",
		"timestamp": 1700000000000,
		"payload": {
			"schema": "2.0",
			"header": {"event_id": "5e3702a84e847582be8db7fb012749bc", "event_type": "im.message.receive_v1"},
			"event": {
				"sender": {"sender_id": {"open_id": "ou_1", "user_id": "u_1"}, "sender_type": "user"},
				"message": {"message_id": "om_1", "chat_id": "oc_1", "chat_type": "group", "message_type": "text", "content": "{\"text\":\"hello\"}", "create_time": "1609073151345"}
			}
		}
	}`
	var body Event
	require.NoError(t, json.Unmarshal([]byte(raw), &body))

	out := Shape(body, "im.message.receive_v1", true)

	require.Equal(t, Flattened, out.Kind)
	assert.Equal(t, "event", out.Record[FieldType])
	assert.Equal(t, float64(1700000000000), out.Record[FieldTimestamp])
	assert.Equal(t, "5e3702a84e847582be8db7fb012749bc", out.Record[FieldEventID])
	assert.Equal(t, map[string]any{"open_id": "ou_1", "user_id": "u_1"}, out.Record[FieldSenderID])
	assert.Equal(t, "oc_1", out.Record[FieldChatID])
	assert.Equal(t, "group", out.Record[FieldChatType])

	rawPayload, ok := out.Record[FieldRawPayload].(Event)
	require.True(t, ok)
	assert.Equal(t, "2.0", rawPayload["schema"])
}

func TestShape_DoesNotMutateInput(t *testing.T) {
	body := messageEnvelope()
	before, err := json.Marshal(body)
	require.NoError(t, err)

	_ = Shape(body, AllEvents, true)
	_ = Shape(body, "im.message.receive_v1", false)
	_ = Shape(body, "other", true)

	after, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func randomEnvelope(f *gofakeit.Faker) Event {
	body := Event{
		"type":       f.RandomString([]string{"event", "card_action"}),
		"event_type": f.RandomString([]string{"im.message.receive_v1", "card_action_trigger", "im.chat.member.bot.added_v1"}),
		"timestamp":  f.Int64(),
	}
	if f.Bool() {
		return body
	}
	message := Event{
		"message_id":   f.UUID(),
		"chat_id":      f.UUID(),
		"chat_type":    f.RandomString([]string{"p2p", "group"}),
		"message_type": "text",
		"content":      f.Sentence(5),
	}
	event := Event{
		"sender":  Event{"sender_id": f.Username()},
		"message": message,
	}
	payload := Event{"header": Event{"event_id": f.UUID()}}
	if f.Bool() {
		payload["event"] = event
	} else {
		payload["sender"] = event["sender"]
		payload["message"] = message
	}
	body["payload"] = payload
	return body
}

func TestShape_Properties(t *testing.T) {
	f := gofakeit.New(42)
	filters := []string{AllEvents, "im.message.receive_v1", "card_action_trigger", f.Word()}

	for i := 0; i < 200; i++ {
		body := randomEnvelope(f)
		filter := filters[i%len(filters)]
		simplify := f.Bool()

		out := Shape(body, filter, simplify)

		if filter == AllEvents {
			assert.NotEqual(t, Suppressed, out.Kind, "the all filter never suppresses")
		}
		matches := filter == AllEvents || body.String(FieldEventType) == filter
		switch {
		case !matches:
			assert.Equal(t, Suppressed, out.Kind)
		case simplify:
			assert.Equal(t, Flattened, out.Kind)
			assert.Equal(t, body.String(FieldEventType), out.Record[FieldEventType])
		default:
			assert.Equal(t, Passthrough, out.Kind)
		}

		again := Shape(body, filter, simplify)
		assert.Equal(t, out, again, "shaping is idempotent")
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "suppressed", Suppressed.String())
	assert.Equal(t, "passthrough", Passthrough.String())
	assert.Equal(t, "flattened", Flattened.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
