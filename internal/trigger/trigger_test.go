package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/feishu-trigger/internal/shaper"
)

// fakeHost serves parameters from a map.
type fakeHost struct {
	params  map[string]any
	err     error
	wrapped int
}

func (h *fakeHost) NodeParameter(name string) (any, error) {
	if h.err != nil {
		return nil, h.err
	}
	v, ok := h.params[name]
	if !ok {
		return nil, ErrUnknownParameter
	}
	return v, nil
}

func (h *fakeHost) ReturnJSONArray(records ...shaper.Event) []Item {
	h.wrapped++
	items := make([]Item, 0, len(records))
	for _, r := range records {
		items = append(items, Item{JSON: r})
	}
	return items
}

func messageBody() shaper.Event {
	return shaper.Event{
		"type":       "event",
		"event_type": EventTypeMessageReceive,
		"timestamp":  float64(1700000000000),
		"payload": shaper.Event{
			"header": shaper.Event{"event_id": "e1"},
			"event": shaper.Event{
				"sender":  shaper.Event{"sender_id": "u1"},
				"message": shaper.Event{"message_id": "m1", "chat_id": "c1"},
			},
		},
	}
}

func TestWebhook_Flattened(t *testing.T) {
	host := &fakeHost{params: map[string]any{ParamEventType: "all", ParamSimplify: true}}

	resp, err := New().Webhook(context.Background(), messageBody(), host)

	require.NoError(t, err)
	assert.False(t, resp.NoWebhookResponse)
	require.Len(t, resp.WorkflowData, 1)
	require.Len(t, resp.WorkflowData[0], 1)
	assert.Equal(t, 1, resp.Items())
	assert.Equal(t, 1, host.wrapped)

	item := resp.WorkflowData[0][0].JSON
	assert.Equal(t, "e1", item["event_id"])
	assert.Equal(t, "u1", item["sender_id"])
	assert.Equal(t, "m1", item["message_id"])
}

func TestWebhook_Passthrough(t *testing.T) {
	body := messageBody()
	host := &fakeHost{params: map[string]any{ParamEventType: EventTypeMessageReceive, ParamSimplify: false}}

	resp, kind, err := New().WebhookOutcome(context.Background(), body, host)

	require.NoError(t, err)
	assert.Equal(t, shaper.Passthrough, kind)
	require.Equal(t, 1, resp.Items())
	assert.Equal(t, body, resp.WorkflowData[0][0].JSON)
}

func TestWebhook_Suppressed(t *testing.T) {
	host := &fakeHost{params: map[string]any{ParamEventType: EventTypeCardAction, ParamSimplify: true}}

	resp, kind, err := New().WebhookOutcome(context.Background(), messageBody(), host)

	require.NoError(t, err)
	assert.Equal(t, shaper.Suppressed, kind)
	assert.True(t, resp.NoWebhookResponse)
	assert.Empty(t, resp.WorkflowData)
	assert.Equal(t, 0, resp.Items())
	assert.Equal(t, 0, host.wrapped, "nothing is wrapped for a suppressed event")
}

func TestWebhook_FreeFormFilter(t *testing.T) {
	body := shaper.Event{"event_type": "im.chat.member.bot.added_v1"}
	host := &fakeHost{params: map[string]any{ParamEventType: "im.chat.member.bot.added_v1", ParamSimplify: false}}

	resp, err := New().Webhook(context.Background(), body, host)

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Items())
}

func TestWebhook_CoercesParameterValues(t *testing.T) {
	host := &fakeHost{params: map[string]any{ParamEventType: "all", ParamSimplify: "false"}}

	_, kind, err := New().WebhookOutcome(context.Background(), messageBody(), host)

	require.NoError(t, err)
	assert.Equal(t, shaper.Passthrough, kind)
}

func TestWebhook_ParameterErrorsPropagate(t *testing.T) {
	hostErr := errors.New("parameter store unavailable")

	tests := []struct {
		name    string
		host    *fakeHost
		wantErr error
	}{
		{
			name:    "host error",
			host:    &fakeHost{err: hostErr},
			wantErr: hostErr,
		},
		{
			name:    "missing simplify",
			host:    &fakeHost{params: map[string]any{ParamEventType: "all"}},
			wantErr: ErrUnknownParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := New().Webhook(context.Background(), messageBody(), tt.host)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWebhook_UncoercibleParameter(t *testing.T) {
	host := &fakeHost{params: map[string]any{ParamEventType: "all", ParamSimplify: "sometimes"}}

	_, err := New().Webhook(context.Background(), messageBody(), host)

	require.Error(t, err)
	assert.Contains(t, err.Error(), ParamSimplify)
}

func TestWebhook_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Webhook(ctx, messageBody(), &fakeHost{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDescription(t *testing.T) {
	d := New().Description()

	assert.Equal(t, "newbieFeishuTrigger", d.Name)
	require.Len(t, d.Webhooks, 1)
	assert.Equal(t, "POST", d.Webhooks[0].HTTPMethod)
	assert.Equal(t, ResponseModeOnReceived, d.Webhooks[0].ResponseMode)

	path, ok := d.Default(ParamPath)
	assert.True(t, ok)
	assert.Equal(t, "feishu-webhook", path)

	eventType, ok := d.Default(ParamEventType)
	assert.True(t, ok)
	assert.Equal(t, "all", eventType)

	simplify, ok := d.Default(ParamSimplify)
	assert.True(t, ok)
	assert.Equal(t, true, simplify)

	_, ok = d.Default("nope")
	assert.False(t, ok)
}

func TestDescription_EventTypeOptions(t *testing.T) {
	var values []string
	for _, p := range Description().Properties {
		if p.Name != ParamEventType {
			continue
		}
		for _, o := range p.Options {
			values = append(values, o.Value)
		}
	}
	assert.Equal(t, []string{"all", EventTypeMessageReceive, EventTypeCardAction}, values)
}
