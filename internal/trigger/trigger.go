// Package trigger implements the Feishu webhook trigger node on top of a
// workflow host. The host owns routing, transport and workflow execution;
// the node only decides which item, if any, a request produces.
package trigger

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cast"
	"github.com/telhawk-systems/feishu-trigger/internal/shaper"
)

// ErrUnknownParameter is returned by hosts asked for a parameter the node
// does not declare.
var ErrUnknownParameter = errors.New("unknown node parameter")

// Item is one workflow item handed to the next node.
type Item struct {
	JSON shaper.Event `json:"json"`
}

// Host is the capability surface a workflow host exposes to the node.
type Host interface {
	// NodeParameter returns the configured value of a node parameter.
	NodeParameter(name string) (any, error)
	// ReturnJSONArray wraps records as workflow items.
	ReturnJSONArray(records ...shaper.Event) []Item
}

// WebhookResponse tells the host what to do with the request.
type WebhookResponse struct {
	// WorkflowData holds one batch of items per node output.
	WorkflowData [][]Item
	// NoWebhookResponse means no workflow run is started for this request.
	NoWebhookResponse bool
}

// Items returns the total number of items across all outputs.
func (r *WebhookResponse) Items() int {
	n := 0
	for _, batch := range r.WorkflowData {
		n += len(batch)
	}
	return n
}

// Trigger is the webhook trigger node.
type Trigger struct{}

// New returns a Trigger.
func New() *Trigger {
	return &Trigger{}
}

// Description returns the node descriptor.
func (t *Trigger) Description() NodeDescription {
	return Description()
}

// Webhook handles one inbound request body. Parameter errors from the host
// are returned unchanged apart from naming the parameter.
func (t *Trigger) Webhook(ctx context.Context, body shaper.Event, host Host) (*WebhookResponse, error) {
	resp, _, err := t.shape(ctx, body, host)
	return resp, err
}

// WebhookOutcome is Webhook that also reports the shaping outcome kind.
func (t *Trigger) WebhookOutcome(ctx context.Context, body shaper.Event, host Host) (*WebhookResponse, shaper.Kind, error) {
	return t.shape(ctx, body, host)
}

func (t *Trigger) shape(ctx context.Context, body shaper.Event, host Host) (*WebhookResponse, shaper.Kind, error) {
	if err := ctx.Err(); err != nil {
		return nil, shaper.Suppressed, err
	}

	filter, err := stringParameter(host, ParamEventType)
	if err != nil {
		return nil, shaper.Suppressed, err
	}
	simplify, err := boolParameter(host, ParamSimplify)
	if err != nil {
		return nil, shaper.Suppressed, err
	}

	out := shaper.Shape(body, filter, simplify)
	if !out.Emits() {
		return &WebhookResponse{NoWebhookResponse: true}, out.Kind, nil
	}

	return &WebhookResponse{
		WorkflowData: [][]Item{host.ReturnJSONArray(out.Record)},
	}, out.Kind, nil
}

func stringParameter(host Host, name string) (string, error) {
	v, err := host.NodeParameter(name)
	if err != nil {
		return "", fmt.Errorf("parameter %s: %w", name, err)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("parameter %s: %w", name, err)
	}
	return s, nil
}

func boolParameter(host Host, name string) (bool, error) {
	v, err := host.NodeParameter(name)
	if err != nil {
		return false, fmt.Errorf("parameter %s: %w", name, err)
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("parameter %s: %w", name, err)
	}
	return b, nil
}
