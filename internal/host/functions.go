// Package host provides the workflow-host side of a trigger invocation:
// node parameters read from the trigger configuration and item wrapping.
package host

import (
	"fmt"

	"github.com/telhawk-systems/feishu-trigger/internal/config"
	"github.com/telhawk-systems/feishu-trigger/internal/shaper"
	"github.com/telhawk-systems/feishu-trigger/internal/trigger"
)

// Functions serves node parameters for one configured trigger.
// It is immutable and may be shared between requests.
type Functions struct {
	cfg         config.TriggerConfig
	description trigger.NodeDescription
}

var _ trigger.Host = (*Functions)(nil)

// NewFunctions returns the host functions for a trigger configuration.
func NewFunctions(cfg config.TriggerConfig, description trigger.NodeDescription) *Functions {
	return &Functions{cfg: cfg, description: description}
}

// Name returns the configured trigger name.
func (f *Functions) Name() string {
	return f.cfg.Name
}

// Path returns the normalized webhook path.
func (f *Functions) Path() string {
	return config.NormalizePath(f.cfg.Path)
}

// NodeParameter returns the configured value of name, or the descriptor
// default when the trigger leaves it unset.
func (f *Functions) NodeParameter(name string) (any, error) {
	switch name {
	case trigger.ParamPath:
		return f.Path(), nil
	case trigger.ParamEventType:
		if f.cfg.EventType != nil {
			return *f.cfg.EventType, nil
		}
	case trigger.ParamSimplify:
		if f.cfg.Simplify != nil {
			return *f.cfg.Simplify, nil
		}
	}

	if v, ok := f.description.Default(name); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %q", trigger.ErrUnknownParameter, name)
}

// ReturnJSONArray wraps each record as a workflow item.
func (f *Functions) ReturnJSONArray(records ...shaper.Event) []trigger.Item {
	items := make([]trigger.Item, 0, len(records))
	for _, r := range records {
		items = append(items, trigger.Item{JSON: r})
	}
	return items
}
