package trigger

// Parameter names declared by the node.
const (
	ParamPath      = "path"
	ParamEventType = "eventType"
	ParamSimplify  = "simplify"
)

// Well-known Feishu event types offered in the event type filter.
const (
	EventTypeMessageReceive = "im.message.receive_v1"
	EventTypeCardAction     = "card_action_trigger"
)

// Response modes a webhook can declare.
const (
	// ResponseModeOnReceived acknowledges the request as soon as it arrives,
	// without waiting for the workflow to finish.
	ResponseModeOnReceived = "onReceived"
)

// NodeDescription is the static descriptor a workflow host reads to render
// and register the node.
type NodeDescription struct {
	DisplayName string            `json:"displayName" yaml:"displayName"`
	Name        string            `json:"name" yaml:"name"`
	Icon        string            `json:"icon" yaml:"icon"`
	Group       []string          `json:"group" yaml:"group"`
	Version     int               `json:"version" yaml:"version"`
	Subtitle    string            `json:"subtitle" yaml:"subtitle"`
	Description string            `json:"description" yaml:"description"`
	Defaults    map[string]string `json:"defaults" yaml:"defaults"`
	Outputs     []string          `json:"outputs" yaml:"outputs"`
	Webhooks    []WebhookSpec     `json:"webhooks" yaml:"webhooks"`
	Properties  []Property        `json:"properties" yaml:"properties"`
}

// WebhookSpec declares an HTTP route the host registers for the node.
type WebhookSpec struct {
	Name         string `json:"name" yaml:"name"`
	HTTPMethod   string `json:"httpMethod" yaml:"httpMethod"`
	ResponseMode string `json:"responseMode" yaml:"responseMode"`
	Path         string `json:"path" yaml:"path"`
}

// Property is one configurable node parameter.
type Property struct {
	DisplayName string        `json:"displayName" yaml:"displayName"`
	Name        string        `json:"name" yaml:"name"`
	Type        string        `json:"type" yaml:"type"`
	Default     any           `json:"default" yaml:"default"`
	Placeholder string        `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool          `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []OptionValue `json:"options,omitempty" yaml:"options,omitempty"`
	Description string        `json:"description" yaml:"description"`
}

// OptionValue is a selectable value of an options property.
// Options are advisory: the trigger accepts any string at runtime.
type OptionValue struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Description returns the node descriptor.
func Description() NodeDescription {
	return NodeDescription{
		DisplayName: "Newbie Feishu Trigger",
		Name:        "newbieFeishuTrigger",
		Icon:        "file:newbie-feishu.svg",
		Group:       []string{"trigger"},
		Version:     1,
		Subtitle:    `={{$parameter["eventType"] || "all events"}}`,
		Description: "Triggers a workflow when a Feishu event is received from the newbie-feishu gateway",
		Defaults:    map[string]string{"name": "Feishu Event"},
		Outputs:     []string{"main"},
		Webhooks: []WebhookSpec{
			{
				Name:         "default",
				HTTPMethod:   "POST",
				ResponseMode: ResponseModeOnReceived,
				Path:         `={{$parameter["path"]}}`,
			},
		},
		Properties: []Property{
			{
				DisplayName: "Path",
				Name:        ParamPath,
				Type:        "string",
				Default:     "feishu-webhook",
				Placeholder: "feishu-webhook",
				Required:    true,
				Description: "The webhook path to listen on",
			},
			{
				DisplayName: "Event Type Filter",
				Name:        ParamEventType,
				Type:        "options",
				Default:     "all",
				Options: []OptionValue{
					{Name: "All Events", Value: "all"},
					{Name: "Message Received (im.message.receive_v1)", Value: EventTypeMessageReceive},
					{Name: "Card Action", Value: EventTypeCardAction},
				},
				Description: "Filter by specific event type, or receive all events",
			},
			{
				DisplayName: "Simplify Output",
				Name:        ParamSimplify,
				Type:        "boolean",
				Default:     true,
				Description: "Whether to extract key fields (sender, message, chat) into top-level properties",
			},
		},
	}
}

// Default returns the default value of the named property.
func (d NodeDescription) Default(name string) (any, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p.Default, true
		}
	}
	return nil, false
}
