package messaging

import "strings"

// DefaultSubjectPrefix is the subject prefix workflow items are published under.
// Items of trigger "messages" go to workflow.trigger.messages.
const DefaultSubjectPrefix = "workflow.trigger"

// QueueWorkflowWorkers is the queue group workflow engines consume with.
const QueueWorkflowWorkers = "workflow-workers"

// Headers set on every dispatched workflow item.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderTrigger   = "X-Trigger"
	HeaderEventType = "X-Event-Type"
)

// TriggerSubject returns the subject for a trigger's workflow items.
// Characters NATS treats specially are replaced so a trigger name always
// yields exactly one subject token.
func TriggerSubject(prefix, triggerName string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + subjectToken(triggerName)
}

// AllTriggersSubject returns the wildcard subject matching every trigger.
func AllTriggersSubject(prefix string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + ".*"
}

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
