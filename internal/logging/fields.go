package logging

import "log/slog"

// Common field names for consistent logging.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldIP        = "ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldTrigger   = "trigger"
	FieldEventType = "event_type"
	FieldEventID   = "event_id"
	FieldOutcome   = "outcome"
	FieldItems     = "items"
	FieldSubject   = "subject"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Trigger returns a slog attribute for the trigger name.
func Trigger(name string) slog.Attr {
	return slog.String(FieldTrigger, name)
}

// EventType returns a slog attribute for a Feishu event type.
func EventType(eventType string) slog.Attr {
	return slog.String(FieldEventType, eventType)
}

// EventID returns a slog attribute for a Feishu event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// Outcome returns a slog attribute for a shaping outcome.
func Outcome(kind string) slog.Attr {
	return slog.String(FieldOutcome, kind)
}

// Items returns a slog attribute for a workflow item count.
func Items(n int) slog.Attr {
	return slog.Int(FieldItems, n)
}

// Subject returns a slog attribute for a message subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}
