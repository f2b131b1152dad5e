// Package messaging is the broker abstraction workflow items travel over.
// The webhook host publishes each item; workflow engines, and the tail
// command, subscribe to them.
package messaging

import (
	"context"
	"time"
)

// Message is one broker message. Metadata maps to message headers.
type Message struct {
	Subject   string
	Data      []byte
	Reply     string
	Metadata  map[string]string
	Timestamp time.Time
}

// Header returns the metadata value for key, or "".
func (m *Message) Header(key string) string {
	if m == nil || m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}

// MessageHandler handles a delivered message. A returned error is logged by
// the client; it does not stop the subscription.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription is an active subscription.
type Subscription interface {
	Unsubscribe() error
	Subject() string
	IsValid() bool
}

// Publisher sends messages.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	// PublishMsg sends msg including its Metadata as headers.
	PublishMsg(ctx context.Context, msg *Message) error
	// Request publishes data and waits up to timeout for one reply.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*Message, error)
	Close() error
}

// Subscriber receives messages.
type Subscriber interface {
	// Subscribe delivers every message on subject to handler.
	Subscribe(subject string, handler MessageHandler) (Subscription, error)
	// QueueSubscribe delivers each message to one member of the queue group.
	QueueSubscribe(subject, queue string, handler MessageHandler) (Subscription, error)
	Close() error
}

// Client is a broker connection that can both publish and subscribe.
type Client interface {
	Publisher
	Subscriber
	// Drain flushes pending publishes and lets handlers finish before closing.
	Drain() error
	IsConnected() bool
}
