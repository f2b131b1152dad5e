// Package nats implements the messaging interfaces on a core NATS connection.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/telhawk-systems/feishu-trigger/internal/messaging"
	"github.com/telhawk-systems/feishu-trigger/internal/middleware"
)

var _ messaging.Client = (*Client)(nil)

// Config configures the connection.
type Config struct {
	URL  string
	Name string
	// MaxReconnects of -1 reconnects forever.
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns a Config for a local server that reconnects forever.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "feishu-trigger",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Client is a messaging.Client over one NATS connection.
type Client struct {
	conn   *nats.Conn
	logger *slog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewClient connects to cfg.URL.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	return &Client{conn: conn, logger: logger}, nil
}

func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	return c.PublishMsg(ctx, &messaging.Message{Subject: subject, Data: data})
}

func (c *Client) PublishMsg(ctx context.Context, msg *messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.conn.PublishMsg(toNats(msg))
}

// Request waits for the first reply, bounded by timeout and ctx.
func (c *Client) Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*messaging.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, err
	}
	return fromNats(resp), nil
}

func (c *Client) Subscribe(subject string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	return c.subscribe(subject, "", handler)
}

func (c *Client) QueueSubscribe(subject, queue string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	return c.subscribe(subject, queue, handler)
}

// subscribe registers handler. Each delivery gets a context carrying the
// request id header so handler logs correlate with the originating webhook.
func (c *Client) subscribe(subject, queue string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	cb := func(m *nats.Msg) {
		msg := fromNats(m)
		ctx := context.Background()
		if reqID := msg.Header(messaging.HeaderRequestID); reqID != "" {
			ctx = middleware.WithRequestID(ctx, reqID)
		}
		if err := handler(ctx, msg); err != nil {
			c.logger.Error("message handler failed",
				slog.String("subject", m.Subject),
				slog.String("error", err.Error()),
			)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue == "" {
		sub, err = c.conn.Subscribe(subject, cb)
	} else {
		sub, err = c.conn.QueueSubscribe(subject, queue, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return subscription{sub}, nil
}

// Close drops every subscription and the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
	c.mu.Unlock()

	c.conn.Close()
	return nil
}

func (c *Client) Drain() error {
	return c.conn.Drain()
}

func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

type subscription struct {
	*nats.Subscription
}

func (s subscription) Subject() string {
	return s.Subscription.Subject
}

func toNats(msg *messaging.Message) *nats.Msg {
	m := nats.NewMsg(msg.Subject)
	m.Data = msg.Data
	m.Reply = msg.Reply
	if len(msg.Metadata) == 0 {
		m.Header = nil
		return m
	}
	for k, v := range msg.Metadata {
		m.Header.Set(k, v)
	}
	return m
}

// fromNats stamps the receive time; core NATS carries no publish time.
func fromNats(m *nats.Msg) *messaging.Message {
	msg := &messaging.Message{
		Subject:   m.Subject,
		Data:      m.Data,
		Reply:     m.Reply,
		Timestamp: time.Now(),
	}
	if len(m.Header) > 0 {
		msg.Metadata = make(map[string]string, len(m.Header))
		for k := range m.Header {
			msg.Metadata[k] = m.Header.Get(k)
		}
	}
	return msg
}
