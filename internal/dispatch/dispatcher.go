// Package dispatch hands workflow items produced by a trigger to the
// workflow engine.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/telhawk-systems/feishu-trigger/internal/logging"
	"github.com/telhawk-systems/feishu-trigger/internal/messaging"
	"github.com/telhawk-systems/feishu-trigger/internal/metrics"
	"github.com/telhawk-systems/feishu-trigger/internal/trigger"
)

// Execution is one workflow run requested by a trigger.
type Execution struct {
	Trigger   string
	RequestID string
	EventType string
	Data      [][]trigger.Item
}

// Dispatcher delivers executions to the workflow engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, exec Execution) error
	Healthy(ctx context.Context) messaging.HealthStatus
	Close() error
}

// Envelope is the JSON body of one dispatched workflow item.
type Envelope struct {
	Trigger    string       `json:"trigger"`
	RequestID  string       `json:"request_id,omitempty"`
	Output     int          `json:"output"`
	ReceivedAt time.Time    `json:"received_at"`
	Item       trigger.Item `json:"item"`
}

// NATSDispatcher publishes each item as its own message on the trigger's subject.
type NATSDispatcher struct {
	client messaging.Publisher
	prefix string
	now    func() time.Time
}

// NewNATSDispatcher returns a dispatcher publishing under prefix.
func NewNATSDispatcher(client messaging.Publisher, prefix string) *NATSDispatcher {
	return &NATSDispatcher{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (d *NATSDispatcher) Dispatch(ctx context.Context, exec Execution) error {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	subject := messaging.TriggerSubject(d.prefix, exec.Trigger)
	headers := map[string]string{
		messaging.HeaderTrigger: exec.Trigger,
	}
	if exec.RequestID != "" {
		headers[messaging.HeaderRequestID] = exec.RequestID
	}
	if exec.EventType != "" {
		headers[messaging.HeaderEventType] = exec.EventType
	}

	receivedAt := d.now().UTC()
	sent := 0
	for output, batch := range exec.Data {
		for _, item := range batch {
			data, err := json.Marshal(Envelope{
				Trigger:    exec.Trigger,
				RequestID:  exec.RequestID,
				Output:     output,
				ReceivedAt: receivedAt,
				Item:       item,
			})
			if err != nil {
				metrics.DispatchErrors.Inc()
				return fmt.Errorf("marshal workflow item: %w", err)
			}

			err = d.client.PublishMsg(ctx, &messaging.Message{
				Subject:  subject,
				Data:     data,
				Metadata: headers,
			})
			if err != nil {
				metrics.DispatchErrors.Inc()
				return fmt.Errorf("publish to %s: %w", subject, err)
			}
			sent++
		}
	}

	metrics.ItemsDispatched.WithLabelValues(exec.Trigger).Add(float64(sent))
	return nil
}

func (d *NATSDispatcher) Healthy(ctx context.Context) messaging.HealthStatus {
	checker, ok := d.client.(messaging.ConnectionChecker)
	if !ok {
		return messaging.HealthStatus{Connected: true}
	}
	return messaging.CheckClientHealth(ctx, checker)
}

func (d *NATSDispatcher) Close() error {
	return d.client.Close()
}

// LogDispatcher writes executions to the log. Used when no broker is configured.
type LogDispatcher struct {
	logger *logging.Logger
}

// NewLogDispatcher returns a dispatcher logging through logger.
func NewLogDispatcher(logger *logging.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, exec Execution) error {
	n := 0
	for _, batch := range exec.Data {
		for _, item := range batch {
			d.logger.InfoContext(ctx, "workflow item",
				logging.Trigger(exec.Trigger),
				logging.EventType(exec.EventType),
				slog.Any("item", item.JSON),
			)
			n++
		}
	}
	metrics.ItemsDispatched.WithLabelValues(exec.Trigger).Add(float64(n))
	return nil
}

func (d *LogDispatcher) Healthy(ctx context.Context) messaging.HealthStatus {
	return messaging.HealthStatus{Connected: true}
}

func (d *LogDispatcher) Close() error {
	return nil
}
