package messaging

import (
	"context"
	"time"
)

// HealthStatus represents the health state of a messaging connection.
type HealthStatus struct {
	// Connected indicates if the client is connected.
	Connected bool `json:"connected"`

	// Latency is the round-trip time for a health ping.
	Latency time.Duration `json:"latency_ms"`

	// Error contains any error message if unhealthy.
	Error string `json:"error,omitempty"`
}

// ConnectionChecker reports broker connectivity.
type ConnectionChecker interface {
	IsConnected() bool
}

// CheckClientHealth reports whether client is connected and, if it can
// make requests, how long a ping round trip takes. A ping without responders
// still counts as healthy: it proves the broker answered.
func CheckClientHealth(ctx context.Context, client ConnectionChecker) HealthStatus {
	status := HealthStatus{}

	if client == nil {
		status.Error = "client is nil"
		return status
	}

	status.Connected = client.IsConnected()
	if !status.Connected {
		status.Error = "not connected to message broker"
		return status
	}

	if p, ok := client.(Publisher); ok {
		start := time.Now()
		_, _ = p.Request(ctx, "_HEALTH.ping", []byte("ping"), 2*time.Second)
		status.Latency = time.Since(start)
	}

	return status
}
