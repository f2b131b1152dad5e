package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/telhawk-systems/feishu-trigger/internal/handlers"
	"github.com/telhawk-systems/feishu-trigger/internal/middleware"
)

// WebhookPrefix is the route prefix trigger paths are mounted under.
const WebhookPrefix = "/webhook"

// NewRouter constructs a chi router with webhook and health routes registered.
func NewRouter(h *handlers.WebhookHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	// Trigger webhooks; the configured path may contain slashes
	r.Post(WebhookPrefix+"/*", h.HandleWebhook)

	// Health endpoints
	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}
