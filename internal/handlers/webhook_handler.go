package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/telhawk-systems/feishu-trigger/internal/config"
	"github.com/telhawk-systems/feishu-trigger/internal/dispatch"
	"github.com/telhawk-systems/feishu-trigger/internal/host"
	"github.com/telhawk-systems/feishu-trigger/internal/httputil"
	"github.com/telhawk-systems/feishu-trigger/internal/logging"
	"github.com/telhawk-systems/feishu-trigger/internal/metrics"
	"github.com/telhawk-systems/feishu-trigger/internal/middleware"
	"github.com/telhawk-systems/feishu-trigger/internal/ratelimit"
	"github.com/telhawk-systems/feishu-trigger/internal/shaper"
	"github.com/telhawk-systems/feishu-trigger/internal/trigger"
)

// Acknowledgement messages returned to the webhook caller.
const (
	MessageWorkflowStarted = "Workflow was started"
	MessageEventIgnored    = "Event ignored"
)

const defaultMaxBodyBytes = 1 << 20

type WebhookHandler struct {
	node         *trigger.Trigger
	triggers     map[string]*host.Functions
	limiter      ratelimit.RateLimiter
	dispatcher   dispatch.Dispatcher
	logger       *logging.Logger
	maxBodyBytes int64
}

// Option configures a WebhookHandler.
type Option func(*WebhookHandler)

// WithRateLimiter limits requests per trigger path.
func WithRateLimiter(l ratelimit.RateLimiter) Option {
	return func(h *WebhookHandler) { h.limiter = l }
}

// WithLogger sets the handler logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *WebhookHandler) { h.logger = l }
}

// WithMaxBodyBytes bounds the accepted request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(h *WebhookHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewWebhookHandler registers one webhook route per configured trigger.
func NewWebhookHandler(triggers []config.TriggerConfig, dispatcher dispatch.Dispatcher, opts ...Option) *WebhookHandler {
	node := trigger.New()
	description := node.Description()

	h := &WebhookHandler{
		node:         node,
		triggers:     make(map[string]*host.Functions, len(triggers)),
		limiter:      &ratelimit.NoOpRateLimiter{},
		dispatcher:   dispatcher,
		logger:       logging.Default(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, t := range triggers {
		fn := host.NewFunctions(t, description)
		h.triggers[fn.Path()] = fn
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Paths returns the registered webhook paths.
func (h *WebhookHandler) Paths() []string {
	paths := make([]string, 0, len(h.triggers))
	for p := range h.triggers {
		paths = append(paths, p)
	}
	return paths
}

// HandleWebhook serves POST /webhook/{path}. The caller is acknowledged as
// soon as the items are handed to the dispatcher.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	path := config.NormalizePath(chi.URLParam(r, "*"))

	fn, ok := h.triggers[path]
	if !ok {
		h.respondError(w, r, "", http.StatusNotFound, "The requested webhook is not registered")
		return
	}
	name := fn.Name()

	allowed, err := h.limiter.Allow(ctx, path)
	if err != nil {
		// Fail open when the limiter backend is unavailable.
		h.logger.WarnContext(ctx, "rate limit check failed", logging.Trigger(name), logging.Error(err))
	} else if !allowed {
		h.respondError(w, r, name, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	body, reqErr := h.readBody(w, r)
	if reqErr != nil {
		h.respondError(w, r, name, reqErr.status, reqErr.message)
		return
	}

	resp, kind, err := h.node.WebhookOutcome(ctx, body, fn)
	if err != nil {
		h.logger.ErrorContext(ctx, "trigger failed", logging.Trigger(name), logging.Error(err))
		h.respondError(w, r, name, http.StatusInternalServerError, "Trigger failed")
		return
	}
	metrics.OutcomesTotal.WithLabelValues(name, kind.String()).Inc()

	eventType := body.String(shaper.FieldEventType)
	logAttrs := []any{
		logging.Trigger(name),
		logging.EventType(eventType),
		logging.Outcome(kind.String()),
	}

	if resp.NoWebhookResponse {
		h.logger.DebugContext(ctx, "event filtered out", logAttrs...)
		h.respond(w, name, http.StatusOK, MessageEventIgnored)
		return
	}

	err = h.dispatcher.Dispatch(ctx, dispatch.Execution{
		Trigger:   name,
		RequestID: middleware.GetRequestID(ctx),
		EventType: eventType,
		Data:      resp.WorkflowData,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "dispatch failed", append(logAttrs, logging.Error(err))...)
		h.respondError(w, r, name, http.StatusServiceUnavailable, "Workflow could not be started")
		return
	}

	h.logger.InfoContext(ctx, "workflow started", append(logAttrs,
		logging.Items(resp.Items()),
		logging.Duration(time.Since(start).Milliseconds()),
	)...)
	h.respond(w, name, http.StatusOK, MessageWorkflowStarted)
}

type requestError struct {
	status  int
	message string
}

// readBody decodes the request body as a JSON object. An empty body is an
// empty object.
func (h *WebhookHandler) readBody(w http.ResponseWriter, r *http.Request) (shaper.Event, *requestError) {
	defer r.Body.Close()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &requestError{http.StatusRequestEntityTooLarge, "Request body too large"}
		}
		return nil, &requestError{http.StatusBadRequest, "Failed to read request body"}
	}
	metrics.WebhookBodyBytesTotal.Add(float64(len(raw)))

	body, err := shaper.Decode(raw)
	switch {
	case errors.Is(err, shaper.ErrTrailingData):
		return nil, &requestError{http.StatusBadRequest, "Request body must contain a single JSON object"}
	case errors.Is(err, shaper.ErrMalformed):
		return nil, &requestError{http.StatusBadRequest, "Request body is not valid JSON"}
	case err != nil:
		return nil, &requestError{http.StatusBadRequest, "Request body must be a JSON object"}
	}
	return body, nil
}

// Health reports liveness.
func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready reports whether the dispatcher can reach the workflow engine.
func (h *WebhookHandler) Ready(w http.ResponseWriter, r *http.Request) {
	broker := h.dispatcher.Healthy(r.Context())

	status := http.StatusOK
	state := "ready"
	if !broker.Connected {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	httputil.WriteJSON(w, status, map[string]interface{}{
		"status":   state,
		"triggers": len(h.triggers),
		"broker":   broker,
	})
}

func (h *WebhookHandler) respond(w http.ResponseWriter, name string, status int, message string) {
	metrics.WebhookRequestsTotal.WithLabelValues(name, strconv.Itoa(status)).Inc()
	httputil.WriteMessage(w, status, message)
}

func (h *WebhookHandler) respondError(w http.ResponseWriter, r *http.Request, name string, status int, message string) {
	metrics.WebhookRequestsTotal.WithLabelValues(name, strconv.Itoa(status)).Inc()
	h.logger.DebugContext(r.Context(), "webhook rejected",
		logging.Path(strings.TrimPrefix(r.URL.Path, "/")),
		logging.Status(status),
	)
	httputil.WriteError(w, status, message)
}
