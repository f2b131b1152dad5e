package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/telhawk-systems/feishu-trigger/internal/config"
	"github.com/telhawk-systems/feishu-trigger/internal/dispatch"
	"github.com/telhawk-systems/feishu-trigger/internal/handlers"
	"github.com/telhawk-systems/feishu-trigger/internal/logging"
	natsclient "github.com/telhawk-systems/feishu-trigger/internal/messaging/nats"
	"github.com/telhawk-systems/feishu-trigger/internal/ratelimit"
	"github.com/telhawk-systems/feishu-trigger/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the trigger webhooks",
	Long: `Starts the HTTP server that receives gateway events on
/webhook/<path> for every configured trigger and dispatches the resulting
workflow items.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default: server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("feishu-trigger"))
	logging.SetDefault(logger)

	slog.Info("Starting Feishu trigger",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
		slog.Int("triggers", len(cfg.Triggers)),
	)
	if cfgFile != "" {
		slog.Info("Loaded configuration", slog.String("config_path", cfgFile))
	}

	rateLimiter := newRateLimiter(cfg, logger)
	defer rateLimiter.Close()

	dispatcher, err := newDispatcher(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	handler := handlers.NewWebhookHandler(cfg.Triggers, dispatcher,
		handlers.WithRateLimiter(rateLimiter),
		handlers.WithLogger(logger),
		handlers.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)
	for _, p := range handler.Paths() {
		slog.Info("Registered trigger webhook", slog.String("route", server.WebhookPrefix+"/"+p))
	}

	srv := newHTTPServer(cfg.Server, server.NewRouter(handler))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Feishu trigger listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

func newHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// newRateLimiter returns the Redis limiter when enabled, falling back to no
// limiting if Redis cannot be reached.
func newRateLimiter(cfg *config.Config, logger *logging.Logger) ratelimit.RateLimiter {
	if !cfg.Redis.Enabled || !cfg.RateLimit.Enabled {
		if !cfg.Redis.Enabled {
			logger.Info("Redis disabled - rate limiting not available")
		}
		if !cfg.RateLimit.Enabled {
			logger.Info("Rate limiting disabled in configuration")
		}
		return &ratelimit.NoOpRateLimiter{}
	}

	limiter, err := ratelimit.NewRedisRateLimiter(cfg.Redis.URL, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if err != nil {
		logger.Warn("Failed to initialize Redis rate limiter, continuing without rate limiting",
			logging.Error(err),
		)
		return &ratelimit.NoOpRateLimiter{}
	}

	logger.Info("Rate limiting enabled",
		slog.Int("requests", cfg.RateLimit.Requests),
		slog.Duration("window", cfg.RateLimit.Window),
	)
	return limiter
}

// newDispatcher connects to NATS or PostgreSQL, whichever is enabled.
// Without either, workflow items are written to the log.
func newDispatcher(ctx context.Context, cfg *config.Config, logger *logging.Logger) (dispatch.Dispatcher, error) {
	switch {
	case cfg.NATS.Enabled:
		return newNATSDispatcher(cfg, logger)
	case cfg.Postgres.Enabled:
		return newPostgresDispatcher(ctx, cfg, logger)
	default:
		logger.Info("NATS and PostgreSQL disabled - workflow items will be logged")
		return dispatch.NewLogDispatcher(logger), nil
	}
}

func newNATSDispatcher(cfg *config.Config, logger *logging.Logger) (dispatch.Dispatcher, error) {
	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.Name = cfg.NATS.Name
	natsCfg.Timeout = cfg.NATS.Timeout
	natsCfg.Logger = logger.Logger

	client, err := natsclient.NewClient(natsCfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Dispatching workflow items to NATS",
		slog.String("url", cfg.NATS.URL),
		slog.String("subject_prefix", cfg.NATS.SubjectPrefix),
	)
	return dispatch.NewNATSDispatcher(client, cfg.NATS.SubjectPrefix), nil
}

func newPostgresDispatcher(ctx context.Context, cfg *config.Config, logger *logging.Logger) (dispatch.Dispatcher, error) {
	if cfg.Postgres.Migrate {
		logger.Info("Running database migrations")
		if err := dispatch.Migrate(cfg.Postgres.URL); err != nil {
			return nil, err
		}
		logger.Info("Database migrations completed")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	d, err := dispatch.NewPostgresDispatcher(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, err
	}

	logger.Info("Dispatching workflow items to PostgreSQL outbox")
	return d, nil
}
