package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/mailbridge/internal/api"
	"github.com/teemow/mailbridge/internal/config"
	"github.com/teemow/mailbridge/internal/gmail"
	"github.com/teemow/mailbridge/internal/instrumentation"
	"github.com/teemow/mailbridge/internal/logging"
	"github.com/teemow/mailbridge/internal/server"
)

// serveFlags holds the serve command flags. They override the file and
// environment only when set explicitly.
type serveFlags struct {
	httpAddr         string
	gmailEndpoint    string
	fetchConcurrency int
	corsOrigins      string
	metricsEnabled   bool
	metricsAddr      string
}

func newServeCmd() *cobra.Command {
	var flags *serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mailbridge HTTP API",
		Long: `Start the mailbridge HTTP API.

Every /email endpoint expects a Google OAuth access token in the request body
(accessToken or oauth_token), the oauth_token query parameter, or an
Authorization: Bearer header.

Health probes are served on the API listener (/healthz, /readyz). Prometheus
metrics are served on a separate listener (default :9090).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	flags = bindServeFlags(cmd)

	return cmd
}

// bindServeFlags registers the serve flags on cmd.
func bindServeFlags(cmd *cobra.Command) *serveFlags {
	f := &serveFlags{}
	fs := cmd.Flags()
	fs.StringVar(&f.httpAddr, "http-addr", ":8080", "HTTP listen address (env: MAILBRIDGE_HTTP_ADDR)")
	fs.StringVar(&f.gmailEndpoint, "gmail-endpoint", "", "Override the Gmail API base URL (env: GMAIL_API_ENDPOINT)")
	fs.IntVar(&f.fetchConcurrency, "fetch-concurrency", 8, "Concurrent message fetches per listing (env: GMAIL_FETCH_CONCURRENCY)")
	fs.StringVar(&f.corsOrigins, "cors-origins", "", "Comma separated browser origins allowed to call the API (env: CORS_ALLOWED_ORIGINS)")
	fs.BoolVar(&f.metricsEnabled, "metrics", true, "Serve Prometheus metrics on a separate listener (env: METRICS_ENABLED)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics listen address (env: METRICS_ADDR)")

	return f
}

// apply copies explicitly set flags onto cfg.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("http-addr") {
		cfg.HTTP.Addr = f.httpAddr
	}
	if changed("gmail-endpoint") {
		cfg.Gmail.Endpoint = f.gmailEndpoint
	}
	if changed("fetch-concurrency") {
		cfg.Gmail.FetchConcurrency = f.fetchConcurrency
	}
	if changed("cors-origins") {
		cfg.HTTP.CORSAllowedOrigins = config.SplitList(f.corsOrigins)
	}
	if changed("metrics") {
		cfg.Metrics.Enabled = f.metricsEnabled
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewLogger(os.Stderr, cfg.Log.Format, cfg.Log.Debug)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.GmailEndpoint = cfg.Gmail.Endpoint

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		// ctx is already cancelled here; flush with a fresh deadline.
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.Enabled() && provider.MetricsHandler() != nil {
		metricsServer, err = startMetricsServer(cfg.Metrics.Addr, provider)
		if err != nil {
			return err
		}
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
	}

	clientOpts := []gmail.ClientOption{gmail.WithFetchConcurrency(cfg.Gmail.FetchConcurrency)}
	if cfg.Gmail.Endpoint != "" {
		clientOpts = append(clientOpts, gmail.WithEndpoint(cfg.Gmail.Endpoint))
	}
	serverContext := server.NewServerContext(ctx, clientOpts...)
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
	}
	serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))

	health := server.NewHealthChecker(serverContext, version)
	httpServer := server.NewHTTPServer("api", cfg.HTTP.Addr, api.NewRouter(api.Options{
		ServerContext:      serverContext,
		Health:             health,
		Logger:             logger,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.HTTP.MaxBodyBytes,
		BatchConcurrency:   cfg.Gmail.FetchConcurrency,
	}))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Start(nil)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("api server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping servers")
	}

	// Readiness reports not-ready for the rest of the shutdown.
	health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", logging.Err(err))
		}
	}
	if err := serverContext.Shutdown(); err != nil {
		logger.Error("server context shutdown failed", logging.Err(err))
	}

	return runErr
}

// startMetricsServer starts the metrics listener and waits until it is bound.
func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	ready := make(chan struct{})
	startErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startErr <- err
		}
		close(startErr)
	}()

	select {
	case <-ready:
		return metricsServer, nil
	case err := <-startErr:
		if err == nil {
			return nil, errors.New("metrics server stopped before it was ready")
		}
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}
