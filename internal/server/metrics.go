package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teemow/mailbridge/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is the default address for the metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultMetricsWriteTimeout is the default write timeout for the metrics server.
	DefaultMetricsWriteTimeout = 10 * time.Second

	// DefaultMetricsIdleTimeout is the default idle timeout for the metrics server.
	DefaultMetricsIdleTimeout = 60 * time.Second
)

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Addr is the address to bind the metrics server to (e.g., ":9090").
	Addr string

	// InstrumentationProvider provides the Prometheus metrics handler.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves Prometheus metrics on a dedicated listener, away from
// the API that callers reach with their Gmail tokens.
type MetricsServer struct {
	*HTTPServer
}

// NewMetricsServer creates a metrics server. The provider must be enabled
// and use the Prometheus exporter.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}

	provider := config.InstrumentationProvider
	if provider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}
	if !provider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}

	handler := provider.MetricsHandler()
	if handler == nil {
		return nil, fmt.Errorf("instrumentation provider has no prometheus exporter")
	}

	r := chi.NewRouter()
	r.Method(http.MethodGet, provider.MetricsPath(), handler)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s := NewHTTPServer("metrics", config.Addr, r)
	s.SetTimeouts(DefaultMetricsWriteTimeout, DefaultMetricsIdleTimeout)

	return &MetricsServer{HTTPServer: s}, nil
}
