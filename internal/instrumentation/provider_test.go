package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName: "test-service",
		Enabled:     false,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.MetricsHandler() != nil {
		t.Error("expected no metrics handler when disabled")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected tracer to be non-nil (no-op)")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantHandler bool
		wantErr     string
	}{
		{
			name:        "prometheus",
			config:      Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone},
			wantHandler: true,
		},
		{
			name:   "stdout",
			config: Config{MetricsExporter: ExporterStdout, TracingExporter: ExporterStdout},
		},
		{
			name:    "invalid metrics exporter",
			config:  Config{MetricsExporter: "graphite", TracingExporter: ExporterNone},
			wantErr: "invalid metrics exporter",
		},
		{
			name:    "invalid tracing exporter",
			config:  Config{MetricsExporter: ExporterPrometheus, TracingExporter: "zipkin"},
			wantErr: "invalid tracing exporter",
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tt.config.ServiceName = "test-service"
			tt.config.ServiceVersion = "1.0.0"
			tt.config.Enabled = true

			provider, err := NewProvider(ctx, tt.config)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			defer func() { _ = provider.Shutdown(ctx) }()

			if !provider.Enabled() {
				t.Error("expected provider to be enabled")
			}
			if provider.Metrics() == nil {
				t.Error("expected metrics to be non-nil")
			}
			if got := provider.MetricsHandler() != nil; got != tt.wantHandler {
				t.Errorf("MetricsHandler present = %v, want %v", got, tt.wantHandler)
			}
		})
	}
}

func TestProvider_MetricsPath(t *testing.T) {
	p := &Provider{}
	if p.MetricsPath() != "/metrics" {
		t.Errorf("default path = %q", p.MetricsPath())
	}
	p.config.PrometheusEndpoint = "/internal/metrics"
	if p.MetricsPath() != "/internal/metrics" {
		t.Errorf("configured path = %q", p.MetricsPath())
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource(context.Background(), Config{
		ServiceName:       "mailbridge",
		ServiceVersion:    "1.2.3",
		ServiceInstanceID: "bridge-0",
		Environment:       "staging",
		GmailEndpoint:     "http://gmail-emulator:8080/",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := map[attribute.Key]string{
		semconv.ServiceNameKey:           "mailbridge",
		semconv.ServiceVersionKey:        "1.2.3",
		semconv.ServiceInstanceIDKey:     "bridge-0",
		semconv.DeploymentEnvironmentKey: "staging",
		AttrGmailEndpoint:                "http://gmail-emulator:8080/",
	}
	set := res.Set()
	for key, value := range want {
		got, ok := set.Value(key)
		if !ok {
			t.Errorf("missing resource attribute %s", key)
			continue
		}
		if got.AsString() != value {
			t.Errorf("%s = %q, want %q", key, got.AsString(), value)
		}
	}
}

func TestNewResource_OmitsUnsetAttributes(t *testing.T) {
	res, err := newResource(context.Background(), Config{ServiceName: "mailbridge", ServiceInstanceID: "bridge-0"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, key := range []attribute.Key{semconv.DeploymentEnvironmentKey, AttrGmailEndpoint, semconv.K8SNamespaceNameKey} {
		if _, ok := res.Set().Value(key); ok {
			t.Errorf("unexpected resource attribute %s", key)
		}
	}
}

func TestProvider_MetricsHandlerServesOwnRegistry(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	provider.Metrics().RecordDecodeError(ctx, "full_email", 2)

	srv := httptest.NewServer(provider.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	for _, want := range []string{"mime_decode_errors", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}
