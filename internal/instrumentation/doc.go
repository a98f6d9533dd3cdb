// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the mailbridge HTTP service.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: requests by method, route pattern and status
//   - http_request_duration_seconds: request latency
//   - http_requests_in_flight: requests currently being served
//
// Google API:
//   - google_api_operations_total: Gmail calls by operation and status
//   - google_api_operation_duration_seconds: Gmail call latency
//
// Payload extraction:
//   - mime_decode_errors_total: parts whose body data failed to decode
//   - message_fetch_failures_total: messages dropped from a listing
//   - mime_extracted_attachments: attachment descriptors per message
//
// A nil *Metrics records nothing, so callers never need to check whether
// instrumentation is enabled.
//
// # Tracing
//
// Spans are created for inbound HTTP requests (via otelhttp), Gmail API calls
// (google.gmail.<operation>) and payload extraction (mime.extract).
//
// # Configuration
//
// DefaultConfig reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: mailbridge)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_IDS
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	client, err := gmail.NewClientWithToken(ctx, token, gmail.WithMetrics(provider.Metrics()))
package instrumentation
