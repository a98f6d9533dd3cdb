package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrRoute     = "route"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrReason    = "reason"
	attrDomain    = "domain"
)

// Metrics provides methods for recording observability metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	httpInFlight        metric.Int64UpDownCounter

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// Payload metrics
	decodeErrorsTotal   metric.Int64Counter
	fetchFailuresTotal  metric.Int64Counter
	extractedAttachments metric.Int64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.httpInFlight, err = meter.Int64UpDownCounter(
		"http_requests_in_flight",
		metric.WithDescription("Number of HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_in_flight gauge: %w", err)
	}

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.decodeErrorsTotal, err = meter.Int64Counter(
		"mime_decode_errors_total",
		metric.WithDescription("Total number of message parts whose data could not be decoded"),
		metric.WithUnit("{part}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mime_decode_errors_total counter: %w", err)
	}

	m.fetchFailuresTotal, err = meter.Int64Counter(
		"message_fetch_failures_total",
		metric.WithDescription("Total number of messages that could not be fetched inside a listing"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message_fetch_failures_total counter: %w", err)
	}

	m.extractedAttachments, err = meter.Int64Histogram(
		"mime_extracted_attachments",
		metric.WithDescription("Number of attachment descriptors extracted per message"),
		metric.WithUnit("{attachment}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mime_extracted_attachments histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request. route is the router pattern
// (for example /email/messages/{id}); path is the concrete request path and
// is only attached when detailed labels are enabled.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrRoute, RouteLabel(route)),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}
	if m.detailedLabels && path != "" {
		attrs = append(attrs, attribute.String(attrPath, path))
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementInFlight marks the start of a request.
func (m *Metrics) IncrementInFlight(ctx context.Context) {
	if m == nil || m.httpInFlight == nil {
		return
	}
	m.httpInFlight.Add(ctx, 1)
}

// DecrementInFlight marks the end of a request.
func (m *Metrics) DecrementInFlight(ctx context.Context) {
	if m == nil || m.httpInFlight == nil {
		return
	}
	m.httpInFlight.Add(ctx, -1)
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (gmail)
//   - operation: Operation type (list_messages, get_message, send_message, etc.)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordDecodeError counts parts that failed to decode while serving operation.
func (m *Metrics) RecordDecodeError(ctx context.Context, operation string, parts int) {
	if m == nil || m.decodeErrorsTotal == nil || parts <= 0 {
		return
	}

	m.decodeErrorsTotal.Add(ctx, int64(parts), metric.WithAttributes(
		attribute.String(attrOperation, operation),
	))
}

// RecordFetchFailure counts a message that could not be fetched while
// building a listing. reason is a status class such as "not_found".
func (m *Metrics) RecordFetchFailure(ctx context.Context, operation, reason string) {
	if m == nil || m.fetchFailuresTotal == nil {
		return
	}

	m.fetchFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrReason, reason),
	))
}

// RecordExtractedAttachments records how many attachments a message carried.
// The sender domain is only attached when detailed labels are enabled.
func (m *Metrics) RecordExtractedAttachments(ctx context.Context, count int, sender string) {
	if m == nil || m.extractedAttachments == nil {
		return
	}

	var attrs []attribute.KeyValue
	if m.detailedLabels && sender != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(sender)))
	}

	m.extractedAttachments.Record(ctx, int64(count), metric.WithAttributes(attrs...))
}
