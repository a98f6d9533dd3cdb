package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// OperationRecord captures one mutating API operation for the audit trail.
//
// # Privacy Considerations
//
// ResourceIDs identify messages in a user's mailbox. They are only logged
// when the AuditLogger is configured with IncludeResourceIDs; otherwise only
// their count is written.
type OperationRecord struct {
	// Operation is one of the Operation* constants
	Operation string

	// Request details
	Method    string
	Route     string
	RequestID string

	// Target messages
	ResourceIDs []string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewOperationRecord creates an OperationRecord with timing started.
// Call Complete when the operation finishes.
func NewOperationRecord(operation string) *OperationRecord {
	return &OperationRecord{
		Operation: operation,
		StartTime: time.Now(),
	}
}

// WithRequest sets the HTTP method, route pattern and request id.
func (r *OperationRecord) WithRequest(method, route, requestID string) *OperationRecord {
	r.Method = method
	r.Route = route
	r.RequestID = requestID
	return r
}

// WithResources sets the message ids the operation targets.
func (r *OperationRecord) WithResources(ids ...string) *OperationRecord {
	r.ResourceIDs = append(r.ResourceIDs, ids...)
	return r
}

// WithSpanContext copies trace and span ids from the current span.
func (r *OperationRecord) WithSpanContext(ctx context.Context) *OperationRecord {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		r.TraceID = sc.TraceID().String()
		r.SpanID = sc.SpanID().String()
	}
	return r
}

// Complete marks the operation as finished and records its duration.
func (r *OperationRecord) Complete(err error) *OperationRecord {
	r.Duration = time.Since(r.StartTime)
	r.Success = err == nil
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Status returns "success" or "error" based on the Success field.
func (r *OperationRecord) Status() string {
	if r.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the record. Resource ids are only
// included when includeIDs is set.
func (r *OperationRecord) LogAttrs(includeIDs bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("operation", r.Operation),
		slog.Int("resource_count", len(r.ResourceIDs)),
		slog.Duration("duration", r.Duration),
		slog.Bool("success", r.Success),
	}

	if r.Method != "" {
		attrs = append(attrs, slog.String("method", r.Method))
	}
	if r.Route != "" {
		attrs = append(attrs, slog.String("route", r.Route))
	}
	if r.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", r.RequestID))
	}
	if includeIDs && len(r.ResourceIDs) > 0 {
		attrs = append(attrs, slog.Any("resource_ids", r.ResourceIDs))
	}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", r.SpanID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}

	return attrs
}

// AuditLogger writes OperationRecords to a slog.Logger.
// A nil *AuditLogger is valid and logs nothing.
type AuditLogger struct {
	logger     *slog.Logger
	includeIDs bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that omits resource ids.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includeIDs: config.IncludeResourceIDs,
		enabled:    config.Enabled,
	}
}

// LogOperation writes one audit record. Failed operations are logged at
// warn level.
func (al *AuditLogger) LogOperation(ctx context.Context, r *OperationRecord) {
	if al == nil || !al.enabled || r == nil {
		return
	}

	level := slog.LevelInfo
	msg := "operation_executed"
	if !r.Success {
		level = slog.LevelWarn
		msg = "operation_failed"
	}

	al.logger.LogAttrs(ctx, level, msg, r.LogAttrs(al.includeIDs)...)
}
