package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name used for spans created by mailbridge.
const TracerName = "github.com/teemow/mailbridge"

// Span attribute keys.
const (
	// SpanAttrService is the Google service name attribute.
	SpanAttrService = "google.service"

	// SpanAttrOperation is the operation type attribute.
	SpanAttrOperation = "google.operation"

	// SpanAttrRoute is the matched router pattern.
	SpanAttrRoute = "http.route"

	// SpanAttrMessageID is the Gmail message id.
	SpanAttrMessageID = "gmail.message_id"

	// SpanAttrThreadID is the Gmail thread id.
	SpanAttrThreadID = "gmail.thread_id"

	// SpanAttrAttachmentID is the Gmail attachment id.
	SpanAttrAttachmentID = "gmail.attachment_id"

	// SpanAttrMessageCount is the number of messages an operation touched.
	SpanAttrMessageCount = "gmail.message_count"

	// SpanAttrAttachmentCount is the number of attachments extracted.
	SpanAttrAttachmentCount = "mime.attachment_count"

	// SpanAttrDecodeErrors is the number of parts that failed to decode.
	SpanAttrDecodeErrors = "mime.decode_errors"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithService adds the Google service name attribute.
func (b *SpanAttributeBuilder) WithService(service string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrService, service))
	return b
}

// WithOperation adds the operation type attribute.
func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrOperation, operation))
	return b
}

// WithRoute adds the route pattern attribute.
func (b *SpanAttributeBuilder) WithRoute(route string) *SpanAttributeBuilder {
	if route != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrRoute, route))
	}
	return b
}

// WithMessage adds message and thread ids. Empty values are skipped.
func (b *SpanAttributeBuilder) WithMessage(messageID, threadID string) *SpanAttributeBuilder {
	if messageID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrMessageID, messageID))
	}
	if threadID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrThreadID, threadID))
	}
	return b
}

// WithAttachment adds the attachment id attribute.
func (b *SpanAttributeBuilder) WithAttachment(attachmentID string) *SpanAttributeBuilder {
	if attachmentID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrAttachmentID, attachmentID))
	}
	return b
}

// WithMessageCount adds the message count attribute.
func (b *SpanAttributeBuilder) WithMessageCount(n int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrMessageCount, n))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartExtractionSpan starts an internal span around payload extraction of
// one message.
func StartExtractionSpan(ctx context.Context, messageID string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "mime.extract",
		trace.WithAttributes(NewSpanAttributeBuilder().WithMessage(messageID, "").Build()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndExtractionSpan annotates an extraction span with its outcome and ends it.
// Decode errors do not mark the span as failed; the partial result is served.
func EndExtractionSpan(span trace.Span, attachments, decodeErrors int) {
	span.SetAttributes(
		attribute.Int(SpanAttrAttachmentCount, attachments),
		attribute.Int(SpanAttrDecodeErrors, decodeErrors),
	)
	if decodeErrors > 0 {
		span.AddEvent("partial_body")
	}
	span.End()
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}
