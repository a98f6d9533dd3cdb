package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithService(ServiceGmail).
		WithOperation("get_message").
		WithRoute("/email/messages/{id}").
		WithMessage("18c2f0a1b2", "18c2f0a1aa").
		WithAttachment("ANGjdJ8").
		WithMessageCount(1).
		Build()

	if len(attrs) != 7 {
		t.Fatalf("expected 7 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	expected := map[string]interface{}{
		SpanAttrService:      "gmail",
		SpanAttrOperation:    "get_message",
		SpanAttrRoute:        "/email/messages/{id}",
		SpanAttrMessageID:    "18c2f0a1b2",
		SpanAttrThreadID:     "18c2f0a1aa",
		SpanAttrAttachmentID: "ANGjdJ8",
		SpanAttrMessageCount: int64(1),
	}
	for key, want := range expected {
		if attrMap[key] != want {
			t.Errorf("expected %s=%v, got %v", key, want, attrMap[key])
		}
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithOperation("list_messages").
		WithRoute("").
		WithMessage("", "").
		WithAttachment("").
		Build()

	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only operation), got %d", len(attrs))
	}
}

func newTestTracingProvider(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return ctx
}

func TestStartSpan(t *testing.T) {
	ctx := newTestTracingProvider(t)

	spanCtx, span := StartSpan(ctx, "test-span")
	defer span.End()

	if spanCtx == nil {
		t.Error("expected context to be non-nil")
	}
	if span == nil {
		t.Error("expected span to be non-nil")
	}
}

func TestStartGoogleAPISpan(t *testing.T) {
	ctx := newTestTracingProvider(t)

	spanCtx, span := StartGoogleAPISpan(ctx, ServiceGmail, "list_messages")
	defer span.End()

	if spanCtx == nil {
		t.Error("expected context to be non-nil")
	}
	if span == nil {
		t.Error("expected span to be non-nil")
	}
}

func TestExtractionSpan(t *testing.T) {
	ctx := newTestTracingProvider(t)

	_, span := StartExtractionSpan(ctx, "msg-1")
	if span == nil {
		t.Fatal("expected span to be non-nil")
	}

	// Should not panic with or without decode errors
	EndExtractionSpan(span, 2, 1)

	_, span = StartExtractionSpan(ctx, "msg-2")
	EndExtractionSpan(span, 0, 0)
}

func TestSetSpanStatus(t *testing.T) {
	ctx := newTestTracingProvider(t)

	_, span := StartSpan(ctx, "test-span")

	// Should not panic
	SetSpanError(span, errors.New("upstream failure"))
	SetSpanError(span, nil)
	SetSpanSuccess(span)
	span.End()
}

func TestTraceIDs_NoSpan(t *testing.T) {
	ctx := context.Background()

	if id := GetTraceID(ctx); id != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", id)
	}
	if id := GetSpanID(ctx); id != "" {
		t.Errorf("expected empty span ID for context without span, got %q", id)
	}
}
