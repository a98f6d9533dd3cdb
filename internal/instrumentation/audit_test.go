package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

const (
	testRoute     = "/email/messages/{id}/trash"
	testRequestID = "host/abc-000001"
	testMessageID = "18c2f0a1b2c3d4e5"
)

func attrMap(attrs []slog.Attr) map[string]slog.Value {
	m := make(map[string]slog.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

func TestOperationRecord_NewAndComplete(t *testing.T) {
	r := NewOperationRecord(OperationTrash)

	if r.Operation != OperationTrash {
		t.Errorf("Operation = %q, want %q", r.Operation, OperationTrash)
	}
	if r.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	r.Complete(nil)

	if !r.Success {
		t.Error("Success should be true")
	}
	if r.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if r.Error != "" {
		t.Errorf("Error should be empty, got %q", r.Error)
	}
	if r.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusSuccess)
	}
}

func TestOperationRecord_CompleteWithError(t *testing.T) {
	r := NewOperationRecord(OperationModify).Complete(errors.New("insufficient permissions"))

	if r.Success {
		t.Error("Success should be false")
	}
	if r.Error != "insufficient permissions" {
		t.Errorf("Error = %q, want %q", r.Error, "insufficient permissions")
	}
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
}

func TestOperationRecord_MethodChaining(t *testing.T) {
	r := NewOperationRecord(OperationBatchTrash).
		WithRequest("POST", "/email/messages/batch-trash", testRequestID).
		WithResources("a", "b").
		WithResources("c").
		WithSpanContext(context.Background()).
		Complete(nil)

	if r.Method != "POST" || r.Route != "/email/messages/batch-trash" || r.RequestID != testRequestID {
		t.Errorf("request fields not set: %+v", r)
	}
	if len(r.ResourceIDs) != 3 {
		t.Errorf("expected 3 resource ids, got %d", len(r.ResourceIDs))
	}
	if r.TraceID != "" || r.SpanID != "" {
		t.Error("expected no trace context without a span")
	}
}

func TestOperationRecord_LogAttrs(t *testing.T) {
	r := NewOperationRecord(OperationTrash).
		WithRequest("POST", testRoute, testRequestID).
		WithResources(testMessageID)
	r.TraceID = "abc123def456"
	r.Complete(nil)

	attrs := attrMap(r.LogAttrs(false))

	if attrs["operation"].String() != OperationTrash {
		t.Errorf("operation = %q", attrs["operation"].String())
	}
	if attrs["resource_count"].Int64() != 1 {
		t.Errorf("resource_count = %d, want 1", attrs["resource_count"].Int64())
	}
	if attrs["route"].String() != testRoute {
		t.Errorf("route = %q", attrs["route"].String())
	}
	if attrs["request_id"].String() != testRequestID {
		t.Errorf("request_id = %q", attrs["request_id"].String())
	}
	if attrs["trace_id"].String() != "abc123def456" {
		t.Errorf("trace_id = %q", attrs["trace_id"].String())
	}
	if _, ok := attrs["resource_ids"]; ok {
		t.Error("resource_ids should be omitted unless requested")
	}
	if _, ok := attrs["error"]; ok {
		t.Error("error should be omitted on success")
	}

	withIDs := attrMap(r.LogAttrs(true))
	if _, ok := withIDs["resource_ids"]; !ok {
		t.Error("resource_ids should be present when requested")
	}
}

func TestOperationRecord_LogAttrs_MinimalFields(t *testing.T) {
	r := NewOperationRecord(OperationSend).Complete(nil)

	attrs := r.LogAttrs(true)
	if len(attrs) != 4 {
		t.Errorf("expected 4 base attributes, got %d", len(attrs))
	}
}

func TestAuditLogger_LogOperation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantMsg    string
		wantLevel  string
		includeIDs bool
	}{
		{name: "success", wantMsg: "operation_executed", wantLevel: "INFO"},
		{name: "failure", err: errors.New("not found"), wantMsg: "operation_failed", wantLevel: "WARN"},
		{name: "with ids", wantMsg: "operation_executed", wantLevel: "INFO", includeIDs: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludeResourceIDs: tt.includeIDs})

			r := NewOperationRecord(OperationTrash).WithResources(testMessageID).Complete(tt.err)
			al.LogOperation(context.Background(), r)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse log line %q: %v", buf.String(), err)
			}
			if entry["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %q", entry["msg"], tt.wantMsg)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %q", entry["level"], tt.wantLevel)
			}
			if entry["component"] != "audit" {
				t.Errorf("component = %v, want audit", entry["component"])
			}
			if _, ok := entry["resource_ids"]; ok != tt.includeIDs {
				t.Errorf("resource_ids present = %v, want %v", ok, tt.includeIDs)
			}
		})
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})

	al.LogOperation(context.Background(), NewOperationRecord(OperationSend).Complete(nil))

	if buf.Len() != 0 {
		t.Errorf("expected no output when disabled, got %q", buf.String())
	}
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var al *AuditLogger

	// Should not panic
	al.LogOperation(context.Background(), NewOperationRecord(OperationSend).Complete(nil))
	NewAuditLogger(nil).LogOperation(context.Background(), nil)
}
