package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, FormatJSON, false)

	logger.Debug("hidden")
	logger.Info("shown", MessageID("msg-1"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry[KeyMessageID] != "msg-1" {
		t.Errorf("message_id = %v, want msg-1", entry[KeyMessageID])
	}
}

func TestNewLogger_TextDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "unknown", true)

	logger.Debug("decoding part", Operation("extract"))

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") {
		t.Errorf("expected text debug output, got %q", out)
	}
	if !strings.Contains(out, "operation=extract") {
		t.Errorf("expected operation attribute, got %q", out)
	}
}

func TestWithRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := WithRequest(NewLogger(&buf, FormatText, false), "GET", "/email/list", "")

	logger.Info("listing")

	out := buf.String()
	if !strings.Contains(out, "method=GET") || !strings.Contains(out, "route=/email/list") {
		t.Errorf("expected request attributes, got %q", out)
	}
	if strings.Contains(out, KeyRequestID) {
		t.Errorf("empty request id should be skipped, got %q", out)
	}
}

func TestWithOperation(t *testing.T) {
	if WithOperation(slog.Default(), "list_messages") == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		attr slog.Attr
		key  string
		want string
	}{
		{Operation("trash"), KeyOperation, "trash"},
		{Route("/email/threads/{id}"), KeyRoute, "/email/threads/{id}"},
		{MessageID("18c2"), KeyMessageID, "18c2"},
		{AttachmentID("ANGj"), KeyAttachmentID, "ANGj"},
		{Count(3), KeyCount, "3"},
		{Status(StatusSuccess), KeyStatus, "success"},
		{SenderDomain("Jane <jane@Example.com>"), KeySenderDomain, "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.key)
			}
			if tt.attr.Value.String() != tt.want {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.want)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("decode failed"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "decode failed" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "decode failed")
	}

	// nil yields an empty group that slog omits
	if attr = Err(nil); attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeAddress(t *testing.T) {
	h := AnonymizeAddress("jane@example.com")
	if len(h) != 21 || !strings.HasPrefix(h, "addr:") {
		t.Errorf("AnonymizeAddress = %q, want addr: followed by 16 hex chars", h)
	}
	if AnonymizeAddress(" Jane@Example.com ") != h {
		t.Error("AnonymizeAddress should ignore case and surrounding space")
	}
	if AnonymizeAddress("other@example.com") == h {
		t.Error("different addresses should produce different hashes")
	}
	if AnonymizeAddress("") != "" {
		t.Error("empty address should produce empty hash")
	}
	if SenderHash("jane@example.com").Value.String() != h {
		t.Error("SenderHash should wrap AnonymizeAddress")
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"ya29.a0AfB_byC-long-token", "[token:25 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		address  string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"\"News\" <news@list.example.org>", "list.example.org"},
		{"invalid", ""},
		{"", ""},
		{"user@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			if got := ExtractDomain(tt.address); got != tt.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.address, got, tt.expected)
			}
		})
	}
}
