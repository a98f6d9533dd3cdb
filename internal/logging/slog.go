package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation    = "operation"
	KeyRoute        = "route"
	KeyMethod       = "method"
	KeyRequestID    = "request_id"
	KeyMessageID    = "message_id"
	KeyAttachmentID = "attachment_id"
	KeyCount        = "count"
	KeyDuration     = "duration"
	KeyStatus       = "status"
	KeyError        = "error"
	KeySenderDomain = "sender_domain"
	KeySenderHash   = "sender_hash"
)

// Status values for consistent logging.
// Duplicated from instrumentation, which imports this package.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger returns a logger writing to w in the given format. Unknown
// formats fall back to text.
func NewLogger(w io.Writer, format string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}

	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithRequest returns a logger carrying the request method, matched route
// and request id. Empty values are skipped.
func WithRequest(logger *slog.Logger, method, route, requestID string) *slog.Logger {
	args := make([]any, 0, 3)
	if method != "" {
		args = append(args, slog.String(KeyMethod, method))
	}
	if route != "" {
		args = append(args, slog.String(KeyRoute, route))
	}
	if requestID != "" {
		args = append(args, slog.String(KeyRequestID, requestID))
	}
	return logger.With(args...)
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Route returns a slog attribute for the matched route pattern.
func Route(route string) slog.Attr {
	return slog.String(KeyRoute, route)
}

// MessageID returns a slog attribute for a Gmail message id.
func MessageID(id string) slog.Attr {
	return slog.String(KeyMessageID, id)
}

// AttachmentID returns a slog attribute for a Gmail attachment id.
func AttachmentID(id string) slog.Attr {
	return slog.String(KeyAttachmentID, id)
}

// Count returns a slog attribute for a number of items.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that slog omits, so
// Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeAddress returns a hashed representation of an email address so
// log lines about the same sender can be correlated without exposing it.
func AnonymizeAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(address))
	return "addr:" + hex.EncodeToString(hash[:8])
}

// SenderHash returns a slog attribute with the anonymized sender address.
func SenderHash(address string) slog.Attr {
	return slog.String(KeySenderHash, AnonymizeAddress(address))
}

// SanitizeToken returns a masked version of a token for logging.
// Only the length is kept; even a prefix of an access token can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// ExtractDomain returns the domain of an address in "user@host" or
// "Name <user@host>" form, or "" when there is none.
func ExtractDomain(address string) string {
	if start := strings.LastIndex(address, "<"); start >= 0 {
		address = strings.TrimSuffix(address[start+1:], ">")
	}
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[at+1:]))
}

// SenderDomain returns a slog attribute for the sender's domain.
func SenderDomain(address string) slog.Attr {
	return slog.String(KeySenderDomain, ExtractDomain(address))
}
