package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/teemow/mailbridge/internal/gmail"
	"github.com/teemow/mailbridge/internal/logging"
	"github.com/teemow/mailbridge/internal/server"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeGmailError maps a failed Gmail call onto an HTTP error. notFound is
// the message used when Gmail reports the resource as missing.
func (h *Handler) writeGmailError(ctx context.Context, w http.ResponseWriter, err error, notFound string) {
	status, body := gmailErrorResponse(err, notFound)

	level := h.logger.WarnContext
	if status >= http.StatusInternalServerError {
		level = h.logger.ErrorContext
	}
	level(ctx, "gmail request failed", logging.Status(logging.StatusError), logging.Err(err))

	writeJSON(w, status, body)
}

func gmailErrorResponse(err error, notFound string) (int, errorResponse) {
	if errors.Is(err, server.ErrShuttingDown) {
		return http.StatusServiceUnavailable, errorResponse{Error: "Server is shutting down"}
	}
	if errors.Is(err, gmail.ErrAttachmentTooLarge) {
		return http.StatusRequestEntityTooLarge, errorResponse{Error: "Attachment too large", Message: err.Error()}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return http.StatusUnauthorized, errorResponse{Error: "Invalid or expired access token"}
		case http.StatusForbidden:
			return http.StatusForbidden, errorResponse{Error: "Insufficient permissions"}
		case http.StatusNotFound:
			if notFound == "" {
				notFound = "Not found"
			}
			return http.StatusNotFound, errorResponse{Error: notFound}
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests, errorResponse{Error: "Rate limit exceeded"}
		}
	}

	return http.StatusInternalServerError, errorResponse{Error: "Failed to fetch emails", Message: err.Error()}
}

// failureReason classifies a failed fetch for metrics.
func failureReason(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return "transport"
	}
	switch apiErr.Code {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "upstream_error"
	}
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
