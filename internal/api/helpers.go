package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/mailbridge/internal/gmail"
	"github.com/teemow/mailbridge/internal/instrumentation"
	"github.com/teemow/mailbridge/internal/logging"
)

// Page sizes for listings.
const (
	defaultListSize = 10
	defaultPageSize = 50
	maxPageSize     = 500
)

// client builds a Gmail client for the request's access token. It writes
// the error response and returns false when that fails.
func (h *Handler) client(w http.ResponseWriter, r *http.Request) (*gmail.Client, bool) {
	c, err := h.sc.GmailClient(r.Context(), AccessToken(r.Context()))
	if err != nil {
		h.writeGmailError(r.Context(), w, err, "")
		return nil, false
	}
	return c, true
}

// listOptions parses the common listing query parameters. An absent or
// invalid maxResults falls back to def; values above maxPageSize are capped.
func listOptions(r *http.Request, def int64) gmail.ListOptions {
	q := r.URL.Query()

	maxResults := def
	if n, err := strconv.ParseInt(q.Get("maxResults"), 10, 64); err == nil && n > 0 {
		maxResults = min(n, maxPageSize)
	}

	opts := gmail.ListOptions{
		MaxResults:       maxResults,
		Query:            q.Get("q"),
		PageToken:        q.Get("pageToken"),
		IncludeSpamTrash: q.Get("includeSpamTrash") == "true",
	}
	if labels := q.Get("labelIds"); labels != "" {
		opts.LabelIDs = gmail.NormalizeLabelIDs(strings.Split(labels, ","))
	}
	return opts
}

// reportDecodeError logs and counts parts whose data could not be decoded.
// It returns the number of failed parts.
func (h *Handler) reportDecodeError(ctx context.Context, operation, messageID string, err error) int {
	if err == nil {
		return 0
	}

	n := 1
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		n = len(joined.Unwrap())
	}

	h.logger.WarnContext(ctx, "serving partial message body",
		logging.Operation(operation),
		logging.MessageID(messageID),
		logging.Count(n),
		logging.Err(err),
	)
	h.sc.Metrics().RecordDecodeError(ctx, operation, n)
	return n
}

// fetchFailure is the inline listing entry of a message that could not be
// fetched.
type fetchFailure struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Error    string `json:"error"`
}

func (h *Handler) reportFetchFailure(ctx context.Context, operation string, res gmail.FetchResult, threadID string) fetchFailure {
	h.logger.WarnContext(ctx, "failed to fetch message details",
		logging.Operation(operation),
		logging.MessageID(res.ID),
		logging.Err(res.Err),
	)
	h.sc.Metrics().RecordFetchFailure(ctx, operation, failureReason(res.Err))
	return fetchFailure{ID: res.ID, ThreadID: threadID, Error: "Failed to fetch message details"}
}

// startAudit opens an audit record for a mutating operation.
func (h *Handler) startAudit(r *http.Request, operation string, ids ...string) *instrumentation.OperationRecord {
	return instrumentation.NewOperationRecord(operation).
		WithRequest(r.Method, routePattern(r), middleware.GetReqID(r.Context())).
		WithResources(ids...).
		WithSpanContext(r.Context())
}

func (h *Handler) finishAudit(r *http.Request, rec *instrumentation.OperationRecord, err error) {
	h.sc.AuditLogger().LogOperation(r.Context(), rec.Complete(err))
}

func errBatchPartial(failed, total int) error {
	return fmt.Errorf("%d of %d items failed", failed, total)
}
