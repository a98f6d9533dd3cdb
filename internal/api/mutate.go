package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailbridge/internal/batch"
	"github.com/teemow/mailbridge/internal/gmail"
	"github.com/teemow/mailbridge/internal/instrumentation"
)

type mutationResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    *gmailapi.Message `json:"data,omitempty"`
}

type batchResponse struct {
	Success bool `json:"success"`
	batch.Summary
}

type labelsRequest struct {
	IDs            json.RawMessage `json:"ids"`
	AddLabelIDs    []string        `json:"addLabelIds"`
	RemoveLabelIDs []string        `json:"removeLabelIds"`
}

// trash serves POST /email/messages/{id}/trash.
func (h *Handler) trash(w http.ResponseWriter, r *http.Request) {
	h.mutateMessage(w, r, instrumentation.OperationTrash, "Email moved to trash",
		func(ctx context.Context, c *gmail.Client, id string) (*gmailapi.Message, error) {
			return c.TrashMessage(ctx, id)
		})
}

// untrash serves POST /email/messages/{id}/untrash.
func (h *Handler) untrash(w http.ResponseWriter, r *http.Request) {
	h.mutateMessage(w, r, instrumentation.OperationUntrash, "Email removed from trash",
		func(ctx context.Context, c *gmail.Client, id string) (*gmailapi.Message, error) {
			return c.UntrashMessage(ctx, id)
		})
}

// modifyLabels serves POST /email/messages/{id}/modify.
func (h *Handler) modifyLabels(w http.ResponseWriter, r *http.Request) {
	var req labelsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	h.mutateMessage(w, r, instrumentation.OperationModify, "Email labels modified",
		func(ctx context.Context, c *gmail.Client, id string) (*gmailapi.Message, error) {
			return c.ModifyLabels(ctx, id, gmail.NormalizeLabelIDs(req.AddLabelIDs), gmail.NormalizeLabelIDs(req.RemoveLabelIDs))
		})
}

// mutateMessage runs a single-message mutation with auditing.
func (h *Handler) mutateMessage(w http.ResponseWriter, r *http.Request, operation, done string,
	fn func(ctx context.Context, c *gmail.Client, id string) (*gmailapi.Message, error)) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	c, ok := h.client(w, r)
	if !ok {
		return
	}

	rec := h.startAudit(r, operation, id)
	msg, err := fn(ctx, c, id)
	h.finishAudit(r, rec, err)
	if err != nil {
		h.writeGmailError(ctx, w, err, "Email not found")
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Message: done, Data: msg})
}

// batchModifyLabels serves POST /email/messages/batch-modify.
func (h *Handler) batchModifyLabels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req labelsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	ids, err := batch.Parse(req.IDs, "ids")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Email IDs are required: "+err.Error())
		return
	}

	c, ok := h.client(w, r)
	if !ok {
		return
	}

	rec := h.startAudit(r, instrumentation.OperationBatchModify, ids...)
	err = c.BatchModifyLabels(ctx, ids, gmail.NormalizeLabelIDs(req.AddLabelIDs), gmail.NormalizeLabelIDs(req.RemoveLabelIDs))
	h.finishAudit(r, rec, err)
	if err != nil {
		h.writeGmailError(ctx, w, err, "Email not found")
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Message: "Email labels modified in batch"})
}

// batchTrash serves POST /email/messages/batch-trash. Each id is trashed
// independently; the response reports every outcome.
func (h *Handler) batchTrash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req labelsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	ids, err := batch.Parse(req.IDs, "ids")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Email IDs are required: "+err.Error())
		return
	}

	c, ok := h.client(w, r)
	if !ok {
		return
	}

	rec := h.startAudit(r, instrumentation.OperationBatchTrash, ids...)
	results := batch.Process(ctx, ids, h.batchConcurrency, func(ctx context.Context, id string) (string, error) {
		if _, err := c.TrashMessage(ctx, id); err != nil {
			return "", err
		}
		return "trashed", nil
	})
	summary := batch.Summarize(results)

	var auditErr error
	if summary.Failed > 0 {
		auditErr = errBatchPartial(summary.Failed, summary.Total)
	}
	h.finishAudit(r, rec, auditErr)

	writeJSON(w, http.StatusOK, batchResponse{Success: summary.Failed == 0, Summary: summary})
}
