package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailbridge/internal/gmail"
)

type attachmentsResponse struct {
	Success     bool               `json:"success"`
	Attachments []gmail.Attachment `json:"attachments"`
}

type attachmentResponse struct {
	Success    bool                      `json:"success"`
	Attachment *gmailapi.MessagePartBody `json:"attachment"`
}

// listAttachments serves GET /email/messages/{id}/attachments.
func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	attachments, err := c.ListAttachments(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeGmailError(ctx, w, err, "Email not found")
		return
	}
	h.sc.Metrics().RecordExtractedAttachments(ctx, len(attachments), "")

	writeJSON(w, http.StatusOK, attachmentsResponse{Success: true, Attachments: attachments})
}

// getAttachment serves GET /email/messages/{id}/attachments/{attachmentId}.
// Content is returned base64url encoded, as Gmail provides it.
func (h *Handler) getAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	body, err := c.GetAttachment(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "attachmentId"))
	if err != nil {
		h.writeGmailError(ctx, w, err, "Attachment not found")
		return
	}

	writeJSON(w, http.StatusOK, attachmentResponse{Success: true, Attachment: body})
}
