package api

import (
	"encoding/json"
	"net/http"

	"github.com/teemow/mailbridge/internal/batch"
	"github.com/teemow/mailbridge/internal/gmail"
	"github.com/teemow/mailbridge/internal/instrumentation"
)

// sendRequest is the body of POST /email/send. Recipient fields take a
// comma separated string or an array of addresses.
type sendRequest struct {
	To          json.RawMessage            `json:"to"`
	Cc          json.RawMessage            `json:"cc"`
	Bcc         json.RawMessage            `json:"bcc"`
	Subject     string                     `json:"subject"`
	Body        string                     `json:"body"`
	IsHTML      *bool                      `json:"isHtml"`
	ThreadID    string                     `json:"threadId"`
	Attachments []gmail.OutgoingAttachment `json:"attachments"`
	IsDraft     bool                       `json:"isDraft"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId,omitempty"`
	ThreadID  string `json:"threadId,omitempty"`
	DraftID   string `json:"draftId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type draftReplyRequest struct {
	MessageID    string `json:"messageId"`
	ReplyContent string `json:"replyContent"`
}

// recipients flattens a recipient field. An absent field yields nil.
func recipients(raw json.RawMessage, name string) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	values, err := batch.Parse(raw, name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range values {
		out = append(out, gmail.SplitAddresses(v)...)
	}
	return out, nil
}

// send serves POST /email/send. With isDraft the message is stored as a
// draft instead of being sent. Bodies are HTML unless isHtml is false.
func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	to, err := recipients(req.To, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(to) == 0 {
		writeError(w, http.StatusBadRequest, "Recipient (to) is required")
		return
	}
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, "Subject is required")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "Email body is required")
		return
	}
	cc, err := recipients(req.Cc, "cc")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bcc, err := recipients(req.Bcc, "bcc")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg := &gmail.EmailMessage{
		To:          to,
		Cc:          cc,
		Bcc:         bcc,
		Subject:     req.Subject,
		Body:        req.Body,
		IsHTML:      req.IsHTML == nil || *req.IsHTML,
		ThreadID:    req.ThreadID,
		Attachments: req.Attachments,
	}
	if _, err := msg.Build(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message: "+err.Error())
		return
	}

	c, ok := h.client(w, r)
	if !ok {
		return
	}

	if req.IsDraft {
		rec := h.startAudit(r, instrumentation.OperationDraft)
		draft, err := c.CreateDraft(ctx, msg)
		h.finishAudit(r, rec, err)
		if err != nil {
			h.writeGmailError(ctx, w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, sendResponse{
			Success: true,
			Message: "Draft created successfully",
			DraftID: draft.Id,
			Data:    draft,
		})
		return
	}

	rec := h.startAudit(r, instrumentation.OperationSend)
	sent, err := c.SendEmail(ctx, msg)
	h.finishAudit(r, rec, err)
	if err != nil {
		h.writeGmailError(ctx, w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		Success:   true,
		Message:   "Email sent successfully",
		MessageID: sent.Id,
		ThreadID:  sent.ThreadId,
		Data:      sent,
	})
}

// draftReply serves POST /email/drafts/reply.
func (h *Handler) draftReply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req draftReplyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.MessageID == "" || req.ReplyContent == "" {
		writeError(w, http.StatusBadRequest, "Message ID and reply content are required")
		return
	}

	c, ok := h.client(w, r)
	if !ok {
		return
	}

	rec := h.startAudit(r, instrumentation.OperationDraftReply, req.MessageID)
	draft, err := c.CreateDraftReply(ctx, req.MessageID, req.ReplyContent)
	h.finishAudit(r, rec, err)
	if err != nil {
		h.writeGmailError(ctx, w, err, "Email not found")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		DraftID string `json:"draftId"`
		Message string `json:"message"`
	}{Success: true, DraftID: draft.Id, Message: "Draft reply created successfully"})
}
