package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailbridge/internal/gmail"
	"github.com/teemow/mailbridge/internal/instrumentation"
)

// Listing filters of GET /email/messages.
const (
	filterAll       = "all"
	filterImportant = string(gmail.CategoryImportant)
	filterOther     = string(gmail.CategoryOther)
)

type listEmailsResponse struct {
	Success       bool   `json:"success"`
	Count         int    `json:"count"`
	NextPageToken string `json:"nextPageToken,omitempty"`
	Emails        []any  `json:"emails"`
}

type messageRefsResponse struct {
	Success       bool                `json:"success"`
	Messages      []*gmailapi.Message `json:"messages"`
	NextPageToken string              `json:"nextPageToken,omitempty"`
}

type categorizedResponse struct {
	Success       bool    `json:"success"`
	Messages      []any   `json:"messages"`
	Important     []any   `json:"important"`
	Other         []any   `json:"other"`
	NextPageToken *string `json:"nextPageToken"`
}

type emailResponse struct {
	Success bool `json:"success"`
	Email   any  `json:"email"`
}

type messageViewResponse struct {
	Success bool `json:"success"`
	gmail.MessageView
}

// fetchEntries fetches the full messages behind refs and shapes each one
// with shape. Messages that cannot be fetched become inline failure entries.
func (h *Handler) fetchEntries(ctx context.Context, c *gmail.Client, operation string, refs []*gmailapi.Message, shape func(*gmailapi.Message) any) []any {
	ids := make([]string, 0, len(refs))
	threads := make(map[string]string, len(refs))
	for _, ref := range refs {
		if ref == nil || ref.Id == "" {
			continue
		}
		ids = append(ids, ref.Id)
		threads[ref.Id] = ref.ThreadId
	}

	entries := make([]any, 0, len(ids))
	for _, res := range c.GetMessages(ctx, ids, gmail.FormatFull) {
		if res.Err != nil {
			entries = append(entries, h.reportFetchFailure(ctx, operation, res, threads[res.ID]))
			continue
		}
		entries = append(entries, shape(res.Message))
	}
	return entries
}

// listEmails serves GET /email/list.
func (h *Handler) listEmails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	res, err := c.ListMessages(ctx, listOptions(r, defaultListSize))
	if err != nil {
		h.writeGmailError(ctx, w, err, "")
		return
	}

	emails := h.fetchEntries(ctx, c, "list_emails", res.Messages, func(m *gmailapi.Message) any {
		email, err := gmail.NewListEmail(m)
		h.reportDecodeError(ctx, "list_emails", m.Id, err)
		return email
	})
	writeJSON(w, http.StatusOK, listEmailsResponse{
		Success:       true,
		Count:         len(emails),
		NextPageToken: res.NextPageToken,
		Emails:        emails,
	})
}

// listWithToken serves POST /email/list-with-token. It returns message
// references only.
func (h *Handler) listWithToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	res, err := c.ListMessages(ctx, listOptions(r, defaultPageSize))
	if err != nil {
		h.writeGmailError(ctx, w, err, "")
		return
	}

	messages := res.Messages
	if messages == nil {
		messages = []*gmailapi.Message{}
	}
	writeJSON(w, http.StatusOK, messageRefsResponse{
		Success:       true,
		Messages:      messages,
		NextPageToken: res.NextPageToken,
	})
}

// listCategorized serves GET /email/messages. Messages of one label are
// split into important and other; filter selects which of them populate
// "messages".
func (h *Handler) listCategorized(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := r.URL.Query().Get("filter")
	switch filter {
	case "":
		filter = filterAll
	case filterAll, filterImportant, filterOther:
	default:
		writeError(w, http.StatusBadRequest, "filter must be one of: important, other, all")
		return
	}

	opts := listOptions(r, defaultPageSize)
	if label := r.URL.Query().Get("labelId"); label != "" {
		opts.LabelIDs = []string{gmail.NormalizeLabelID(label)}
	} else if len(opts.LabelIDs) == 0 {
		opts.LabelIDs = []string{"INBOX"}
	}

	c, ok := h.client(w, r)
	if !ok {
		return
	}

	res, err := c.ListMessages(ctx, opts)
	if err != nil {
		h.writeGmailError(ctx, w, err, "")
		return
	}

	resp := categorizedResponse{
		Success:   true,
		Messages:  []any{},
		Important: []any{},
		Other:     []any{},
	}
	if res.NextPageToken != "" {
		resp.NextPageToken = &res.NextPageToken
	}

	entries := h.fetchEntries(ctx, c, "list_categorized", res.Messages, func(m *gmailapi.Message) any {
		summary := gmail.NewSummary(m)
		summary.Category = gmail.Classify(m)
		return summary
	})
	for _, entry := range entries {
		summary, isSummary := entry.(gmail.Summary)
		if isSummary {
			switch summary.Category {
			case gmail.CategoryImportant:
				resp.Important = append(resp.Important, entry)
			case gmail.CategoryOther:
				resp.Other = append(resp.Other, entry)
			}
		}
		if filter == filterAll || (isSummary && string(summary.Category) == filter) {
			resp.Messages = append(resp.Messages, entry)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// getEmail serves GET /email/get-email/{id}.
func (h *Handler) getEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	msg, err := c.GetMessage(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeGmailError(ctx, w, err, "Email not found")
		return
	}

	writeJSON(w, http.StatusOK, emailResponse{Success: true, Email: gmail.NewSummary(msg)})
}

// getMessage serves GET /email/messages/{id}.
func (h *Handler) getMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	msg, err := c.GetMessage(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeGmailError(ctx, w, err, "Email not found")
		return
	}

	view, err := gmail.NewMessageView(msg)
	h.reportDecodeError(ctx, "get_message", msg.Id, err)

	writeJSON(w, http.StatusOK, messageViewResponse{Success: true, MessageView: view})
}

// getFullEmail serves GET /email/full-email/{id} and its full-thread alias.
func (h *Handler) getFullEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	msg, err := c.GetMessage(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeGmailError(ctx, w, err, "Email not found")
		return
	}

	ctx, span := instrumentation.StartExtractionSpan(ctx, msg.Id)
	email, err := gmail.NewFullEmail(msg)
	failed := h.reportDecodeError(ctx, "full_email", msg.Id, err)
	instrumentation.EndExtractionSpan(span, len(email.Attachments), failed)

	h.sc.Metrics().RecordExtractedAttachments(ctx, len(email.Attachments), email.From)

	writeJSON(w, http.StatusOK, emailResponse{Success: true, Email: email})
}
