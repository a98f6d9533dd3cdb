package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailbridge/internal/gmail"
)

type threadsResponse struct {
	Success       bool               `json:"success"`
	Threads       []*gmailapi.Thread `json:"threads"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
}

type threadResponse struct {
	Success  bool                `json:"success"`
	ThreadID string              `json:"threadId"`
	Snippet  string              `json:"snippet"`
	Messages []gmail.MessageView `json:"messages"`
}

// listThreads serves GET /email/threads.
func (h *Handler) listThreads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	res, err := c.ListThreads(ctx, listOptions(r, defaultListSize))
	if err != nil {
		h.writeGmailError(ctx, w, err, "Threads not found")
		return
	}

	threads := res.Threads
	if threads == nil {
		threads = []*gmailapi.Thread{}
	}
	writeJSON(w, http.StatusOK, threadsResponse{
		Success:       true,
		Threads:       threads,
		NextPageToken: res.NextPageToken,
	})
}

// getThread serves GET /email/threads/{id}. Every message is reduced to its
// MessageView.
func (h *Handler) getThread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	thread, err := c.GetThread(ctx, id)
	if err != nil {
		h.writeGmailError(ctx, w, err, "Thread not found")
		return
	}

	messages := make([]gmail.MessageView, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		if msg == nil {
			continue
		}
		view, err := gmail.NewMessageView(msg)
		h.reportDecodeError(ctx, "get_thread", msg.Id, err)
		messages = append(messages, view)
	}

	writeJSON(w, http.StatusOK, threadResponse{
		Success:  true,
		ThreadID: id,
		Snippet:  thread.Snippet,
		Messages: messages,
	})
}
