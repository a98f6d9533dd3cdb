// Package gmailtest provides an in-memory Gmail REST API for tests.
package gmailtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

const basePath = "/gmail/v1/users/me"

// ModifyCall records one label modification request.
type ModifyCall struct {
	IDs    []string
	Add    []string
	Remove []string
}

// Server emulates the subset of the Gmail API used by mailbridge. All
// exported fields may be set before requests are made; recorded calls are
// read through the accessor methods.
type Server struct {
	*httptest.Server

	// Token, when set, is the only bearer token accepted.
	Token string

	mu          sync.Mutex
	order       []string
	messages    map[string]*gmail.Message
	threads     map[string]*gmail.Thread
	attachments map[string]*gmail.MessagePartBody
	labels      []*gmail.Label
	failures    map[string]int

	trashed   []string
	untrashed []string
	modified  []ModifyCall
	sent      []*gmail.Message
	drafts    []*gmail.Draft
	queries   []string
}

// NewServer starts a fake Gmail API that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		messages:    make(map[string]*gmail.Message),
		threads:     make(map[string]*gmail.Thread),
		attachments: make(map[string]*gmail.MessagePartBody),
		failures:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+basePath+"/messages", s.listMessages)
	mux.HandleFunc("GET "+basePath+"/messages/{id}", s.getMessage)
	mux.HandleFunc("GET "+basePath+"/messages/{id}/attachments/{attachmentId}", s.getAttachment)
	mux.HandleFunc("POST "+basePath+"/messages/{id}/trash", s.trash)
	mux.HandleFunc("POST "+basePath+"/messages/{id}/untrash", s.untrash)
	mux.HandleFunc("POST "+basePath+"/messages/{id}/modify", s.modify)
	mux.HandleFunc("POST "+basePath+"/messages/batchModify", s.batchModify)
	mux.HandleFunc("POST "+basePath+"/messages/send", s.send)
	mux.HandleFunc("POST "+basePath+"/drafts", s.createDraft)
	mux.HandleFunc("GET "+basePath+"/threads", s.listThreads)
	mux.HandleFunc("GET "+basePath+"/threads/{id}", s.getThread)
	mux.HandleFunc("GET "+basePath+"/labels", s.listLabels)

	s.Server = httptest.NewServer(s.authorize(mux))
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the base URL to pass to option.WithEndpoint.
func (s *Server) Endpoint() string {
	return s.URL + "/"
}

// AddMessage stores m and appends it to its thread.
func (s *Server) AddMessage(m *gmail.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[m.Id]; !ok {
		s.order = append(s.order, m.Id)
	}
	s.messages[m.Id] = m

	if m.ThreadId == "" {
		return
	}
	th, ok := s.threads[m.ThreadId]
	if !ok {
		th = &gmail.Thread{Id: m.ThreadId, Snippet: m.Snippet}
		s.threads[m.ThreadId] = th
	}
	th.Messages = append(th.Messages, m)
}

// AddAttachment stores attachment content for messageID.
func (s *Server) AddAttachment(messageID, attachmentID string, body *gmail.MessagePartBody) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[messageID+"/"+attachmentID] = body
}

// AddLabel registers a label returned by the labels listing.
func (s *Server) AddLabel(l *gmail.Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = append(s.labels, l)
}

// FailMessage makes every request for message id fail with status.
func (s *Server) FailMessage(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = status
}

// Trashed returns the ids of trashed messages in request order.
func (s *Server) Trashed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trashed)
}

// Untrashed returns the ids of untrashed messages in request order.
func (s *Server) Untrashed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.untrashed)
}

// Modified returns the recorded label modifications.
func (s *Server) Modified() []ModifyCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.modified)
}

// Sent returns the messages passed to messages.send.
func (s *Server) Sent() []*gmail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sent)
}

// Drafts returns the drafts passed to drafts.create.
func (s *Server) Drafts() []*gmail.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.drafts)
}

// Queries returns the q parameter of every listing request.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.queries)
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "Request had invalid authentication credentials.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	s.queries = append(s.queries, q.Get("q"))
	var refs []*gmail.Message
	for _, id := range s.order {
		m := s.messages[id]
		if !hasLabels(m, q["labelIds"]) {
			continue
		}
		refs = append(refs, &gmail.Message{Id: m.Id, ThreadId: m.ThreadId})
	}
	s.mu.Unlock()

	res := &gmail.ListMessagesResponse{}
	refs, res.NextPageToken = page(refs, q)
	res.Messages = refs
	res.ResultSizeEstimate = int64(len(refs))
	writeJSON(w, res)
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}

	q := r.URL.Query()
	if q.Get("format") != "metadata" {
		writeJSON(w, m)
		return
	}

	meta := *m
	meta.Payload = nil
	if m.Payload != nil {
		want := q["metadataHeaders"]
		payload := &gmail.MessagePart{MimeType: m.Payload.MimeType}
		for _, h := range m.Payload.Headers {
			if len(want) == 0 || slices.ContainsFunc(want, func(n string) bool { return strings.EqualFold(n, h.Name) }) {
				payload.Headers = append(payload.Headers, h)
			}
		}
		meta.Payload = payload
	}
	writeJSON(w, &meta)
}

func (s *Server) getAttachment(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookup(w, r.PathValue("id")); !ok {
		return
	}

	s.mu.Lock()
	body, ok := s.attachments[r.PathValue("id")+"/"+r.PathValue("attachmentId")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}
	writeJSON(w, body)
}

func (s *Server) trash(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}
	s.mu.Lock()
	s.trashed = append(s.trashed, m.Id)
	s.mu.Unlock()
	writeJSON(w, &gmail.Message{Id: m.Id, ThreadId: m.ThreadId, LabelIds: []string{"TRASH"}})
}

func (s *Server) untrash(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}
	s.mu.Lock()
	s.untrashed = append(s.untrashed, m.Id)
	s.mu.Unlock()
	writeJSON(w, &gmail.Message{Id: m.Id, ThreadId: m.ThreadId, LabelIds: []string{"INBOX"}})
}

func (s *Server) modify(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}
	var req gmail.ModifyMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.modified = append(s.modified, ModifyCall{IDs: []string{m.Id}, Add: req.AddLabelIds, Remove: req.RemoveLabelIds})
	s.mu.Unlock()
	writeJSON(w, &gmail.Message{Id: m.Id, ThreadId: m.ThreadId, LabelIds: req.AddLabelIds})
}

func (s *Server) batchModify(w http.ResponseWriter, r *http.Request) {
	var req gmail.BatchModifyMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.modified = append(s.modified, ModifyCall{IDs: req.Ids, Add: req.AddLabelIds, Remove: req.RemoveLabelIds})
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var m gmail.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.sent = append(s.sent, &m)
	id := "sent-" + strconv.Itoa(len(s.sent))
	s.mu.Unlock()

	threadID := m.ThreadId
	if threadID == "" {
		threadID = id
	}
	writeJSON(w, &gmail.Message{Id: id, ThreadId: threadID, LabelIds: []string{"SENT"}})
}

func (s *Server) createDraft(w http.ResponseWriter, r *http.Request) {
	var d gmail.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.drafts = append(s.drafts, &d)
	n := len(s.drafts)
	s.mu.Unlock()

	res := &gmail.Draft{Id: "draft-" + strconv.Itoa(n), Message: &gmail.Message{Id: "draft-msg-" + strconv.Itoa(n)}}
	if d.Message != nil {
		res.Message.ThreadId = d.Message.ThreadId
	}
	writeJSON(w, res)
}

func (s *Server) listThreads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	s.queries = append(s.queries, q.Get("q"))
	var refs []*gmail.Thread
	seen := make(map[string]bool)
	for _, id := range s.order {
		m := s.messages[id]
		if m.ThreadId == "" || seen[m.ThreadId] || !hasLabels(m, q["labelIds"]) {
			continue
		}
		seen[m.ThreadId] = true
		th := s.threads[m.ThreadId]
		refs = append(refs, &gmail.Thread{Id: th.Id, Snippet: th.Snippet})
	}
	s.mu.Unlock()

	res := &gmail.ListThreadsResponse{}
	refs, res.NextPageToken = page(refs, q)
	res.Threads = refs
	res.ResultSizeEstimate = int64(len(refs))
	writeJSON(w, res)
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	th, ok := s.threads[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}
	writeJSON(w, th)
}

func (s *Server) listLabels(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	labels := slices.Clone(s.labels)
	s.mu.Unlock()
	writeJSON(w, &gmail.ListLabelsResponse{Labels: labels})
}

// lookup resolves a message id, writing the error response when it fails.
func (s *Server) lookup(w http.ResponseWriter, id string) (*gmail.Message, bool) {
	s.mu.Lock()
	status, failing := s.failures[id]
	m, ok := s.messages[id]
	s.mu.Unlock()

	if failing {
		writeError(w, status, fmt.Sprintf("injected failure for %s", id))
		return nil, false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
		return nil, false
	}
	return m, true
}

func hasLabels(m *gmail.Message, labels []string) bool {
	for _, l := range labels {
		if !slices.Contains(m.LabelIds, l) {
			return false
		}
	}
	return true
}

// page applies maxResults. The next page token is set only when results
// were cut off.
func page[T any](items []T, q map[string][]string) ([]T, string) {
	if v := q["maxResults"]; len(v) > 0 {
		if n, err := strconv.Atoi(v[0]); err == nil && n > 0 && n < len(items) {
			return items[:n], "page-" + strconv.Itoa(n)
		}
	}
	return items, ""
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}
