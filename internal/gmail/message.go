package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Summary is the header-level view of a message used by listings.
type Summary struct {
	ID             string   `json:"id"`
	ThreadID       string   `json:"threadId"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	Cc             string   `json:"cc,omitempty"`
	Bcc            string   `json:"bcc,omitempty"`
	Subject        string   `json:"subject"`
	Snippet        string   `json:"snippet"`
	Date           string   `json:"date"`
	Labels         []string `json:"labels"`
	HasAttachments bool     `json:"hasAttachments"`
	Category       Category `json:"category,omitempty"`
}

// ListEmail is a listing entry: a summary plus the decoded bodies.
type ListEmail struct {
	Summary
	HTMLBody  string `json:"htmlBody"`
	PlainBody string `json:"plainBody"`
}

// MessageView is the single-message shape returned by message lookups and
// thread expansion.
type MessageView struct {
	EmailID string `json:"emailId"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to"`
	Snippet string `json:"snippet"`
	Body    Body   `json:"body"`
}

// FullEmail is a summary with decoded bodies and attachment descriptors.
type FullEmail struct {
	Summary
	HTMLBody         string           `json:"htmlBody"`
	PlainBody        string           `json:"plainBody"`
	PlainBodyDerived bool             `json:"plainBodyDerived,omitempty"`
	Attachments      []FullAttachment `json:"attachments"`
	Unsubscribe      *UnsubscribeInfo `json:"unsubscribe,omitempty"`
}

// HeaderValue extracts a header value from a Gmail message. Header names
// are matched case-insensitively.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil {
		return ""
	}
	return partHeader(m.Payload, header)
}

func partHeader(part *gmail.MessagePart, header string) string {
	if part == nil {
		return ""
	}
	for _, h := range part.Headers {
		if h != nil && strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// NewSummary builds a Summary from a message in metadata or full format.
func NewSummary(m *gmail.Message) Summary {
	labels := m.LabelIds
	if labels == nil {
		labels = []string{}
	}

	return Summary{
		ID:             m.Id,
		ThreadID:       m.ThreadId,
		From:           HeaderValue(m, "From"),
		To:             HeaderValue(m, "To"),
		Cc:             HeaderValue(m, "Cc"),
		Bcc:            HeaderValue(m, "Bcc"),
		Subject:        HeaderValue(m, "Subject"),
		Snippet:        m.Snippet,
		Date:           HeaderValue(m, "Date"),
		Labels:         labels,
		HasAttachments: hasAttachments(m.Payload),
	}
}

// hasAttachments reports whether any direct child of root names a file.
func hasAttachments(root *gmail.MessagePart) bool {
	if root == nil {
		return false
	}
	for _, part := range root.Parts {
		if part != nil && part.Filename != "" {
			return true
		}
	}
	return false
}

// NewListEmail builds a ListEmail from a full-format message. Decode
// failures are returned alongside the partial entry.
func NewListEmail(m *gmail.Message) (ListEmail, error) {
	body, err := ExtractBody(m.Payload)
	plain, _ := body.PlainText()
	return ListEmail{
		Summary:   NewSummary(m),
		HTMLBody:  body.HTMLOrEmpty(),
		PlainBody: plain,
	}, err
}

// NewMessageView builds a MessageView from a full-format message. Decode
// failures are returned alongside the partial view.
func NewMessageView(m *gmail.Message) (MessageView, error) {
	body, err := ExtractBody(m.Payload)
	return MessageView{
		EmailID: m.Id,
		Subject: HeaderValue(m, "Subject"),
		From:    HeaderValue(m, "From"),
		To:      HeaderValue(m, "To"),
		Snippet: m.Snippet,
		Body:    body,
	}, err
}

// NewFullEmail builds a FullEmail from a full-format message. When the
// message has HTML but no plain text, the plain body is derived from the
// HTML. Decode failures are returned alongside the partial email.
func NewFullEmail(m *gmail.Message) (FullEmail, error) {
	body, err := ExtractBody(m.Payload)

	plain, derived := body.PlainText()
	email := FullEmail{
		Summary:          NewSummary(m),
		HTMLBody:         body.HTMLOrEmpty(),
		PlainBody:        plain,
		PlainBodyDerived: derived,
		Attachments:      FullAttachments(ExtractAttachments(m.Payload)),
	}

	if info := NewUnsubscribeInfo(m); info.HasUnsubscribe {
		email.Unsubscribe = &info
	}

	return email, err
}
