package gmail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	gmail "google.golang.org/api/gmail/v1"
)

// EmailMessage represents an outgoing email
type EmailMessage struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	IsHTML      bool
	ThreadID    string
	InReplyTo   string
	References  []string
	Attachments []OutgoingAttachment
}

// OutgoingAttachment is a file attached to an outgoing email. Data is base64,
// standard or URL alphabet.
type OutgoingAttachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// now is replaced in tests.
var now = time.Now

func (m *EmailMessage) validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	if m.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if m.Body == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}

// Build renders the message as RFC 5322 bytes. A message without attachments
// is a single inline part; otherwise it is multipart/mixed.
func (m *EmailMessage) Build() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	var h mail.Header
	h.SetDate(now())
	h.SetSubject(m.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate Message-ID: %w", err)
	}

	for _, field := range []struct {
		key   string
		value []string
	}{
		{"To", m.To},
		{"Cc", m.Cc},
		{"Bcc", m.Bcc},
	} {
		if len(field.value) == 0 {
			continue
		}
		addrs, err := parseAddresses(field.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s address: %w", field.key, err)
		}
		h.SetAddressList(field.key, addrs)
	}

	if m.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{trimMsgID(m.InReplyTo)})
	}
	if len(m.References) > 0 {
		refs := make([]string, 0, len(m.References))
		for _, r := range m.References {
			refs = append(refs, trimMsgID(r))
		}
		h.SetMsgIDList("References", refs)
	}

	contentType := MimeTypePlain
	if m.IsHTML {
		contentType = MimeTypeHTML
	}

	var buf bytes.Buffer

	if len(m.Attachments) == 0 {
		h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("failed to create message writer: %w", err)
		}
		if _, err := io.WriteString(w, m.Body); err != nil {
			return nil, fmt.Errorf("failed to write body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close message: %w", err)
		}
		return buf.Bytes(), nil
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	var ih mail.InlineHeader
	ih.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	iw, err := mw.CreateSingleInline(ih)
	if err != nil {
		return nil, fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := io.WriteString(iw, m.Body); err != nil {
		return nil, fmt.Errorf("failed to write body: %w", err)
	}
	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close body part: %w", err)
	}

	for _, a := range m.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAttachment(mw *mail.Writer, a OutgoingAttachment) error {
	if a.Filename == "" {
		return fmt.Errorf("attachment filename is required")
	}
	data, err := decodeBase64URLBytes(a.Data)
	if err != nil {
		return fmt.Errorf("attachment %s: %w", a.Filename, err)
	}
	if len(data) > MaxAttachmentSize {
		return fmt.Errorf("attachment %s size %d exceeds maximum size %d", a.Filename, len(data), MaxAttachmentSize)
	}

	mimeType := a.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(mimeType, nil)
	ah.SetFilename(SanitizeFilename(a.Filename))

	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("failed to create attachment %s: %w", a.Filename, err)
	}
	if _, err := aw.Write(data); err != nil {
		return fmt.Errorf("failed to write attachment %s: %w", a.Filename, err)
	}
	return aw.Close()
}

// Raw renders the message and encodes it for gmail.Message.Raw.
func (m *EmailMessage) Raw() (string, error) {
	data, err := m.Build()
	if err != nil {
		return "", err
	}
	return EncodeBase64URL(string(data)), nil
}

func (m *EmailMessage) gmailMessage() (*gmail.Message, error) {
	raw, err := m.Raw()
	if err != nil {
		return nil, err
	}
	return &gmail.Message{Raw: raw, ThreadId: m.ThreadID}, nil
}

// SendEmail sends an email through Gmail API
func (c *Client) SendEmail(ctx context.Context, msg *EmailMessage) (*gmail.Message, error) {
	gmailMsg, err := msg.gmailMessage()
	if err != nil {
		return nil, err
	}

	var sent *gmail.Message
	err = c.observe(ctx, "send_message", func(ctx context.Context) error {
		var err error
		sent, err = c.svc.Messages.Send(userID, gmailMsg).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	})
	return sent, err
}

// CreateDraft stores an email as a draft instead of sending it
func (c *Client) CreateDraft(ctx context.Context, msg *EmailMessage) (*gmail.Draft, error) {
	gmailMsg, err := msg.gmailMessage()
	if err != nil {
		return nil, err
	}

	var draft *gmail.Draft
	err = c.observe(ctx, "create_draft", func(ctx context.Context) error {
		var err error
		draft, err = c.svc.Drafts.Create(userID, &gmail.Draft{Message: gmailMsg}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to create draft: %w", err)
		}
		return nil
	})
	return draft, err
}

var angleAddr = regexp.MustCompile(`<([^>]+)>`)

// CreateDraftReply creates an HTML draft replying to the sender of messageID
// in the same thread.
func (c *Client) CreateDraftReply(ctx context.Context, messageID, html string) (*gmail.Draft, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if html == "" {
		return nil, fmt.Errorf("reply content is required")
	}

	orig, err := c.GetMessageMetadata(ctx, messageID, "From", "To", "Subject", "Message-ID", "References", "In-Reply-To")
	if err != nil {
		return nil, fmt.Errorf("failed to get original message: %w", err)
	}

	from := HeaderValue(orig, "From")
	if from == "" {
		return nil, fmt.Errorf("original message has no From header")
	}
	replyTo := from
	if m := angleAddr.FindStringSubmatch(from); m != nil {
		replyTo = m[1]
	}

	reply := &EmailMessage{
		To:       []string{replyTo},
		Subject:  ReplySubject(HeaderValue(orig, "Subject")),
		Body:     html,
		IsHTML:   true,
		ThreadID: orig.ThreadId,
	}
	if origID := HeaderValue(orig, "Message-ID"); origID != "" {
		reply.InReplyTo = origID
		reply.References = append(strings.Fields(HeaderValue(orig, "References")), origID)
	}

	return c.CreateDraft(ctx, reply)
}

// ReplySubject prefixes subject with "Re: " unless it already has one.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// SplitAddresses splits a comma separated recipient list.
func SplitAddresses(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func parseAddresses(values []string) ([]*mail.Address, error) {
	addrs := make([]*mail.Address, 0, len(values))
	for _, v := range values {
		parsed, err := mail.ParseAddressList(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", v, err)
		}
		addrs = append(addrs, parsed...)
	}
	return addrs, nil
}

func trimMsgID(id string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(id), "<"), ">")
}
