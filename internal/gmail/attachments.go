package gmail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024
)

// ErrAttachmentTooLarge is returned by GetAttachment for content above
// MaxAttachmentSize.
var ErrAttachmentTooLarge = errors.New("attachment too large")

// Attachment describes a part whose content must be fetched separately by id.
type Attachment struct {
	ID       string `json:"attachmentId"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// FullAttachment is the full-email view of an attachment. It carries the id
// under both "id" and "attachmentId".
type FullAttachment struct {
	Attachment
	AliasID string `json:"id"`
}

// ExtractAttachments returns every descendant of root that names a file and
// references out-of-band content. Root itself is never a candidate. The
// result is in pre-order and is never nil.
func ExtractAttachments(root *gmail.MessagePart) []Attachment {
	attachments := []Attachment{}
	if root == nil {
		return attachments
	}

	for _, child := range root.Parts {
		walkParts(child, func(part *gmail.MessagePart) {
			if part.Filename == "" || part.Body == nil || part.Body.AttachmentId == "" {
				return
			}
			attachments = append(attachments, Attachment{
				ID:       part.Body.AttachmentId,
				Filename: part.Filename,
				MimeType: part.MimeType,
				Size:     part.Body.Size,
			})
		})
	}

	return attachments
}

// FullAttachments converts attachments to their full-email view.
func FullAttachments(attachments []Attachment) []FullAttachment {
	out := make([]FullAttachment, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, FullAttachment{Attachment: a, AliasID: a.ID})
	}
	return out
}

// ListAttachments fetches a message and extracts its attachment descriptors.
func (c *Client) ListAttachments(ctx context.Context, messageID string) ([]Attachment, error) {
	msg, err := c.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return ExtractAttachments(msg.Payload), nil
}

// GetAttachment retrieves the base64url content of an attachment. The data is
// returned as Gmail encodes it; use DecodeAttachmentData for the raw bytes.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) (*gmail.MessagePartBody, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	var attachment *gmail.MessagePartBody
	err := c.observe(ctx, "get_attachment", func(ctx context.Context) error {
		var err error
		attachment, err = c.svc.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if attachment.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("%w: size %d exceeds maximum size %d", ErrAttachmentTooLarge, attachment.Size, MaxAttachmentSize)
	}

	return attachment, nil
}

// DecodeAttachmentData decodes attachment data to raw bytes.
func DecodeAttachmentData(body *gmail.MessagePartBody) ([]byte, error) {
	if body == nil || body.Data == "" {
		return nil, nil
	}
	return decodeBase64URLBytes(body.Data)
}

// walkParts calls fn for part and every descendant in pre-order.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// SanitizeFilename sanitizes a filename to prevent path traversal attacks
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}
