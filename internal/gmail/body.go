package gmail

import (
	"errors"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailbridge/internal/htmltext"
)

const (
	MimeTypePlain = "text/plain"
	MimeTypeHTML  = "text/html"
)

// Body holds the text and HTML content extracted from a message part tree.
// A nil field means no part of that type carried inline data.
type Body struct {
	Text *string `json:"text,omitempty"`
	HTML *string `json:"html,omitempty"`
}

// TextOrEmpty returns the plain text body or "".
func (b Body) TextOrEmpty() string {
	if b.Text == nil {
		return ""
	}
	return *b.Text
}

// HTMLOrEmpty returns the HTML body or "".
func (b Body) HTMLOrEmpty() string {
	if b.HTML == nil {
		return ""
	}
	return *b.HTML
}

// PlainText returns the plain text body. A message with HTML but no text
// part gets text derived from the HTML, reported by derived.
func (b Body) PlainText() (text string, derived bool) {
	if b.Text == nil && b.HTML != nil {
		return htmltext.FromString(*b.HTML), true
	}
	return b.TextOrEmpty(), false
}

// merge copies every field set in other over b.
func (b *Body) merge(other Body) {
	if other.Text != nil {
		b.Text = other.Text
	}
	if other.HTML != nil {
		b.HTML = other.HTML
	}
}

// ExtractBody walks a message part tree and returns its text/plain and
// text/html content.
//
// A root without children is treated as its own single part. Parts are
// visited in order and nested parts are merged as they are encountered, so
// when a tree holds several parts of the same type the last one visited in
// pre-order wins.
//
// Parts whose data fails to decode are skipped. Their errors are joined and
// returned together with whatever could be extracted, so callers can log the
// error and still use the partial Body.
func ExtractBody(root *gmail.MessagePart) (Body, error) {
	var errs []error
	body := extractBody(root, &errs)
	return body, errors.Join(errs...)
}

func extractBody(root *gmail.MessagePart, errs *[]error) Body {
	var body Body
	if root == nil {
		return body
	}

	parts := root.Parts
	if len(parts) == 0 {
		parts = []*gmail.MessagePart{root}
	}

	for _, part := range parts {
		if part == nil {
			continue
		}

		if part.Body != nil && part.Body.Data != "" {
			switch part.MimeType {
			case MimeTypePlain, MimeTypeHTML:
				decoded, err := DecodePartData(part)
				if err != nil {
					*errs = append(*errs, err)
					break
				}
				if part.MimeType == MimeTypePlain {
					body.Text = &decoded
				} else {
					body.HTML = &decoded
				}
			}
		}

		if len(part.Parts) > 0 {
			body.merge(extractBody(part, errs))
		}
	}

	return body
}
