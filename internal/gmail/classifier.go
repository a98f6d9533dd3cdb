package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Category is the coarse importance class of a message
type Category string

const (
	CategoryImportant Category = "important"
	CategoryOther     Category = "other"
)

// promotionalKeywords mark bulk or automated mail. Matching is on lower-cased
// content.
var promotionalKeywords = []string{
	"unsubscribe",
	"manage preferences",
	"promotional offer",
	"special deal",
	"limited time",
	"do not reply",
	"newsletter",
	"marketing email",
	"powered by",
	"you are receiving this email",
	"update your preferences",
	"click here to unsubscribe",
	"this is an automated message",
	"tracking number",
}

// systemLabels maps upper-cased names to Gmail's system label ids.
var systemLabels = map[string]string{
	"INBOX":               "INBOX",
	"STARRED":             "STARRED",
	"SENT":                "SENT",
	"DRAFT":               "DRAFT",
	"SPAM":                "SPAM",
	"TRASH":               "TRASH",
	"IMPORTANT":           "IMPORTANT",
	"UNREAD":              "UNREAD",
	"CATEGORY_PERSONAL":   "CATEGORY_PERSONAL",
	"CATEGORY_SOCIAL":     "CATEGORY_SOCIAL",
	"CATEGORY_PROMOTIONS": "CATEGORY_PROMOTIONS",
	"CATEGORY_UPDATES":    "CATEGORY_UPDATES",
	"CATEGORY_FORUMS":     "CATEGORY_FORUMS",
}

// NormalizeLabelID maps a system label given in any case to its Gmail id.
// User label ids are returned unchanged.
func NormalizeLabelID(label string) string {
	label = strings.TrimSpace(label)
	if id, ok := systemLabels[strings.ToUpper(label)]; ok {
		return id
	}
	return label
}

// NormalizeLabelIDs applies NormalizeLabelID to every non-empty label.
func NormalizeLabelIDs(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = NormalizeLabelID(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Classify returns CategoryOther for messages that look promotional or
// automated and CategoryImportant for everything else. Undecodable parts are
// ignored; the snippet and any decodable content are still inspected.
func Classify(m *gmail.Message) Category {
	if m == nil {
		return CategoryImportant
	}

	if len(ParseListUnsubscribe(HeaderValue(m, "List-Unsubscribe"))) > 0 {
		return CategoryOther
	}

	body, _ := ExtractBody(m.Payload)
	content := strings.ToLower(strings.Join([]string{m.Snippet, body.TextOrEmpty(), body.HTMLOrEmpty()}, " "))

	for _, keyword := range promotionalKeywords {
		if strings.Contains(content, keyword) {
			return CategoryOther
		}
	}
	return CategoryImportant
}
