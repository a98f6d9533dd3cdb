package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// UnsubscribeInfo contains information about how to unsubscribe from a sender
type UnsubscribeInfo struct {
	MessageID      string              `json:"messageId"`
	HasUnsubscribe bool                `json:"hasUnsubscribe"`
	Methods        []UnsubscribeMethod `json:"methods"`
}

// UnsubscribeMethod represents a single unsubscribe method
type UnsubscribeMethod struct {
	Type string `json:"type"` // "mailto" or "http"
	URL  string `json:"url"`
}

// NewUnsubscribeInfo extracts List-Unsubscribe information from a message
func NewUnsubscribeInfo(m *gmail.Message) UnsubscribeInfo {
	info := UnsubscribeInfo{
		Methods: []UnsubscribeMethod{},
	}
	if m == nil {
		return info
	}
	info.MessageID = m.Id

	// Format: <mailto:unsub@example.com>, <http://example.com/unsub>
	if methods := ParseListUnsubscribe(HeaderValue(m, "List-Unsubscribe")); len(methods) > 0 {
		info.HasUnsubscribe = true
		info.Methods = methods
	}

	return info
}

// ParseListUnsubscribe parses the List-Unsubscribe header value
func ParseListUnsubscribe(header string) []UnsubscribeMethod {
	var methods []UnsubscribeMethod

	for _, part := range strings.Split(header, "<") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		endIdx := strings.Index(part, ">")
		if endIdx == -1 {
			continue
		}

		url := strings.TrimSpace(part[:endIdx])
		lower := strings.ToLower(url)

		switch {
		case strings.HasPrefix(lower, "mailto:"):
			methods = append(methods, UnsubscribeMethod{Type: "mailto", URL: url})
		case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
			methods = append(methods, UnsubscribeMethod{Type: "http", URL: url})
		}
	}

	return methods
}
