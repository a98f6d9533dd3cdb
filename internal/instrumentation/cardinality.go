package instrumentation

import "strings"

// Cardinality helpers reduce label values that would otherwise create one
// series per user, message or path.

// ExtractUserDomain returns the domain of an email address. Addresses in
// "Name <user@host>" form are accepted.
//
//	ExtractUserDomain("jane@example.com")          // "example.com"
//	ExtractUserDomain("Jane <jane@example.com>")   // "example.com"
//	ExtractUserDomain("invalid")                   // "unknown"
func ExtractUserDomain(email string) string {
	email = strings.TrimSpace(email)
	if start := strings.LastIndex(email, "<"); start >= 0 {
		email = strings.TrimSuffix(email[start+1:], ">")
	}

	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "unknown"
	}
	return strings.ToLower(email[at+1:])
}

// RouteLabel returns the route pattern used as a metric label. Requests that
// matched no route share a single label.
func RouteLabel(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}

// CountBucket maps a count of messages to a bounded label.
func CountBucket(n int) string {
	switch {
	case n <= 0:
		return "0"
	case n == 1:
		return "1"
	case n <= 10:
		return "2-10"
	case n <= 100:
		return "11-100"
	default:
		return "100+"
	}
}

// Audited operations on the HTTP API.
const (
	OperationTrash       = "trash"
	OperationUntrash     = "untrash"
	OperationModify      = "modify_labels"
	OperationBatchModify = "batch_modify_labels"
	OperationBatchTrash  = "batch_trash"
	OperationSend        = "send"
	OperationDraft       = "create_draft"
	OperationDraftReply  = "draft_reply"
)
