package gmail

import gmail "google.golang.org/api/gmail/v1"

// Message formats accepted by the Gmail API.
const (
	FormatFull     = "full"
	FormatMetadata = "metadata"
)

// ListOptions filters message and thread listings.
type ListOptions struct {
	MaxResults       int64
	Query            string
	PageToken        string
	LabelIDs         []string
	IncludeSpamTrash bool
}

// FetchResult is the outcome of fetching one message in GetMessages.
type FetchResult struct {
	ID      string
	Message *gmail.Message
	Err     error
}
