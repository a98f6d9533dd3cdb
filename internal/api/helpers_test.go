package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/teemow/mailbridge/internal/gmail"
	"github.com/teemow/mailbridge/internal/server"
)

func TestGmailErrorResponse(t *testing.T) {
	wrap := func(code int) error {
		return fmt.Errorf("failed to get message m1: %w", &googleapi.Error{Code: code, Message: "upstream"})
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"unauthorized", wrap(http.StatusUnauthorized), http.StatusUnauthorized, "Invalid or expired access token"},
		{"forbidden", wrap(http.StatusForbidden), http.StatusForbidden, "Insufficient permissions"},
		{"not found", wrap(http.StatusNotFound), http.StatusNotFound, "Email not found"},
		{"rate limited", wrap(http.StatusTooManyRequests), http.StatusTooManyRequests, "Rate limit exceeded"},
		{"upstream failure", wrap(http.StatusBadGateway), http.StatusInternalServerError, "Failed to fetch emails"},
		{"transport", errors.New("connection reset"), http.StatusInternalServerError, "Failed to fetch emails"},
		{"shutting down", server.ErrShuttingDown, http.StatusServiceUnavailable, "Server is shutting down"},
		{"too large", fmt.Errorf("%w: size 1", gmail.ErrAttachmentTooLarge), http.StatusRequestEntityTooLarge, "Attachment too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := gmailErrorResponse(tt.err, "Email not found")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantError, body.Error)
		})
	}

	_, body := gmailErrorResponse(errors.New("connection reset"), "")
	assert.Equal(t, "connection reset", body.Message)

	_, body = gmailErrorResponse(wrap(http.StatusNotFound), "")
	assert.Equal(t, "Not found", body.Error)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "not_found", failureReason(&googleapi.Error{Code: http.StatusNotFound}))
	assert.Equal(t, "rate_limited", failureReason(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.Equal(t, "upstream_error", failureReason(&googleapi.Error{Code: http.StatusServiceUnavailable}))
	assert.Equal(t, "canceled", failureReason(fmt.Errorf("get: %w", context.Canceled)))
	assert.Equal(t, "transport", failureReason(errors.New("dial tcp: refused")))
}

func TestListOptions(t *testing.T) {
	tests := []struct {
		name  string
		query string
		def   int64
		want  gmail.ListOptions
	}{
		{
			name: "defaults",
			def:  defaultListSize,
			want: gmail.ListOptions{MaxResults: 10},
		},
		{
			name:  "all parameters",
			query: "maxResults=25&q=from:jane&pageToken=abc&labelIds=inbox,Label_7&includeSpamTrash=true",
			def:   defaultPageSize,
			want: gmail.ListOptions{
				MaxResults:       25,
				Query:            "from:jane",
				PageToken:        "abc",
				LabelIDs:         []string{"INBOX", "Label_7"},
				IncludeSpamTrash: true,
			},
		},
		{
			name:  "capped",
			query: "maxResults=10000",
			def:   defaultPageSize,
			want:  gmail.ListOptions{MaxResults: maxPageSize},
		},
		{
			name:  "invalid falls back",
			query: "maxResults=lots&includeSpamTrash=yes",
			def:   defaultPageSize,
			want:  gmail.ListOptions{MaxResults: 50},
		},
		{
			name:  "zero falls back",
			query: "maxResults=0",
			def:   defaultListSize,
			want:  gmail.ListOptions{MaxResults: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/email/list?"+tt.query, nil)
			assert.Equal(t, tt.want, listOptions(r, tt.def))
		})
	}
}

func TestRecipients(t *testing.T) {
	got, err := recipients([]byte(`"a@example.com, b@example.com"`), "to")
	assert.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got)

	got, err = recipients([]byte(`["a@example.com","b@example.com, c@example.com"]`), "cc")
	assert.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, got)

	got, err = recipients(nil, "bcc")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = recipients([]byte(`42`), "to")
	assert.Error(t, err)
}
