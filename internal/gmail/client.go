package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/mailbridge/internal/instrumentation"
)

// userID is the Gmail API alias for the owner of the access token.
const userID = "me"

// DefaultFetchConcurrency bounds concurrent message fetches in GetMessages.
const DefaultFetchConcurrency = 8

// Client wraps the Gmail Users service for a single access token
type Client struct {
	svc              *gmail.UsersService
	metrics          *instrumentation.Metrics
	fetchConcurrency int
}

type clientOptions struct {
	endpoint         string
	httpClient       *http.Client
	metrics          *instrumentation.Metrics
	fetchConcurrency int
	timeout          time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

// WithEndpoint overrides the Gmail API base URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(o *clientOptions) {
		o.endpoint = endpoint
	}
}

// WithBaseHTTPClient sets the HTTP client whose transport carries the
// authorized requests. Its transport is wrapped, not replaced.
func WithBaseHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithMetrics enables Google API metrics for every operation.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(o *clientOptions) {
		o.metrics = m
	}
}

// WithFetchConcurrency sets the maximum number of concurrent fetches in
// GetMessages. Values below 1 fall back to DefaultFetchConcurrency.
func WithFetchConcurrency(n int) ClientOption {
	return func(o *clientOptions) {
		o.fetchConcurrency = n
	}
}

// NewClientWithToken creates a Gmail client that authorizes every request
// with the given OAuth access token. The token is used as-is; it is never
// refreshed.
func NewClientWithToken(ctx context.Context, accessToken string, opts ...ClientOption) (*Client, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	o := clientOptions{
		fetchConcurrency: DefaultFetchConcurrency,
		timeout:          30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fetchConcurrency < 1 {
		o.fetchConcurrency = DefaultFetchConcurrency
	}

	base := http.DefaultTransport
	if o.httpClient != nil && o.httpClient.Transport != nil {
		base = o.httpClient.Transport
	}

	httpClient := &http.Client{
		Timeout: o.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: accessToken,
				TokenType:   "Bearer",
			}),
			Base: otelhttp.NewTransport(base),
		},
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}

	svc, err := gmail.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:              svc.Users,
		metrics:          o.metrics,
		fetchConcurrency: o.fetchConcurrency,
	}, nil
}

// observe runs fn inside a Gmail API span and records the operation metrics.
func (c *Client) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))

	return err
}

// ListMessages lists message references matching opts.
func (c *Client) ListMessages(ctx context.Context, opts ListOptions) (*gmail.ListMessagesResponse, error) {
	var res *gmail.ListMessagesResponse
	err := c.observe(ctx, "list_messages", func(ctx context.Context) error {
		req := c.svc.Messages.List(userID).Context(ctx)
		if opts.MaxResults > 0 {
			req.MaxResults(opts.MaxResults)
		}
		if opts.Query != "" {
			req.Q(opts.Query)
		}
		if opts.PageToken != "" {
			req.PageToken(opts.PageToken)
		}
		if len(opts.LabelIDs) > 0 {
			req.LabelIds(opts.LabelIDs...)
		}
		if opts.IncludeSpamTrash {
			req.IncludeSpamTrash(true)
		}

		var err error
		res, err = req.Do()
		if err != nil {
			return fmt.Errorf("failed to list messages: %w", err)
		}
		return nil
	})
	return res, err
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	return c.getMessage(ctx, messageID, FormatFull)
}

// GetMessageMetadata retrieves a message in metadata format. When headers is
// empty Gmail returns every header.
func (c *Client) GetMessageMetadata(ctx context.Context, messageID string, headers ...string) (*gmail.Message, error) {
	return c.getMessage(ctx, messageID, FormatMetadata, headers...)
}

func (c *Client) getMessage(ctx context.Context, messageID, format string, headers ...string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	var msg *gmail.Message
	err := c.observe(ctx, "get_message", func(ctx context.Context) error {
		req := c.svc.Messages.Get(userID, messageID).Format(format).Context(ctx)
		if format == FormatMetadata && len(headers) > 0 {
			req.MetadataHeaders(headers...)
		}

		var err error
		msg, err = req.Do()
		if err != nil {
			return fmt.Errorf("failed to get message %s: %w", messageID, err)
		}
		return nil
	})
	return msg, err
}

// GetMessages fetches several messages concurrently. The result has one entry
// per id, in the order of ids. A failed fetch sets that entry's Err and does
// not stop the others.
func (c *Client) GetMessages(ctx context.Context, ids []string, format string, headers ...string) []FetchResult {
	results := make([]FetchResult, len(ids))

	var g errgroup.Group
	g.SetLimit(c.fetchConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			msg, err := c.getMessage(ctx, id, format, headers...)
			results[i] = FetchResult{ID: id, Message: msg, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ListThreads lists thread references matching opts.
func (c *Client) ListThreads(ctx context.Context, opts ListOptions) (*gmail.ListThreadsResponse, error) {
	var res *gmail.ListThreadsResponse
	err := c.observe(ctx, "list_threads", func(ctx context.Context) error {
		req := c.svc.Threads.List(userID).Context(ctx)
		if opts.MaxResults > 0 {
			req.MaxResults(opts.MaxResults)
		}
		if opts.Query != "" {
			req.Q(opts.Query)
		}
		if opts.PageToken != "" {
			req.PageToken(opts.PageToken)
		}
		if len(opts.LabelIDs) > 0 {
			req.LabelIds(opts.LabelIDs...)
		}
		if opts.IncludeSpamTrash {
			req.IncludeSpamTrash(true)
		}

		var err error
		res, err = req.Do()
		if err != nil {
			return fmt.Errorf("failed to list threads: %w", err)
		}
		return nil
	})
	return res, err
}

// GetThread retrieves a full Gmail thread with all its messages
func (c *Client) GetThread(ctx context.Context, threadID string) (*gmail.Thread, error) {
	if threadID == "" {
		return nil, fmt.Errorf("threadID is required")
	}

	var thread *gmail.Thread
	err := c.observe(ctx, "get_thread", func(ctx context.Context) error {
		var err error
		thread, err = c.svc.Threads.Get(userID, threadID).Format(FormatFull).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get thread %s: %w", threadID, err)
		}
		return nil
	})
	return thread, err
}

// TrashMessage moves a message to the trash
func (c *Client) TrashMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	var msg *gmail.Message
	err := c.observe(ctx, "trash_message", func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Trash(userID, messageID).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to trash message %s: %w", messageID, err)
		}
		return nil
	})
	return msg, err
}

// UntrashMessage restores a message from the trash
func (c *Client) UntrashMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	var msg *gmail.Message
	err := c.observe(ctx, "untrash_message", func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Untrash(userID, messageID).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to untrash message %s: %w", messageID, err)
		}
		return nil
	})
	return msg, err
}

// ModifyLabels adds and removes labels on a single message
func (c *Client) ModifyLabels(ctx context.Context, messageID string, add, remove []string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	var msg *gmail.Message
	err := c.observe(ctx, "modify_message", func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Modify(userID, messageID, &gmail.ModifyMessageRequest{
			AddLabelIds:    NormalizeLabelIDs(add),
			RemoveLabelIds: NormalizeLabelIDs(remove),
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to modify message %s: %w", messageID, err)
		}
		return nil
	})
	return msg, err
}

// BatchModifyLabels adds and removes labels on many messages in one call
func (c *Client) BatchModifyLabels(ctx context.Context, messageIDs []string, add, remove []string) error {
	if len(messageIDs) == 0 {
		return fmt.Errorf("at least one message ID is required")
	}

	return c.observe(ctx, "batch_modify_messages", func(ctx context.Context) error {
		err := c.svc.Messages.BatchModify(userID, &gmail.BatchModifyMessagesRequest{
			Ids:            messageIDs,
			AddLabelIds:    NormalizeLabelIDs(add),
			RemoveLabelIds: NormalizeLabelIDs(remove),
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to batch modify %d messages: %w", len(messageIDs), err)
		}
		return nil
	})
}

// ListLabels lists all labels in the user's mailbox
func (c *Client) ListLabels(ctx context.Context) ([]*gmail.Label, error) {
	var labels []*gmail.Label
	err := c.observe(ctx, "list_labels", func(ctx context.Context) error {
		res, err := c.svc.Labels.List(userID).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to list labels: %w", err)
		}
		labels = res.Labels
		return nil
	})
	return labels, err
}
