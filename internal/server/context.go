package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/teemow/mailbridge/internal/gmail"
	"github.com/teemow/mailbridge/internal/instrumentation"
)

// ErrShuttingDown is returned when a client is requested after Shutdown.
var ErrShuttingDown = errors.New("server is shutting down")

// ServerContext holds the dependencies shared by all requests. Gmail clients
// are bound to the caller's access token and built per request.
type ServerContext struct {
	ctx        context.Context
	cancel     context.CancelFunc
	clientOpts []gmail.ClientOption
	metrics    *instrumentation.Metrics
	audit      *instrumentation.AuditLogger
	mu         sync.RWMutex
	shutdown   bool
}

// NewServerContext creates a server context. opts are applied to every
// Gmail client it builds.
func NewServerContext(ctx context.Context, opts ...gmail.ClientOption) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		clientOpts: opts,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// GmailClient builds a Gmail client for accessToken. Client construction
// does not contact Gmail; an invalid token surfaces on the first call.
func (sc *ServerContext) GmailClient(ctx context.Context, accessToken string) (*gmail.Client, error) {
	sc.mu.RLock()
	shutdown := sc.shutdown
	opts := make([]gmail.ClientOption, 0, len(sc.clientOpts)+1)
	opts = append(opts, sc.clientOpts...)
	if sc.metrics != nil {
		opts = append(opts, gmail.WithMetrics(sc.metrics))
	}
	sc.mu.RUnlock()

	if shutdown {
		return nil, ErrShuttingDown
	}

	client, err := gmail.NewClientWithToken(ctx, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}
	return client, nil
}

// SetMetrics sets the metrics recorder used by handlers and Gmail clients.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder; nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger for mutating operations.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.audit = al
}

// AuditLogger returns the audit logger; nil disables auditing.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.audit
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
