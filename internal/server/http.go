package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Default timeouts for the API listener.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultIdleTimeout       = 120 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// HTTPServer is an http.Server that reports its bound address once listening.
type HTTPServer struct {
	name string
	srv  *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewHTTPServer creates a server for handler on addr. name is used in logs.
func NewHTTPServer(name, addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		name: name,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}
}

// Start listens and serves until Shutdown. ready, when non-nil, is closed
// once the listener is bound. Like http.Server, it returns
// http.ErrServerClosed after a graceful shutdown.
func (s *HTTPServer) Start(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	slog.Info("starting "+s.name+" server", "addr", ln.Addr().String())
	if ready != nil {
		close(ready)
	}
	return s.srv.Serve(ln)
}

// Addr returns the bound address once listening, else the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Shutdown gracefully stops the server. It is a no-op before Start.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	started := s.listener != nil
	s.mu.Unlock()
	if !started {
		return nil
	}

	slog.Info("shutting down " + s.name + " server")
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// SetTimeouts overrides the write and idle timeouts.
func (s *HTTPServer) SetTimeouts(write, idle time.Duration) {
	s.srv.WriteTimeout = write
	s.srv.IdleTimeout = idle
}
