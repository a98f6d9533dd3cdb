package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/mailbridge/internal/server"
)

// DefaultMaxBodyBytes caps request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 40 << 20

// Options configures the API router.
type Options struct {
	// ServerContext builds per-request Gmail clients. Required.
	ServerContext *server.ServerContext
	// Health, when set, mounts /healthz, /readyz and /healthz/detailed.
	Health *server.HealthChecker
	Logger *slog.Logger

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Empty allows any origin.
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	// BatchConcurrency bounds concurrent Gmail calls of batch operations.
	BatchConcurrency int
}

// Handler serves the /email endpoints.
type Handler struct {
	sc               *server.ServerContext
	logger           *slog.Logger
	maxBodyBytes     int64
	batchConcurrency int
}

// NewRouter returns the HTTP handler of the mailbridge API.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	batchConcurrency := opts.BatchConcurrency
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}

	h := &Handler{
		sc:               opts.ServerContext,
		logger:           logger,
		maxBodyBytes:     maxBody,
		batchConcurrency: batchConcurrency,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	if opts.Health != nil {
		opts.Health.RegisterHealthEndpoints(r)
	}

	r.Route("/email", func(r chi.Router) {
		r.Use(h.limitBody)
		r.Use(h.requireToken)

		r.Get("/list", h.listEmails)
		r.Post("/list-with-token", h.listWithToken)
		r.Get("/messages", h.listCategorized)
		r.Get("/get-email/{id}", h.getEmail)
		r.Get("/messages/{id}", h.getMessage)
		r.Get("/full-email/{id}", h.getFullEmail)
		r.Get("/full-thread/{id}", h.getFullEmail)

		r.Get("/messages/{id}/attachments", h.listAttachments)
		r.Get("/messages/{id}/attachments/{attachmentId}", h.getAttachment)

		r.Get("/threads", h.listThreads)
		r.Get("/threads/{id}", h.getThread)

		r.Post("/messages/{id}/trash", h.trash)
		r.Post("/messages/{id}/untrash", h.untrash)
		r.Post("/messages/{id}/modify", h.modifyLabels)
		r.Post("/messages/batch-modify", h.batchModifyLabels)
		r.Post("/messages/batch-trash", h.batchTrash)

		r.Post("/send", h.send)
		r.Post("/drafts/reply", h.draftReply)
	})

	return otelhttp.NewHandler(r, "mailbridge")
}
