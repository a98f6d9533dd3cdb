package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/mailbridge/internal/instrumentation"
	"github.com/teemow/mailbridge/internal/logging"
)

// TokenRequiredMessage is returned when a request carries no access token.
const TokenRequiredMessage = "OAuth token is required. Provide it in the request body, query parameter, or Authorization header"

type contextKey int

const accessTokenKey contextKey = iota

// AccessToken returns the caller token stored by the token middleware.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}

// requireToken resolves the caller's access token and rejects requests
// without one. Lookup order: body accessToken, body oauth_token, the
// oauth_token query parameter, then an Authorization bearer header.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractToken(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}
		if token == "" {
			writeError(w, http.StatusBadRequest, TokenRequiredMessage)
			return
		}

		h.logger.DebugContext(r.Context(), "access token resolved",
			slog.String("token", logging.SanitizeToken(token)))

		ctx := context.WithValue(r.Context(), accessTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the body to look for a token and restores it for the
// handler.
func extractToken(r *http.Request) (string, error) {
	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return "", err
		}
		r.Body = io.NopCloser(bytes.NewReader(data))

		var creds struct {
			AccessToken string `json:"accessToken"`
			OAuthToken  string `json:"oauth_token"`
		}
		if len(data) > 0 && json.Unmarshal(data, &creds) == nil {
			if creds.AccessToken != "" {
				return creds.AccessToken, nil
			}
			if creds.OAuthToken != "" {
				return creds.OAuthToken, nil
			}
		}
	}

	if token := r.URL.Query().Get("oauth_token"); token != "" {
		return token, nil
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")), nil
	}
	return "", nil
}

func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// observe records request metrics, names the server span after the matched
// route and logs the outcome.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		metrics := h.sc.Metrics()

		metrics.IncrementInFlight(ctx)
		defer metrics.DecrementInFlight(ctx)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)

		metrics.RecordHTTPRequest(ctx, r.Method, route, r.URL.Path, status, duration)

		if route != "" {
			span := trace.SpanFromContext(ctx)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(attribute.String(instrumentation.SpanAttrRoute, route))
		}

		level := slog.LevelDebug
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelInfo
		}
		logging.WithRequest(h.logger, r.Method, instrumentation.RouteLabel(route), middleware.GetReqID(ctx)).
			LogAttrs(ctx, level, "request completed",
				slog.Int(logging.KeyStatus, status),
				slog.Duration(logging.KeyDuration, duration),
			)
	})
}

// routePattern returns the chi pattern that matched r, or "".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
