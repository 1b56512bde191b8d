// Package rest exposes the store engine over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ragstore/internal/auth"
	"ragstore/internal/domain"
	"ragstore/internal/engine"
	"ragstore/internal/observability"
)

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// Body size limits.
const (
	DefaultMaxBodySize = 1 << 20  // 1MB
	UploadMaxBodySize  = 64 << 20 // 64MB for PDF uploads
)

// Request timeouts.
const (
	DefaultRequestTimeout = 30 * time.Second
	LongRequestTimeout    = 120 * time.Second // ingestion and LLM calls
)

// Handler wires the engine and the optional access-control layer into HTTP
// routes.
type Handler struct {
	engine *engine.Engine
	auth   *auth.Service // nil when access control is disabled
	origin string
}

func NewHandler(eng *engine.Engine, authSvc *auth.Service, origin string) *Handler {
	return &Handler{engine: eng, auth: authSvc, origin: origin}
}

// APIError is a structured error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeUnprocessable = "UNPROCESSABLE"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{Code: code, Message: message}); err != nil {
		slog.Warn("Failed to encode error response", "error", err)
	}
}

// writeEngineError maps engine failures onto status codes. Provider failures
// surface as a generic server error carrying the underlying message.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoExtractableText):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeUnprocessable, err.Error())
	case errors.Is(err, engine.ErrChatNotConfigured):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

// withRequestID adds a unique request ID to the context and response headers.
func withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next(w, r.WithContext(ctx))
	}
}

func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// withRecover catches handler panics and returns a generic 500.
func withRecover(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
					"stack", string(debug.Stack()),
					"request_id", getRequestID(r.Context()),
				)
				writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
			}
		}()
		next(w, r)
	}
}

func withTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

func maxBodySize(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// withMetrics records request counts, durations and a structured access log
// entry for the route.
func withMetrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		duration := time.Since(start)
		observability.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		observability.RequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
		slog.Info("HTTP request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
			"request_id", getRequestID(r.Context()),
		)
	}
}

// withCORS reflects the configured origin and answers preflight requests.
func (h *Handler) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// protected gates a handler behind the access-control layer when enabled.
func (h *Handler) protected(next http.HandlerFunc) http.HandlerFunc {
	if h.auth == nil {
		return next
	}
	return h.auth.Middleware(next)
}

// Routes builds the HTTP routing table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	wrap := func(route string, fn http.HandlerFunc, maxBytes int64, timeout time.Duration) http.HandlerFunc {
		return withRequestID(withRecover(withMetrics(route, withTimeout(maxBodySize(h.protected(fn), maxBytes), timeout))))
	}

	mux.HandleFunc("POST /data/v1/add_texts", wrap("add_texts", h.handleAddTexts, DefaultMaxBodySize, LongRequestTimeout))
	mux.HandleFunc("POST /data/v1/add_pdfs", wrap("add_pdfs", h.handleAddPDFs, UploadMaxBodySize, LongRequestTimeout))
	mux.HandleFunc("POST /data/v1/get_texts", wrap("get_texts", h.handleGetTexts, DefaultMaxBodySize, DefaultRequestTimeout))
	mux.HandleFunc("POST /data/v1/get_pdfs", wrap("get_pdfs", h.handleGetPDFs, DefaultMaxBodySize, DefaultRequestTimeout))
	mux.HandleFunc("GET /data/v1/get_databases", wrap("get_databases", h.handleGetDatabases, DefaultMaxBodySize, DefaultRequestTimeout))
	mux.HandleFunc("PUT /data/v1/update_texts", wrap("update_texts", h.handleUpdateTexts, DefaultMaxBodySize, LongRequestTimeout))
	mux.HandleFunc("DELETE /data/v1/delete_texts", wrap("delete_texts", h.handleDeleteTexts, DefaultMaxBodySize, DefaultRequestTimeout))
	mux.HandleFunc("DELETE /data/v1/delete_pdfs", wrap("delete_pdfs", h.handleDeletePDFs, DefaultMaxBodySize, DefaultRequestTimeout))
	mux.HandleFunc("DELETE /data/v1/delete_databases", wrap("delete_databases", h.handleDeleteDatabases, DefaultMaxBodySize, DefaultRequestTimeout))

	mux.HandleFunc("POST /cmd/v1/ask_question", wrap("ask_question", h.handleAskQuestion, DefaultMaxBodySize, LongRequestTimeout))
	mux.HandleFunc("POST /cmd/v1/build_context", wrap("build_context", h.handleBuildContext, DefaultMaxBodySize, DefaultRequestTimeout))

	if h.auth != nil {
		mux.HandleFunc("POST /auth/v1/token", withRequestID(withRecover(withMetrics("token", maxBodySize(h.handleToken, DefaultMaxBodySize)))))
	}

	mux.HandleFunc("GET /health", withRequestID(withRecover(h.handleHealth)))
	mux.Handle("GET /metrics", promhttp.Handler())

	return h.withCORS(mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, true)
}
