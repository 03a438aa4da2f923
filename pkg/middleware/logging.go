package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"sweeper/pkg/logger"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

const (
	HeaderCloudTraceContext = "X-Cloud-Trace-Context"
	HeaderRequestID         = "X-Request-ID"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func RequestLogging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := requestIDFromHeaders(r)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			r = r.WithContext(ctx)

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     200,
				written:        false,
			}

			log.Info("HTTP request started",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			log.Info("HTTP request completed",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
			)
		})
	}
}

// RequestID returns the id assigned by RequestLogging, or a fresh one when the
// request did not pass through it.
func RequestID(r *http.Request) string {
	if rid, ok := r.Context().Value(RequestIDKey).(string); ok && rid != "" {
		return rid
	}
	return requestIDFromHeaders(r)
}

// Cloud Scheduler sends a trace context header; manual callers may send their own id.
func requestIDFromHeaders(r *http.Request) string {
	if v := r.Header.Get(HeaderCloudTraceContext); v != "" {
		return v
	}
	if v := r.Header.Get(HeaderRequestID); v != "" {
		return v
	}
	return uuid.NewString()
}
