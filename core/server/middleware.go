package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yarumotors/bot/core/logger"
)

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-ID"

// RequestID tags the request context with a fresh uuid used as rid until an
// interaction id replaces it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRID(r.Context(), id)))
	})
}

// Trace copies the active span's ids into the logging context. It must run
// inside the otelhttp handler.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := trace.SpanContextFromContext(r.Context())
		if sc.IsValid() {
			r = r.WithContext(logger.WithTrace(r.Context(), sc.TraceID().String(), sc.SpanID().String()))
		}
		next.ServeHTTP(w, r)
	})
}

// Logging writes one "http.request" line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		level := slog.LevelInfo
		status := "ok"
		switch {
		case rw.status == http.StatusUnauthorized:
			level, status = slog.LevelWarn, "unauthorized"
		case rw.status >= 500:
			level, status = slog.LevelError, "fail"
		case rw.status >= 400:
			level, status = slog.LevelWarn, "fail"
		}
		attrs := []slog.Attr{
			slog.String("status", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_status", rw.status),
			slog.Duration("duration", logger.Took(start)),
		}
		if logger.TraceEnabled() {
			attrs = append(attrs,
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", logger.SanitizeLimit(r.UserAgent(), 128)),
			)
		}
		logger.Event(r.Context(), logger.CompHTTP, level, "http.request", attrs...)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Timeout bounds the request context.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
