package middleware

import (
	"context"
	"dealwire/pkg/logging"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type loggerKeyType struct{}

var LoggerKey = loggerKeyType{}

// RequestIDHeader is echoed back, or generated when the caller sent none.
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs every request and injects a request scoped logger.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			reqLog := log.With(
				logging.RequestID(reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)
			if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
				reqLog = reqLog.With(logging.TraceID(sc.TraceID().String()))
			}

			ctx := context.WithValue(r.Context(), LoggerKey, reqLog)
			reqLog.DebugContext(ctx, "request started")

			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			reqLog.InfoContext(ctx, "request completed",
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
