package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func wrap(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection through the
// wrapper. A successful upgrade reports 101.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacker not supported")
	}
	conn, buf, err := h.Hijack()
	if err == nil {
		rw.statusCode = http.StatusSwitchingProtocols
	}
	return conn, buf, err
}

func TracerMiddleware(app string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(app)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx,
				r.Method+" "+r.URL.Path,
				trace.WithAttributes(
					semconv.ServiceName(app),
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPathKey.String(r.URL.Path),
				),
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()
			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))
			span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(wrapped.statusCode))
			if wrapped.statusCode >= 400 {
				span.SetStatus(codes.Error, "request failed")
			}
		})
	}
}
