package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"hyperliquid-pnl-lab/internal/idhash"
	"hyperliquid-pnl-lab/internal/tracing"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// instrument assigns a request ID, opens a span, records metrics and logs
// one access line per request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		s.requests.Add(1)

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = idhash.NewID()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		ctx, span := tracing.StartSpan(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("request_id", id),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w}
		req := r.WithContext(ctx)
		next.ServeHTTP(rec, req)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(began)

		span.SetName(route)
		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(route, r.Method, strconv.Itoa(rec.status), elapsed.Seconds())
		}

		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.String("remote", r.RemoteAddr),
		}
		if traceID, ok := tracing.TraceID(ctx); ok {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Warn("http request", fields...)
		} else {
			s.logger.Info("http request", fields...)
		}
	})
}
