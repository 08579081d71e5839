package observability

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/assetdeck/api/internal/platform/requestctx"
)

// TraceMiddleware picks up the W3C traceparent header set by the load
// balancer so request logs correlate with gateway traces. Requests without
// the header pass through untouched.
func TraceMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			spanCtx, ok := spanContextFromHeader(r.Header.Get("traceparent"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := trace.ContextWithRemoteSpanContext(r.Context(), spanCtx)
			ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{
				TraceID: spanCtx.TraceID().String(),
				SpanID:  spanCtx.SpanID().String(),
				Sampled: spanCtx.IsSampled(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// spanContextFromHeader parses "00-<trace-id>-<span-id>-<flags>".
func spanContextFromHeader(header string) (trace.SpanContext, bool) {
	parts := strings.Split(strings.TrimSpace(header), "-")
	if len(parts) != 4 || parts[0] != "00" {
		return trace.SpanContext{}, false
	}

	traceID, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return trace.SpanContext{}, false
	}
	spanID, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return trace.SpanContext{}, false
	}

	var flags trace.TraceFlags
	if strings.HasSuffix(parts[3], "1") {
		flags = trace.FlagsSampled
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}), true
}
