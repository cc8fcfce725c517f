// OpenTelemetry tracing setup and chi-compatible tracing middleware for
// the fetch engine's demo HTTP surface, giving span-level visibility
// into schedule/cache/fetch lifecycles. The gateway's
// observability.Tracer was a hand-rolled, in-process span recorder;
// since go.mod already declares the real go.opentelemetry.io/otel SDK
// as a direct dependency, it is replaced outright (not adapted) with a
// genuine otel TracerProvider and stdouttrace exporter.

package observability

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/rs/zerolog"
)

const tracerName = "github.com/AlfredDev/alfred/services/fetchengine"

// NewTracerProvider builds an OpenTelemetry TracerProvider that exports
// spans as structured log lines via stdouttrace. sampleRatio is the
// fraction of traces sampled (1.0 in development).
func NewTracerProvider(log zerolog.Logger, sampleRatio float64) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName("fetchengine"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampleRatio)),
	)
	otel.SetTracerProvider(tp)
	log.Info().Float64("sample_ratio", sampleRatio).Msg("tracer provider initialized")
	return tp, nil
}

// TracingMiddleware starts a span per inbound HTTP request on the
// demo/admin surface.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StartSpan starts a span for an internal fetch-engine operation
// (schedule, cache lookup, store write) outside the HTTP middleware.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// ShutdownTracerProvider flushes and shuts down the TracerProvider
// within the given timeout.
func ShutdownTracerProvider(tp *sdktrace.TracerProvider, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return tp.Shutdown(ctx)
}
