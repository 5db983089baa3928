// Package otel configures the process-wide tracer provider from the standard
// OTEL_* environment variables.
package otel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"habilitaciones/internal/logging"
)

const defaultServiceName = "habilitaciones"

// Init installs a tracer provider exporting over OTLP. enabled is false when
// the SDK is disabled or the exporter could not be built; spans are then
// dropped and request tracing can be skipped.
func Init(ctx context.Context, log *logging.Logger) (shutdown func(context.Context) error, enabled bool, err error) {
	noop := func(context.Context) error { return nil }
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if os.Getenv("OTEL_SDK_DISABLED") == "true" {
		logStartup(log, false, "", "", "", "")
		return noop, false, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(getEnv("OTEL_SERVICE_NAME", defaultServiceName)),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	// Detectors that fail (process owner in minimal containers) still leave a
	// usable resource.
	if err != nil && !errors.Is(err, resource.ErrPartialResource) {
		return nil, false, fmt.Errorf("failed to create resource: %w", err)
	}

	protocol := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")
	if protocol == "" {
		protocol = "grpc" // default OTLP protocol
	}

	var exporter *otlptrace.Exporter
	var expErr error

	switch protocol {
	case "grpc":
		exporter, expErr = otlptracegrpc.New(ctx)
	case "http/protobuf":
		exporter, expErr = otlptracehttp.New(ctx)
	default:
		expErr = fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}

	if expErr != nil {
		// The global provider stays the no-op one.
		log.Error("tracing_init_failed", expErr, nil)
		return noop, false, nil
	}

	sampler, samplerName, samplerArg := samplerFromEnv()

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	logStartup(log, true, protocol, endpoint, samplerName, samplerArg)

	return tp.Shutdown, true, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// samplers maps OTEL_TRACES_SAMPLER values to constructors taking the ratio
// from OTEL_TRACES_SAMPLER_ARG.
var samplers = map[string]func(ratio float64) trace.Sampler{
	"always_on":                func(float64) trace.Sampler { return trace.AlwaysSample() },
	"always_off":               func(float64) trace.Sampler { return trace.NeverSample() },
	"traceidratio":             trace.TraceIDRatioBased,
	"parentbased_always_on":    func(float64) trace.Sampler { return trace.ParentBased(trace.AlwaysSample()) },
	"parentbased_always_off":   func(float64) trace.Sampler { return trace.ParentBased(trace.NeverSample()) },
	"parentbased_traceidratio": func(r float64) trace.Sampler { return trace.ParentBased(trace.TraceIDRatioBased(r)) },
}

// samplerFromEnv returns the configured sampler with the name and argument it
// was built from. Unknown names fall back to parent-based, sample everything.
func samplerFromEnv() (trace.Sampler, string, string) {
	name := getEnv("OTEL_TRACES_SAMPLER", "parentbased_traceidratio")
	arg := getEnv("OTEL_TRACES_SAMPLER_ARG", "1.0")
	build, ok := samplers[name]
	if !ok {
		return trace.ParentBased(trace.AlwaysSample()), name, arg
	}
	return build(parseRatio(arg)), name, arg
}

// parseRatio reads a sampling ratio, defaulting to 1 when arg is empty or
// malformed.
func parseRatio(arg string) float64 {
	ratio, err := strconv.ParseFloat(arg, 64)
	if err != nil || ratio < 0 {
		return 1.0
	}
	return ratio
}

func logStartup(log *logging.Logger, enabled bool, protocol, endpoint, sampler, samplerArg string) {
	entry := map[string]any{
		"level":           "info",
		"msg":             "tracing_configured",
		"tracing_enabled": enabled,
	}
	if enabled {
		entry["otlp_protocol"] = protocol
		entry["otlp_endpoint"] = endpoint
		entry["sampler"] = sampler
		entry["sampler_arg"] = samplerArg
	}
	log.Log(entry)
}
