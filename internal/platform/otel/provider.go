// Package otel configures process-wide OpenTelemetry tracing.
package otel

import (
	"context"
	"strings"

	"github.com/louisbranch/commongood/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Env holds the tracing settings read from the environment.
type Env struct {
	Endpoint    string  `env:"COMMONGOOD_OTEL_ENDPOINT"`
	Enabled     string  `env:"COMMONGOOD_OTEL_ENABLED"`
	SampleRatio float64 `env:"COMMONGOOD_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Active reports whether the settings request an exporter.
func (e Env) Active() bool {
	if strings.EqualFold(strings.TrimSpace(e.Enabled), "false") {
		return false
	}
	return strings.TrimSpace(e.Endpoint) != ""
}

// Sampler returns the sampler implied by SampleRatio.
func (e Env) Sampler() sdktrace.Sampler {
	if e.SampleRatio >= 1 {
		return sdktrace.AlwaysSample()
	}
	if e.SampleRatio <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(e.SampleRatio))
}

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in: when COMMONGOOD_OTEL_ENDPOINT is empty or
// COMMONGOOD_OTEL_ENABLED is "false", Setup returns a no-op shutdown
// function and no global provider is registered.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var env Env
	if err := config.ParseEnv(&env); err != nil {
		return noop, err
	}
	if !env.Active() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(env.Endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(env.Sampler()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
