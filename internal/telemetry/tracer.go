// Package telemetry bootstraps OpenTelemetry tracing.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/servhooks/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ServiceName is reported on every span.
const ServiceName = "servhooks"

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Option configures InitTracer.
type Option func(*settings)

type settings struct {
	out io.Writer
}

// WithWriter sends exported spans to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.out = w
		}
	}
}

// InitTracer installs a global tracer provider exporting to stdout. When
// disabled the global no-op provider is left in place.
func InitTracer(ctx context.Context, enabled bool, opts ...Option) (Shutdown, error) {
	log := logger.Get().Named("telemetry")
	if !enabled {
		log.Debug(ctx, "tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	s := settings{out: os.Stdout}
	for _, opt := range opts {
		opt(&s)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(s.out))
	if err != nil {
		return nil, fmt.Errorf("stdout exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "OpenTelemetry initialized", logger.String("service", ServiceName))
	return tp.Shutdown, nil
}
