package threatscore

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/threatscore/store"
)

// Option configures a Profiler.
type Option func(*Profiler)

// WithLogger sets a custom logger for the profiler.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets an OpenTelemetry tracer. Every profile is recorded as a
// "threatscore.profile" span.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Profiler) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithMeterProvider enables the threatscore.* metric instruments.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(p *Profiler) {
		if provider != nil {
			p.meter = provider.Meter(instrumentationName)
		}
	}
}

// WithCache sets the cache consulted before computing a profile and written
// after. Cache failures are logged and never fail a profile.
func WithCache(cache store.ProfileCache) Option {
	return func(p *Profiler) {
		p.cache = cache
	}
}
