package threatscore

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zero-day-ai/threatscore"

// profileMetrics holds the metric instruments of a Profiler.
type profileMetrics struct {
	// total records defined composite scores (0 to 100, unbounded above)
	total metric.Float64Histogram

	// profiles increments for every computed profile
	profiles metric.Int64Counter

	// insufficient increments for every profile whose score is undefined
	insufficient metric.Int64Counter
}

func newProfileMetrics(meter metric.Meter) (*profileMetrics, error) {
	if meter == nil {
		return nil, nil
	}

	m := &profileMetrics{}
	var err error

	m.total, err = meter.Float64Histogram(
		"threatscore.total",
		metric.WithDescription("Composite risk score of a profiled actor"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create total histogram: %w", err)
	}

	m.profiles, err = meter.Int64Counter(
		"threatscore.profiles",
		metric.WithDescription("Number of profiles computed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create profiles counter: %w", err)
	}

	m.insufficient, err = meter.Int64Counter(
		"threatscore.insufficient_data",
		metric.WithDescription("Number of profiles without a defined score"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create insufficient data counter: %w", err)
	}

	return m, nil
}

// observe annotates the profile span and records the profile metrics.
func (p *Profiler) observe(ctx context.Context, span trace.Span, profile *ActorProfile, cached bool) {
	actor := profile.Actor.ID
	if actor == "" {
		actor = profile.Query
	}

	span.SetAttributes(
		attribute.String("threatscore.actor", actor),
		attribute.Bool("threatscore.known_actor", profile.Known),
		attribute.Bool("threatscore.cached", cached),
		attribute.Int("threatscore.techniques", len(profile.Techniques)),
		attribute.String("threatscore.run_id", profile.RunID),
	)

	total, defined := profile.Score.Total.Value()
	if defined {
		span.SetAttributes(attribute.Float64("threatscore.total", total))
		span.SetStatus(codes.Ok, "")
	} else if err := profile.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insufficient data")
	}

	if p.metrics == nil || cached {
		return
	}

	opts := metric.WithAttributes(
		attribute.Bool("known_actor", profile.Known),
		attribute.String("actor_type", string(profile.ActorType)),
	)
	p.metrics.profiles.Add(ctx, 1, opts)
	if defined {
		p.metrics.total.Record(ctx, total, opts)
	} else {
		p.metrics.insufficient.Add(ctx, 1, opts)
	}
}
