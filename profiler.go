package threatscore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/threatscore/dataset"
	"github.com/zero-day-ai/threatscore/extract"
	"github.com/zero-day-ai/threatscore/incident"
	"github.com/zero-day-ai/threatscore/score"
	"github.com/zero-day-ai/threatscore/store"
	"github.com/zero-day-ai/threatscore/types"
)

// Profiler computes actor profiles from an immutable dataset snapshot.
// A Profiler is safe for concurrent use.
type Profiler struct {
	snapshot    *dataset.Snapshot
	frequencies *incident.Frequencies

	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *profileMetrics
	cache   store.ProfileCache
}

// ProfileOptions are the per-request scoring inputs.
type ProfileOptions struct {
	// Sector is the targeted sector label. When empty, the industry the
	// actor's incidents most often target is used.
	Sector string `json:"sector,omitempty"`

	// ActorType is the actor archetype label (e.g., "Nation-State").
	ActorType string `json:"actor_type,omitempty"`

	// Frequency overrides the incident frequency score when defined.
	Frequency types.Measure `json:"frequency"`

	// SkipCache computes the profile even when a cached one exists.
	SkipCache bool `json:"-"`
}

// IncidentSummary describes the incidents attributed to an actor.
type IncidentSummary struct {
	Count            int                      `json:"count"`
	Frequency        types.Measure            `json:"frequency"`
	DominantIndustry string                   `json:"dominant_industry,omitempty"`
	Timeline         []incident.TimelinePoint `json:"timeline"`
	Countries        []incident.CountryCount  `json:"countries"`
}

// ActorProfile is the full analysis of one actor or technique set.
type ActorProfile struct {
	RunID string `json:"run_id"`

	// Query is the actor identifier or technique list the profile was requested for.
	Query string `json:"query"`

	// Actor is the resolved group, zero when Known is false.
	Actor types.Actor `json:"actor"`
	Known bool        `json:"known"`

	Techniques []types.TechniqueID `json:"techniques"`

	Controls            extract.ControlSummary       `json:"controls"`
	Vulnerabilities     extract.VulnerabilitySummary `json:"vulnerabilities"`
	Impact              extract.ImpactSummary        `json:"impact"`
	Complexity          extract.ComplexitySummary    `json:"complexity"`
	TechniqueMitigation extract.TechniqueCoverage    `json:"technique_mitigation"`
	WeaknessMitigation  extract.WeaknessCoverage     `json:"weakness_mitigation"`
	Incidents           IncidentSummary              `json:"incidents"`

	Sector    score.Sector    `json:"sector"`
	ActorType score.ActorType `json:"actor_type"`
	Score     score.Result    `json:"score"`

	ComputedAt time.Time `json:"computed_at"`

	err error
}

// Err returns the scoring error of the profile, nil when the score is defined.
// It matches ErrInsufficientData.
func (p *ActorProfile) Err() error {
	if p.err != nil {
		return p.err
	}
	// Profiles decoded from the cache only carry the missing components.
	if len(p.Score.Missing) > 0 {
		return NewInsufficientDataError("Profiler.Profile", &score.InsufficientDataError{Missing: p.Score.Missing})
	}
	return nil
}

// New creates a Profiler over a snapshot. When frequencies is nil they are
// aggregated from the snapshot's incident log, counting the aliases of a group
// together.
func New(snapshot *dataset.Snapshot, frequencies *incident.Frequencies, opts ...Option) (*Profiler, error) {
	if snapshot == nil {
		return nil, NewConfigurationError("New", fmt.Errorf("%w: nil snapshot", ErrInvalidConfig))
	}
	if frequencies == nil {
		frequencies = incident.AggregateBy(snapshot.Incidents(), snapshot.CanonicalActor)
	}

	p := &Profiler{
		snapshot:    snapshot,
		frequencies: frequencies,
		logger:      slog.Default(),
		tracer:      tracenoop.NewTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(p)
	}

	metrics, err := newProfileMetrics(p.meter)
	if err != nil {
		return nil, NewInternalError("New", err)
	}
	p.metrics = metrics

	return p, nil
}

// Snapshot returns the dataset snapshot the profiler reads from.
func (p *Profiler) Snapshot() *dataset.Snapshot {
	return p.snapshot
}

// Frequencies returns the incident frequency population the profiler scores against.
func (p *Profiler) Frequencies() *incident.Frequencies {
	return p.frequencies
}

// Profile resolves an actor by ATT&CK ID, name or alias and profiles its
// techniques. An unknown actor still yields a profile, with no techniques and
// an undefined score; the returned error then wraps ErrActorNotFound. Scoring
// errors are not returned: see ActorProfile.Err.
func (p *Profiler) Profile(ctx context.Context, actorID string, opts ProfileOptions) (*ActorProfile, error) {
	ctx, span := p.tracer.Start(ctx, "threatscore.profile")
	defer span.End()

	actor, known := p.snapshot.Actor(actorID)
	cacheKey := profileCacheKey(actor.ID, opts)

	if known && p.cache != nil && !opts.SkipCache {
		var cached ActorProfile
		found, err := p.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			p.logger.Warn("profile cache read failed", "actor", actor.ID, "error", err)
		} else if found {
			p.logger.Debug("profile served from cache", "actor", actor.ID, "run_id", cached.RunID)
			p.observe(ctx, span, &cached, true)
			return &cached, nil
		}
	}

	keys := []string{actorID}
	if known {
		keys = append(keys, actor.ID, actor.Name)
		keys = append(keys, actor.Aliases...)
	}

	profile := p.compute(actorID, p.snapshot.Resolve(actorID), keys, opts)
	profile.Actor = actor
	profile.Known = known
	p.observe(ctx, span, profile, false)

	if !known {
		p.logger.Info("actor not found", "actor", actorID)
		return profile, NewNotFoundError("Profiler.Profile", ErrActorNotFound).WithContext(map[string]any{"actor": actorID})
	}

	p.logger.Debug("profile computed",
		"actor", actor.ID,
		"techniques", len(profile.Techniques),
		"total", profile.Score.Total.String(),
		"run_id", profile.RunID)

	if p.cache != nil {
		if err := p.cache.Put(ctx, cacheKey, profile); err != nil {
			p.logger.Warn("profile cache write failed", "actor", actor.ID, "error", err)
		}
		if err := p.cache.Publish(ctx, profileEvent(profile)); err != nil {
			p.logger.Warn("profile event publish failed", "actor", actor.ID, "error", err)
		}
	}

	return profile, nil
}

// ProfileTechniques profiles a technique set that is not tied to a known actor.
// Every identifier must be well formed. Incidents are not attributed, so the
// frequency is the population floor unless opts.Frequency is set.
func (p *Profiler) ProfileTechniques(ctx context.Context, techniques []types.TechniqueID, opts ProfileOptions) (*ActorProfile, error) {
	for _, id := range techniques {
		if !id.IsValid() {
			return nil, NewValidationError("Profiler.ProfileTechniques", fmt.Errorf("%w: %q", ErrInvalidTechnique, id))
		}
	}

	_, span := p.tracer.Start(ctx, "threatscore.profile")
	defer span.End()

	ids := make([]string, len(techniques))
	for i, id := range techniques {
		ids[i] = id.String()
	}

	profile := p.compute(strings.Join(ids, ", "), dedupTechniques(techniques), nil, opts)
	p.observe(ctx, span, profile, false)
	return profile, nil
}

// ProfileAll profiles every actor of the snapshot in ID order. A failure for
// one actor never stops the others: every scoring error is collected into the
// returned error, which is nil only when every score is defined. Cancelling ctx
// stops the run between actors.
func (p *Profiler) ProfileAll(ctx context.Context, opts ProfileOptions) ([]*ActorProfile, error) {
	ctx, span := p.tracer.Start(ctx, "threatscore.profile_all")
	defer span.End()

	actors := p.snapshot.Actors()
	profiles := make([]*ActorProfile, 0, len(actors))
	var errs []error

	for _, actor := range actors {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		profile, err := p.Profile(ctx, actor.ID, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", actor.ID, err))
			continue
		}
		if err := profile.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", actor.ID, err))
		}
		profiles = append(profiles, profile)
	}

	p.logger.Info("profiled actors", "actors", len(profiles), "errors", len(errs))
	return profiles, errors.Join(errs...)
}

// compute runs every extractor over the techniques and scores the result.
func (p *Profiler) compute(query string, techniques []types.TechniqueID, incidentKeys []string, opts ProfileOptions) *ActorProfile {
	snap := p.snapshot

	profile := &ActorProfile{
		RunID:      uuid.New().String(),
		Query:      query,
		Techniques: techniques,
		ComputedAt: time.Now().UTC(),
	}

	profile.Controls = extract.Controls(snap.Controls(), techniques)
	profile.Vulnerabilities = extract.Vulnerabilities(snap.Vulnerabilities(), techniques)
	profile.Impact = extract.Impact(snap.Impact(), techniques)
	profile.Complexity = extract.Complexity(snap.Complexity(), techniques)
	profile.TechniqueMitigation = extract.TechniqueMitigation(snap.Unmitigated(), techniques)
	profile.WeaknessMitigation = extract.WeaknessMitigation(snap, profile.Vulnerabilities.CWEs())

	var actorIncidents []dataset.Incident
	if len(incidentKeys) > 0 {
		actorIncidents = incident.ForActor(snap.Incidents(), incidentKeys...)
	}
	profile.Incidents = IncidentSummary{
		Count:     len(actorIncidents),
		Frequency: p.frequencies.Score(incidentKeys...),
		Timeline:  incident.Timeline(actorIncidents),
		Countries: incident.ByCountry(actorIncidents),
	}
	if opts.Frequency.IsDefined() {
		profile.Incidents.Frequency = opts.Frequency
	}
	profile.Incidents.DominantIndustry, _ = incident.DominantIndustry(actorIncidents)

	profile.Sector = score.ParseSector(opts.Sector)
	if opts.Sector == "" && profile.Incidents.DominantIndustry != "" {
		profile.Sector = score.ParseSector(profile.Incidents.DominantIndustry)
	}
	profile.ActorType = score.ParseActorType(opts.ActorType)

	result, err := score.Compute(score.Inputs{
		Complexity:          profile.Complexity.Mean,
		Frequency:           profile.Incidents.Frequency,
		MeanSeverity:        profile.Impact.MeanSeverity,
		MeanCVSS:            profile.Vulnerabilities.MeanCVSS,
		TechniqueMitigation: profile.TechniqueMitigation.Ratio,
		WeaknessMitigation:  profile.WeaknessMitigation.Ratio,
		Sector:              profile.Sector,
		ActorType:           profile.ActorType,
	})
	profile.Score = result
	if err != nil {
		profile.err = NewInsufficientDataError("Profiler.Profile", err).WithContext(map[string]any{"query": query})
	}

	return profile
}

func profileCacheKey(actorID string, opts ProfileOptions) string {
	key := actorID + "|" + opts.Sector + "|" + opts.ActorType
	if v, ok := opts.Frequency.Value(); ok {
		key += fmt.Sprintf("|%g", v)
	}
	return key
}

func profileEvent(profile *ActorProfile) store.ProfileEvent {
	missing := make([]string, len(profile.Score.Missing))
	for i, c := range profile.Score.Missing {
		missing[i] = string(c)
	}
	return store.ProfileEvent{
		RunID:      profile.RunID,
		Actor:      profile.Actor.ID,
		Total:      profile.Score.Total,
		Missing:    missing,
		ComputedAt: profile.ComputedAt,
	}
}

func dedupTechniques(ids []types.TechniqueID) []types.TechniqueID {
	seen := make(map[types.TechniqueID]struct{}, len(ids))
	out := make([]types.TechniqueID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
