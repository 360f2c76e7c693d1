package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/zero-day-ai/threatscore"
	"github.com/zero-day-ai/threatscore/config"
	"github.com/zero-day-ai/threatscore/dataset"
	"github.com/zero-day-ai/threatscore/health"
	"github.com/zero-day-ai/threatscore/incident"
	"github.com/zero-day-ai/threatscore/store"
	"github.com/zero-day-ai/threatscore/types"
)

// settings are the resolved flag and environment values of one invocation.
type settings struct {
	configPath string
	logLevel   string
	logFormat  string
	sector     string
	actorType  string
	frequency  types.Measure
	noCache    bool
}

// loadSettings reads the flag and environment values. An explicit frequency
// outside [incident.MinFrequency, incident.MaxFrequency] is rejected.
func loadSettings(v *viper.Viper) (settings, error) {
	s := settings{
		configPath: v.GetString(keyConfig),
		logLevel:   v.GetString(keyLogLevel),
		logFormat:  v.GetString(keyLogFormat),
		sector:     v.GetString(keySector),
		actorType:  v.GetString(keyActorType),
		noCache:    v.GetBool(keyNoCache),
	}
	if v.IsSet(keyFrequency) {
		f := v.GetFloat64(keyFrequency)
		if math.IsNaN(f) || f < incident.MinFrequency || f > incident.MaxFrequency {
			return s, threatscore.NewValidationError("settings", fmt.Errorf("%w: --%s must be between %g and %g, got %q",
				threatscore.ErrInvalidConfig, keyFrequency, incident.MinFrequency, incident.MaxFrequency, v.GetString(keyFrequency)))
		}
		s.frequency = types.Defined(f)
	}
	return s, nil
}

func (s settings) profileOptions() threatscore.ProfileOptions {
	return threatscore.ProfileOptions{
		Sector:    s.sector,
		ActorType: s.actorType,
		Frequency: s.frequency,
		SkipCache: s.noCache,
	}
}

// app wires the configuration, dataset loader, optional cache and profiler.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	loader   *dataset.Loader
	profiler *threatscore.Profiler
	cache    *store.RedisCache
}

func newApp(s settings, logOut io.Writer) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if s.configPath != "" {
		cfg, err = config.Load(s.configPath)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, threatscore.NewConfigurationError("load config", fmt.Errorf("%w: %v", threatscore.ErrInvalidConfig, err))
	}

	level, format := cfg.Logging.GetLevel(), cfg.Logging.GetFormat()
	if s.logLevel != "" {
		level = strings.ToLower(s.logLevel)
	}
	if s.logFormat != "" {
		format = strings.ToLower(s.logFormat)
	}
	logger := newLogger(logOut, level, format)

	if cfg.DataDir != "" {
		if status := health.FileCheck(cfg.DataDir); !status.IsHealthy() {
			logger.Warn("data directory unusable", "data_dir", cfg.DataDir, "reason", status.Message)
		}
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		loader: dataset.NewLoader(cfg.Resolved(), dataset.WithLogger(logger)),
	}

	opts := []threatscore.Option{threatscore.WithLogger(logger)}
	if cfg.Cache.Enabled() && !s.noCache {
		cache, err := store.NewRedisCache(store.RedisOptions{
			URL:       cfg.Cache.URL,
			KeyPrefix: cfg.Cache.GetKeyPrefix(),
			TTL:       cfg.Cache.GetTTL(),
		})
		if err != nil {
			logger.Warn("profile cache disabled", "url", cfg.Cache.URL, "error", err)
		} else {
			a.cache = cache
			opts = append(opts, threatscore.WithCache(cache))
		}
	}

	snapshot := a.loader.Snapshot()
	logger.Debug("datasets loaded",
		"actors", len(snapshot.Actors()),
		"techniques", len(snapshot.Tables().Attack.Techniques),
		"incidents", len(snapshot.Incidents()))

	a.profiler, err = threatscore.New(snapshot, nil, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the cache connection.
func (a *app) Close() {
	if a.cache != nil {
		threatscore.CloseWithLog(a.cache, a.logger, "profile cache")
	}
}

// actorEntry is one line of the actors command output.
type actorEntry struct {
	types.Actor
	Techniques int `json:"techniques"`
}

func (a *app) actors() []actorEntry {
	snap := a.profiler.Snapshot()
	out := make([]actorEntry, 0, len(snap.Actors()))
	for _, actor := range snap.Actors() {
		out = append(out, actorEntry{Actor: actor, Techniques: len(snap.Resolve(actor.ID))})
	}
	return out
}

// healthReport is the check command output.
type healthReport struct {
	Overall  types.HealthStatus                     `json:"overall"`
	Datasets map[dataset.Dataset]types.HealthStatus `json:"datasets"`
}

func (a *app) health() healthReport {
	overall := a.loader.Check()
	return healthReport{Overall: overall, Datasets: a.loader.Health()}
}

// rankProfiles orders profiles by descending total. Undefined totals sort last,
// ties by actor ID.
func rankProfiles(profiles []*threatscore.ActorProfile) []ranking {
	out := make([]ranking, 0, len(profiles))
	for _, p := range profiles {
		r := ranking{Actor: p.Actor.ID, Name: p.Actor.Name, Total: p.Score.Total}
		for _, c := range p.Score.Missing {
			r.Missing = append(r.Missing, string(c))
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, oki := out[i].Total.Value()
		tj, okj := out[j].Total.Value()
		switch {
		case oki != okj:
			return oki
		case oki && ti != tj:
			return ti > tj
		default:
			return out[i].Actor < out[j].Actor
		}
	})
	return out
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", appName)
}
