package dataset

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/zero-day-ai/threatscore/config"
	"github.com/zero-day-ai/threatscore/health"
	"github.com/zero-day-ai/threatscore/types"
)

// Loader lazily parses the reference datasets named by a config.Datasets.
//
// Each dataset is parsed at most once per successful publication: the first
// Ensure call parses the source and publishes the table with a compare-and-swap.
// Concurrent first calls may both parse, but only one table is published and
// every caller observes it. Tables are never reloaded.
type Loader struct {
	sources config.Datasets
	logger  *slog.Logger

	attack          atomic.Pointer[AttackTable]
	controls        atomic.Pointer[[]ControlViolation]
	vulnerabilities atomic.Pointer[[]Vulnerability]
	weaknesses      atomic.Pointer[[]Weakness]
	impact          atomic.Pointer[[]ImpactRecord]
	complexity      atomic.Pointer[[]ComplexityScore]
	incidents       atomic.Pointer[[]Incident]
	snapshot        atomic.Pointer[Snapshot]

	mu     sync.Mutex
	health map[Dataset]types.HealthStatus
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used to report unavailable datasets.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader for the given dataset sources. Nothing is read
// until an Ensure method or Snapshot is called.
func NewLoader(sources config.Datasets, opts ...LoaderOption) *Loader {
	l := &Loader{
		sources: sources,
		logger:  slog.Default(),
		health:  make(map[Dataset]types.HealthStatus),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ensure returns the published value of p, computing and publishing it first
// when nothing has been published yet.
func ensure[T any](p *atomic.Pointer[T], load func() T) T {
	if v := p.Load(); v != nil {
		return *v
	}
	v := load()
	if p.CompareAndSwap(nil, &v) {
		return v
	}
	return *p.Load()
}

// EnsureGroups returns the ATT&CK table: groups, their techniques, the
// technique catalogue and the techniques without mitigation.
func (l *Loader) EnsureGroups() AttackTable {
	return ensure(&l.attack, func() AttackTable {
		empty := AttackTable{Uses: map[string][]types.TechniqueID{}}
		if !l.available(DatasetAttack, l.sources.Attack) {
			return empty
		}

		var aliases []aliasEntry
		aliasNote := ""
		if l.sources.Aliases != "" {
			var err error
			aliases, err = readAliases(l.sources.Aliases)
			if err != nil {
				l.logger.Warn("alias table unavailable", "dataset", DatasetAttack, "path", l.sources.Aliases, "error", err)
				aliasNote = "alias table unavailable"
			}
		}

		table, err := readAttack(l.sources.Attack, aliases)
		if err != nil {
			l.fail(DatasetAttack, l.sources.Attack, err)
			return empty
		}
		l.loaded(DatasetAttack, len(table.Actors), aliasNote)
		return table
	})
}

// EnsureControls returns the NIST 800-53 control violation table.
func (l *Loader) EnsureControls() []ControlViolation {
	return ensure(&l.controls, func() []ControlViolation {
		if !l.available(DatasetControls, l.sources.Controls) {
			return []ControlViolation{}
		}
		rows, err := readControls(l.sources.Controls)
		if err != nil {
			l.fail(DatasetControls, l.sources.Controls, err)
			return []ControlViolation{}
		}
		l.loaded(DatasetControls, len(rows), "")
		return rows
	})
}

// EnsureVulnerabilities returns the CVE mapping table joined with CVE details.
// Without a details workbook every row keeps an undefined CVSS.
func (l *Loader) EnsureVulnerabilities() []Vulnerability {
	return ensure(&l.vulnerabilities, func() []Vulnerability {
		if !l.available(DatasetVulnerabilities, l.sources.CVEMapping) {
			return []Vulnerability{}
		}
		rows, err := readMappings(l.sources.CVEMapping)
		if err != nil {
			l.fail(DatasetVulnerabilities, l.sources.CVEMapping, err)
			return []Vulnerability{}
		}

		note := ""
		details, err := readCVEDetails(l.sources.CVEDetails)
		if err != nil {
			l.logger.Warn("cve details unavailable", "dataset", DatasetVulnerabilities, "path", l.sources.CVEDetails, "error", err)
			note = "cve details unavailable"
			details = nil
		}

		out := joinVulnerabilities(rows, details)
		l.loaded(DatasetVulnerabilities, len(out), note)
		return out
	})
}

// EnsureWeaknesses returns the CWE catalogue.
func (l *Loader) EnsureWeaknesses() []Weakness {
	return ensure(&l.weaknesses, func() []Weakness {
		if !l.available(DatasetWeaknesses, l.sources.Weaknesses) {
			return []Weakness{}
		}
		rows, err := readWeaknesses(l.sources.Weaknesses)
		if err != nil {
			l.fail(DatasetWeaknesses, l.sources.Weaknesses, err)
			return []Weakness{}
		}
		l.loaded(DatasetWeaknesses, len(rows), "")
		return rows
	})
}

// EnsureImpact returns the VERIS impact table. Action records are joined with
// the attack type severities; without them every severity stays undefined.
func (l *Loader) EnsureImpact() []ImpactRecord {
	return ensure(&l.impact, func() []ImpactRecord {
		if !l.available(DatasetImpact, l.sources.VERISMapping) {
			return []ImpactRecord{}
		}
		rows, err := readMappings(l.sources.VERISMapping)
		if err != nil {
			l.fail(DatasetImpact, l.sources.VERISMapping, err)
			return []ImpactRecord{}
		}

		note := ""
		severities, err := readImpactSeverities(l.sources.VERISImpact)
		if err != nil {
			l.logger.Warn("veris impact severities unavailable", "dataset", DatasetImpact, "path", l.sources.VERISImpact, "error", err)
			note = "veris impact severities unavailable"
		}

		out := splitImpact(rows, severities)
		l.loaded(DatasetImpact, len(out), note)
		return out
	})
}

// EnsureComplexity returns the technique complexity table.
func (l *Loader) EnsureComplexity() []ComplexityScore {
	return ensure(&l.complexity, func() []ComplexityScore {
		if !l.available(DatasetComplexity, l.sources.Complexity) {
			return []ComplexityScore{}
		}
		rows, err := readComplexity(l.sources.Complexity)
		if err != nil {
			l.fail(DatasetComplexity, l.sources.Complexity, err)
			return []ComplexityScore{}
		}
		l.loaded(DatasetComplexity, len(rows), "")
		return rows
	})
}

// EnsureIncidents returns the incident log.
func (l *Loader) EnsureIncidents() []Incident {
	return ensure(&l.incidents, func() []Incident {
		if !l.available(DatasetIncidents, l.sources.Incidents) {
			return []Incident{}
		}
		rows, err := readIncidents(l.sources.Incidents)
		if err != nil {
			l.fail(DatasetIncidents, l.sources.Incidents, err)
			return []Incident{}
		}
		l.loaded(DatasetIncidents, len(rows), "")
		return rows
	})
}

// Snapshot ensures every dataset and returns the indexed, immutable view of
// them. Repeated calls return the same snapshot.
func (l *Loader) Snapshot() *Snapshot {
	if s := l.snapshot.Load(); s != nil {
		return s
	}
	s := NewSnapshot(Tables{
		Attack:          l.EnsureGroups(),
		Controls:        l.EnsureControls(),
		Vulnerabilities: l.EnsureVulnerabilities(),
		Weaknesses:      l.EnsureWeaknesses(),
		Impact:          l.EnsureImpact(),
		Complexity:      l.EnsureComplexity(),
		Incidents:       l.EnsureIncidents(),
	})
	if l.snapshot.CompareAndSwap(nil, s) {
		return s
	}
	return l.snapshot.Load()
}

// Health returns the recorded status of every dataset loaded so far.
func (l *Loader) Health() map[Dataset]types.HealthStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.health)
}

// Check loads every dataset and combines their statuses.
func (l *Loader) Check() types.HealthStatus {
	l.Snapshot()
	statuses := l.Health()
	checks := make([]types.HealthStatus, 0, len(statuses))
	for _, d := range AllDatasets() {
		if s, ok := statuses[d]; ok {
			checks = append(checks, s)
		}
	}
	return health.Combine(checks...)
}

// available checks a dataset source before parsing it. An unusable source is
// logged and recorded as unhealthy.
func (l *Loader) available(d Dataset, path string) bool {
	status := health.DatasetCheck(string(d), path)
	if status.IsUnhealthy() {
		l.logger.Warn("dataset unavailable", "dataset", d, "path", path, "reason", status.Message)
		l.record(d, status)
		return false
	}
	return true
}

func (l *Loader) fail(d Dataset, path string, err error) {
	l.logger.Warn("dataset unavailable", "dataset", d, "path", path, "error", err)
	l.record(d, types.NewUnhealthyStatus(
		fmt.Sprintf("dataset '%s' could not be parsed", d),
		map[string]any{"dataset": string(d), "path": path, "error": err.Error()},
	))
}

func (l *Loader) loaded(d Dataset, rows int, note string) {
	switch {
	case rows == 0:
		l.record(d, types.NewDegradedStatus(
			fmt.Sprintf("dataset '%s' has no usable rows", d),
			map[string]any{"dataset": string(d), "rows": 0},
		))
	case note != "":
		l.record(d, types.NewDegradedStatus(
			fmt.Sprintf("dataset '%s': %s", d, note),
			map[string]any{"dataset": string(d), "rows": rows},
		))
	default:
		l.logger.Debug("dataset loaded", "dataset", d, "rows", rows)
		l.record(d, types.NewHealthyStatus(fmt.Sprintf("dataset '%s' loaded %d rows", d, rows)))
	}
}

func (l *Loader) record(d Dataset, status types.HealthStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.health[d] = status
}
