package dataset

import (
	"slices"
	"strings"
	"time"

	"github.com/zero-day-ai/threatscore/types"
)

// Dataset names a reference table category.
type Dataset string

const (
	// DatasetAttack is the ATT&CK STIX bundle: groups, techniques and their uses.
	DatasetAttack Dataset = "attack"

	// DatasetControls is the NIST 800-53 control mapping.
	DatasetControls Dataset = "controls"

	// DatasetVulnerabilities is the CVE mapping joined with CVE details.
	DatasetVulnerabilities Dataset = "vulnerabilities"

	// DatasetWeaknesses is the CWE catalogue.
	DatasetWeaknesses Dataset = "weaknesses"

	// DatasetImpact is the VERIS mapping joined with attack type severities.
	DatasetImpact Dataset = "impact"

	// DatasetComplexity is the per-technique complexity score table.
	DatasetComplexity Dataset = "complexity"

	// DatasetIncidents is the incident log.
	DatasetIncidents Dataset = "incidents"
)

// AllDatasets returns every dataset category in load order.
func AllDatasets() []Dataset {
	return []Dataset{
		DatasetAttack,
		DatasetControls,
		DatasetVulnerabilities,
		DatasetWeaknesses,
		DatasetImpact,
		DatasetComplexity,
		DatasetIncidents,
	}
}

// ControlViolation links a technique to a security control it undermines.
type ControlViolation struct {
	CapabilityID    string            `json:"capability_id"`
	CapabilityGroup string            `json:"capability_group"`
	Technique       types.TechniqueID `json:"technique"`
	TechniqueName   string            `json:"technique_name,omitempty"`
}

// Vulnerability is a CVE exploited through a technique, joined with its details.
type Vulnerability struct {
	CVE       string            `json:"cve"`
	Technique types.TechniqueID `json:"technique"`

	// Year is the year embedded in the CVE identifier, 0 when unknown.
	Year int `json:"year,omitempty"`

	// Severity is the lower-cased severity label of the CVE details.
	Severity string `json:"severity,omitempty"`

	// CVSS is the v3 score when present, otherwise the v2 score.
	CVSS types.Measure `json:"cvss"`

	// CWEs lists the weakness identifiers associated with the CVE.
	CWEs []string `json:"cwes,omitempty"`

	// MappingType is how the CVE relates to the technique (e.g., "exploitation_technique").
	MappingType string `json:"mapping_type,omitempty"`
}

// Weakness is a CWE entry with its mitigation coverage.
type Weakness struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	HasMitigation bool   `json:"has_mitigation"`
}

// Partition is the VERIS classification axis of an impact record.
type Partition string

const (
	// PartitionAction classifies technique behavior (action.* groups).
	PartitionAction Partition = "action"

	// PartitionAttribute classifies confidentiality, integrity and availability impact.
	PartitionAttribute Partition = "attribute"
)

// ImpactRecord is a VERIS classification of a technique.
type ImpactRecord struct {
	Technique types.TechniqueID `json:"technique"`
	Partition Partition         `json:"partition"`

	// CapabilityGroup is the VERIS group with the partition prefix removed
	// (e.g., "hacking" or "confidentiality").
	CapabilityGroup string `json:"capability_group"`

	// CapabilityID is the full VERIS enumeration value.
	CapabilityID string `json:"capability_id"`

	// AttackType is the action variety or vector, empty for attribute records.
	AttackType string `json:"attack_type,omitempty"`

	// Severity is the 0–10 impact of the attack type, undefined when the attack
	// type has no entry in the impact table or for attribute records.
	Severity types.Measure `json:"severity"`
}

// ComplexityScore is the sophistication rating of a technique.
type ComplexityScore struct {
	Technique      types.TechniqueID `json:"technique"`
	Name           string            `json:"name,omitempty"`
	Tactics        string            `json:"tactics,omitempty"`
	SubTechniqueOf string            `json:"sub_technique_of,omitempty"`
	Score          float64           `json:"score"`
}

// Incident is a reported cyber operation attributed to an actor.
type Incident struct {
	Actor       string    `json:"actor"`
	EventDate   time.Time `json:"event_date,omitempty"`
	Industry    string    `json:"industry,omitempty"`
	Country     string    `json:"country,omitempty"`
	Motive      string    `json:"motive,omitempty"`
	Description string    `json:"description,omitempty"`
}

// AttackTable is the canonical view of the ATT&CK knowledge base.
type AttackTable struct {
	// Actors lists every resolvable group sorted by ID.
	Actors []types.Actor `json:"actors"`

	// Uses maps an actor ID to its ordered, de-duplicated technique IDs.
	Uses map[string][]types.TechniqueID `json:"uses"`

	// Techniques is the technique catalogue sorted by ID.
	Techniques []types.Technique `json:"techniques"`

	// Unmitigated lists techniques that no mitigation addresses, sorted.
	Unmitigated []types.TechniqueID `json:"unmitigated"`
}

// Tables groups every reference table. It is the input to NewSnapshot.
type Tables struct {
	Attack          AttackTable
	Controls        []ControlViolation
	Vulnerabilities []Vulnerability
	Weaknesses      []Weakness
	Impact          []ImpactRecord
	Complexity      []ComplexityScore
	Incidents       []Incident
}

// Snapshot is an immutable set of reference tables with lookup indexes.
// Slices returned by accessors are shared and must not be modified.
type Snapshot struct {
	tables Tables

	actorIndex    map[string]int
	techniques    map[types.TechniqueID]types.Technique
	weaknesses    map[string]Weakness
	unmitigated   map[types.TechniqueID]struct{}
	actorsByAlias map[string]int
}

// NewSnapshot indexes the given tables. The slices are copied so later changes
// by the caller do not leak into the snapshot.
func NewSnapshot(t Tables) *Snapshot {
	s := &Snapshot{
		tables: Tables{
			Attack: AttackTable{
				Actors:      slices.Clone(t.Attack.Actors),
				Uses:        make(map[string][]types.TechniqueID, len(t.Attack.Uses)),
				Techniques:  slices.Clone(t.Attack.Techniques),
				Unmitigated: slices.Clone(t.Attack.Unmitigated),
			},
			Controls:        slices.Clone(t.Controls),
			Vulnerabilities: slices.Clone(t.Vulnerabilities),
			Weaknesses:      slices.Clone(t.Weaknesses),
			Impact:          slices.Clone(t.Impact),
			Complexity:      slices.Clone(t.Complexity),
			Incidents:       slices.Clone(t.Incidents),
		},
		actorIndex:    make(map[string]int, len(t.Attack.Actors)),
		actorsByAlias: make(map[string]int),
		techniques:    make(map[types.TechniqueID]types.Technique, len(t.Attack.Techniques)),
		weaknesses:    make(map[string]Weakness, len(t.Weaknesses)),
		unmitigated:   make(map[types.TechniqueID]struct{}, len(t.Attack.Unmitigated)),
	}

	for id, uses := range t.Attack.Uses {
		s.tables.Attack.Uses[strings.ToUpper(id)] = slices.Clone(uses)
	}
	for i, actor := range s.tables.Attack.Actors {
		s.actorIndex[strings.ToUpper(actor.ID)] = i
		for _, name := range append([]string{actor.Name}, actor.Aliases...) {
			key := types.ActorKey(name)
			if _, taken := s.actorsByAlias[key]; !taken && key != "" {
				s.actorsByAlias[key] = i
			}
		}
	}
	for _, tech := range s.tables.Attack.Techniques {
		s.techniques[tech.ID] = tech
	}
	for _, w := range s.tables.Weaknesses {
		s.weaknesses[normalizeCWE(w.ID)] = w
	}
	for _, id := range s.tables.Attack.Unmitigated {
		s.unmitigated[id] = struct{}{}
	}

	return s
}

// Actors returns every known actor sorted by ID.
func (s *Snapshot) Actors() []types.Actor {
	return s.tables.Attack.Actors
}

// Actor looks up an actor by ATT&CK ID, name or alias.
func (s *Snapshot) Actor(key string) (types.Actor, bool) {
	if i, ok := s.actorIndex[strings.ToUpper(strings.TrimSpace(key))]; ok {
		return s.tables.Attack.Actors[i], true
	}
	if i, ok := s.actorsByAlias[types.ActorKey(key)]; ok {
		return s.tables.Attack.Actors[i], true
	}
	return types.Actor{}, false
}

// Resolve returns the ordered, de-duplicated technique set of an actor.
// An unknown actor yields an empty slice rather than an error.
func (s *Snapshot) Resolve(key string) []types.TechniqueID {
	actor, ok := s.Actor(key)
	if !ok {
		return []types.TechniqueID{}
	}
	uses := s.tables.Attack.Uses[strings.ToUpper(actor.ID)]
	out := make([]types.TechniqueID, len(uses))
	copy(out, uses)
	return out
}

// Technique returns the catalogue entry of a technique.
func (s *Snapshot) Technique(id types.TechniqueID) (types.Technique, bool) {
	tech, ok := s.techniques[id]
	return tech, ok
}

// IsUnmitigated reports whether no mitigation addresses the technique.
func (s *Snapshot) IsUnmitigated(id types.TechniqueID) bool {
	_, ok := s.unmitigated[id]
	return ok
}

// Unmitigated returns the techniques without mitigation.
func (s *Snapshot) Unmitigated() []types.TechniqueID {
	return s.tables.Attack.Unmitigated
}

// Weakness looks up a CWE entry by identifier ("CWE-79" or "79").
func (s *Snapshot) Weakness(id string) (Weakness, bool) {
	w, ok := s.weaknesses[normalizeCWE(id)]
	return w, ok
}

// Controls returns the control-violation table.
func (s *Snapshot) Controls() []ControlViolation { return s.tables.Controls }

// Vulnerabilities returns the joined vulnerability table.
func (s *Snapshot) Vulnerabilities() []Vulnerability { return s.tables.Vulnerabilities }

// Weaknesses returns the CWE catalogue.
func (s *Snapshot) Weaknesses() []Weakness { return s.tables.Weaknesses }

// Impact returns the VERIS impact table.
func (s *Snapshot) Impact() []ImpactRecord { return s.tables.Impact }

// Complexity returns the complexity score table.
func (s *Snapshot) Complexity() []ComplexityScore { return s.tables.Complexity }

// Incidents returns the incident log.
func (s *Snapshot) Incidents() []Incident { return s.tables.Incidents }

// Tables returns the underlying tables.
func (s *Snapshot) Tables() Tables { return s.tables }

// CanonicalActor returns the identity used to group incidents by actor: the
// lower-cased ATT&CK ID of a known group, the normalized name otherwise.
func (s *Snapshot) CanonicalActor(name string) string {
	if actor, ok := s.Actor(name); ok {
		return types.ActorKey(actor.ID)
	}
	return types.ActorKey(name)
}
