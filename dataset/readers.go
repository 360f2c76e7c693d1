package dataset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zero-day-ai/threatscore/types"
)

// Columns shared by the ATT&CK mapping CSVs (NIST 800-53, CVE, VERIS).
const (
	colCapabilityID    = "capability_id"
	colCapabilityGroup = "capability_group"
	colMappingType     = "mapping_type"
	colAttackObjectID  = "attack_object_id"
	colAttackObject    = "attack_object_name"
)

// mappingRow is one usable row of an ATT&CK mapping CSV.
type mappingRow struct {
	capabilityID    string
	capabilityGroup string
	mappingType     string
	technique       types.TechniqueID
	techniqueName   string
}

// readMappings reads an ATT&CK mapping CSV. Rows flagged non_mappable and rows
// without a well-formed technique ID are dropped.
func readMappings(path string) ([]mappingRow, error) {
	s, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	if err := s.require(colCapabilityID, colCapabilityGroup, colAttackObjectID); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rows := make([]mappingRow, 0, len(s.rows))
	for _, rec := range s.rows {
		mappingType := s.get(rec, colMappingType)
		if isNonMappable(mappingType) {
			continue
		}
		tech, err := types.ParseTechniqueID(s.get(rec, colAttackObjectID))
		if err != nil {
			continue
		}
		capabilityID := s.get(rec, colCapabilityID)
		if capabilityID == "" {
			continue
		}
		rows = append(rows, mappingRow{
			capabilityID:    capabilityID,
			capabilityGroup: s.get(rec, colCapabilityGroup),
			mappingType:     strings.ToLower(mappingType),
			technique:       tech,
			techniqueName:   s.get(rec, colAttackObject),
		})
	}
	return rows, nil
}

func readControls(path string) ([]ControlViolation, error) {
	rows, err := readMappings(path)
	if err != nil {
		return nil, err
	}
	out := make([]ControlViolation, 0, len(rows))
	for _, r := range rows {
		out = append(out, ControlViolation{
			CapabilityID:    strings.ToUpper(r.capabilityID),
			CapabilityGroup: strings.ToUpper(r.capabilityGroup),
			Technique:       r.technique,
			TechniqueName:   r.techniqueName,
		})
	}
	return out, nil
}

// cveDetail is one CVE of the detail workbook.
type cveDetail struct {
	severity string
	cvss     types.Measure
	cwes     []string
}

// readCVEDetails reads the CVE detail workbook keyed by upper-cased CVE ID.
// Duplicate CVE rows are merged: the first defined score wins and CWE IDs are unioned.
func readCVEDetails(path string) (map[string]cveDetail, error) {
	s, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	if err := s.require("CVE-ID"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	details := make(map[string]cveDetail, len(s.rows))
	for _, rec := range s.rows {
		id := strings.ToUpper(s.get(rec, "CVE-ID"))
		if id == "" {
			continue
		}
		d := details[id]
		d.cvss = firstDefined(d.cvss, parseRating(s.get(rec, "CVSS-V3")), parseRating(s.get(rec, "CVSS-V2")))
		if d.severity == "" {
			d.severity = strings.ToLower(s.get(rec, "SEVERITY"))
		}
		for _, cwe := range splitList(s.get(rec, "CWE-ID")) {
			if n := normalizeCWE(cwe); !slices.Contains(d.cwes, n) {
				d.cwes = append(d.cwes, n)
			}
		}
		details[id] = d
	}
	return details, nil
}

// joinVulnerabilities left-joins CVE mapping rows with CVE details.
func joinVulnerabilities(rows []mappingRow, details map[string]cveDetail) []Vulnerability {
	out := make([]Vulnerability, 0, len(rows))
	for _, r := range rows {
		cve := strings.ToUpper(r.capabilityID)
		year := yearOf(cve)
		if year == 0 {
			year = yearOf(r.capabilityGroup)
		}
		d := details[cve]
		out = append(out, Vulnerability{
			CVE:         cve,
			Technique:   r.technique,
			Year:        year,
			Severity:    d.severity,
			CVSS:        d.cvss,
			CWEs:        slices.Clone(d.cwes),
			MappingType: r.mappingType,
		})
	}
	return out
}

func readWeaknesses(path string) ([]Weakness, error) {
	s, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	if err := s.require("CWE-ID"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(s.rows))
	out := make([]Weakness, 0, len(s.rows))
	for _, rec := range s.rows {
		id := normalizeCWE(s.get(rec, "CWE-ID"))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Weakness{
			ID:            id,
			Name:          s.get(rec, "Name"),
			HasMitigation: s.get(rec, "Potential Mitigations") != "",
		})
	}
	return out, nil
}

// readImpactSeverities reads the VERIS attack type severity table keyed by
// lower-cased attack type.
func readImpactSeverities(path string) (map[string]float64, error) {
	s, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	if err := s.require("attack_type", "severity"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := make(map[string]float64, len(s.rows))
	for _, rec := range s.rows {
		key := strings.ToLower(s.get(rec, "attack_type"))
		sev, ok := parseRating(s.get(rec, "severity")).Value()
		if key == "" || !ok {
			continue
		}
		if _, dup := out[key]; !dup {
			out[key] = sev
		}
	}
	return out, nil
}

// splitImpact partitions VERIS mapping rows into action and attribute records and
// left-joins action records with the attack type severities.
func splitImpact(rows []mappingRow, severities map[string]float64) []ImpactRecord {
	out := make([]ImpactRecord, 0, len(rows))
	for _, r := range rows {
		partition, group, ok := splitVERISGroup(r.capabilityGroup)
		if !ok {
			continue
		}
		rec := ImpactRecord{
			Technique:       r.technique,
			Partition:       partition,
			CapabilityGroup: group,
			CapabilityID:    r.capabilityID,
		}
		if partition == PartitionAction {
			rec.AttackType = veriAttackType(r.capabilityID)
			if sev, ok := severities[strings.ToLower(rec.AttackType)]; ok {
				rec.Severity = types.Defined(sev)
			}
		}
		out = append(out, rec)
	}
	return out
}

func readComplexity(path string) ([]ComplexityScore, error) {
	s, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	if err := s.require("ID", "complexity score"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := make([]ComplexityScore, 0, len(s.rows))
	for _, rec := range s.rows {
		tech, err := types.ParseTechniqueID(s.get(rec, "ID"))
		if err != nil {
			continue
		}
		score, ok := parseScore(s.get(rec, "complexity score")).Value()
		if !ok {
			continue
		}
		out = append(out, ComplexityScore{
			Technique:      tech,
			Name:           s.get(rec, "name"),
			Tactics:        s.get(rec, "tactics"),
			SubTechniqueOf: s.get(rec, "sub-technique of"),
			Score:          score,
		})
	}
	return out, nil
}

func readIncidents(path string) ([]Incident, error) {
	s, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	if err := s.require("actor"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := make([]Incident, 0, len(s.rows))
	for _, rec := range s.rows {
		actor := s.get(rec, "actor")
		if actor == "" {
			continue
		}
		out = append(out, Incident{
			Actor:       actor,
			EventDate:   parseDate(s.get(rec, "event_date")),
			Industry:    s.get(rec, "industry"),
			Country:     s.get(rec, "country"),
			Motive:      s.get(rec, "motive"),
			Description: s.get(rec, "description"),
		})
	}
	return out, nil
}

// aliasEntry is one row of the threat actor alias table.
type aliasEntry struct {
	actor types.Actor
	keys  []string
}

func readAliases(path string) ([]aliasEntry, error) {
	s, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	if err := s.require("name"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := make([]aliasEntry, 0, len(s.rows))
	for _, rec := range s.rows {
		name := s.get(rec, "name")
		if name == "" {
			continue
		}
		aliases := splitList(s.get(rec, "aliases"))
		entry := aliasEntry{
			actor: types.Actor{
				Name:      name,
				Aliases:   aliases,
				FirstSeen: parseDate(s.get(rec, "first_seen")),
				LastSeen:  parseDate(s.get(rec, "last_seen")),
			},
			keys: []string{types.ActorKey(name)},
		}
		for _, a := range aliases {
			entry.keys = append(entry.keys, types.ActorKey(a))
		}
		out = append(out, entry)
	}
	return out, nil
}
