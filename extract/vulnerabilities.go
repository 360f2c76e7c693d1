package extract

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/zero-day-ai/threatscore/dataset"
	"github.com/zero-day-ai/threatscore/types"
)

// VulnerabilityGroup summarizes the CVEs of one base technique and its sub-techniques.
type VulnerabilityGroup struct {
	Technique types.TechniqueID `json:"technique"`

	// CVEs is the comma-joined list of CVE identifiers in table order.
	CVEs string `json:"cves"`

	MaxCVSS  types.Measure `json:"max_cvss"`
	MeanCVSS types.Measure `json:"mean_cvss"`

	// CWEs is the comma-joined list of distinct weakness identifiers.
	CWEs string `json:"cwes"`

	MappingTypes []Count `json:"mapping_types"`

	// LatestYear is the most recent exploitation year, 0 when no CVE carries one.
	LatestYear int `json:"latest_year"`
}

// YearCount is the number of technique groups whose latest exploitation year is Year.
type YearCount struct {
	Year   int `json:"year"`
	Groups int `json:"groups"`
}

// VulnerabilitySummary describes the CVEs exploited through an actor's techniques.
type VulnerabilitySummary struct {
	// Records are the matching vulnerability rows in table order.
	Records []dataset.Vulnerability `json:"records"`

	// Groups are the per base technique summaries sorted by technique.
	Groups []VulnerabilityGroup `json:"groups"`

	// LatestYearCounts is sorted by year, most recent first.
	LatestYearCounts []YearCount `json:"latest_year_counts"`

	// Severities counts distinct CVEs per severity label.
	Severities []Count `json:"severities"`

	// MappingTypes counts records per mapping type.
	MappingTypes []Count `json:"mapping_types"`

	// MeanCVSS is the mean score over all records with a score.
	MeanCVSS types.Measure `json:"mean_cvss"`
}

// CWEs returns the distinct weakness identifiers touched by the records, sorted.
func (s VulnerabilitySummary) CWEs() []string {
	var out []string
	for _, r := range s.Records {
		for _, cwe := range r.CWEs {
			if !slices.Contains(out, cwe) {
				out = append(out, cwe)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Vulnerabilities filters the vulnerability table by technique and groups the
// matches by base technique.
func Vulnerabilities(table []dataset.Vulnerability, techniques []types.TechniqueID) VulnerabilitySummary {
	set := types.TechniqueSet(techniques)
	summary := VulnerabilitySummary{
		Records:          []dataset.Vulnerability{},
		Groups:           []VulnerabilityGroup{},
		LatestYearCounts: []YearCount{},
	}

	type acc struct {
		cves    []string
		cwes    []string
		scores  []float64
		mapping map[string]int
		latest  int
	}
	groups := make(map[types.TechniqueID]*acc)
	severities := make(map[string]int)
	seenCVE := make(map[string]struct{})
	mapping := make(map[string]int)
	var scores []float64

	for _, row := range table {
		if !member(set, row.Technique) {
			continue
		}
		summary.Records = append(summary.Records, row)

		base := row.Technique.Base()
		g, ok := groups[base]
		if !ok {
			g = &acc{mapping: make(map[string]int)}
			groups[base] = g
		}
		g.cves = append(g.cves, row.CVE)
		for _, cwe := range row.CWEs {
			if !slices.Contains(g.cwes, cwe) {
				g.cwes = append(g.cwes, cwe)
			}
		}
		if v, ok := row.CVSS.Value(); ok {
			g.scores = append(g.scores, v)
			scores = append(scores, v)
		}
		if row.MappingType != "" {
			g.mapping[row.MappingType]++
			mapping[row.MappingType]++
		}
		g.latest = max(g.latest, row.Year)

		if _, dup := seenCVE[row.CVE]; !dup {
			seenCVE[row.CVE] = struct{}{}
			if row.Severity != "" {
				severities[row.Severity]++
			}
		}
	}

	years := make(map[int]int)
	for base, g := range groups {
		summary.Groups = append(summary.Groups, VulnerabilityGroup{
			Technique:    base,
			CVEs:         strings.Join(g.cves, ", "),
			MaxCVSS:      maxOf(g.scores),
			MeanCVSS:     types.Mean(g.scores),
			CWEs:         strings.Join(g.cwes, ", "),
			MappingTypes: tally(g.mapping),
			LatestYear:   g.latest,
		})
		if g.latest > 0 {
			years[g.latest]++
		}
	}
	sort.Slice(summary.Groups, func(i, j int) bool {
		return summary.Groups[i].Technique < summary.Groups[j].Technique
	})

	for year, n := range years {
		summary.LatestYearCounts = append(summary.LatestYearCounts, YearCount{Year: year, Groups: n})
	}
	sort.Slice(summary.LatestYearCounts, func(i, j int) bool {
		return summary.LatestYearCounts[i].Year > summary.LatestYearCounts[j].Year
	})

	summary.Severities = tally(severities)
	summary.MappingTypes = tally(mapping)
	summary.MeanCVSS = types.Mean(scores)
	return summary
}

func maxOf(values []float64) types.Measure {
	if len(values) == 0 {
		return types.Undefined()
	}
	m := math.Inf(-1)
	for _, v := range values {
		m = math.Max(m, v)
	}
	return types.Defined(m)
}
