package extract

import (
	"github.com/zero-day-ai/threatscore/dataset"
	"github.com/zero-day-ai/threatscore/types"
)

// ComplexitySummary is the sophistication of an actor's techniques.
type ComplexitySummary struct {
	// Mean is undefined when no requested technique has a complexity score.
	Mean types.Measure `json:"mean"`

	Matched   []types.TechniqueID `json:"matched"`
	Unmatched []types.TechniqueID `json:"unmatched"`
}

// Complexity averages the complexity scores of the requested techniques.
// Techniques without a score are reported as unmatched and excluded from the mean.
func Complexity(table []dataset.ComplexityScore, techniques []types.TechniqueID) ComplexitySummary {
	scores := make(map[types.TechniqueID]float64, len(table))
	for _, row := range table {
		if _, dup := scores[row.Technique]; !dup {
			scores[row.Technique] = row.Score
		}
	}

	summary := ComplexitySummary{
		Matched:   []types.TechniqueID{},
		Unmatched: []types.TechniqueID{},
	}
	var values []float64
	for _, tech := range dedup(techniques) {
		score, ok := scores[tech]
		if !ok {
			summary.Unmatched = append(summary.Unmatched, tech)
			continue
		}
		summary.Matched = append(summary.Matched, tech)
		values = append(values, score)
	}
	summary.Mean = types.Mean(values)
	return summary
}

// TechniqueCoverage is the share of requested techniques no mitigation addresses.
type TechniqueCoverage struct {
	// Ratio is undefined for an empty request.
	Ratio       types.Measure       `json:"ratio"`
	Unmitigated []types.TechniqueID `json:"unmitigated"`
	Requested   int                 `json:"requested"`
}

// TechniqueMitigation computes the fraction of the requested techniques that
// appear in the techniques-without-mitigation list.
func TechniqueMitigation(unmitigated []types.TechniqueID, techniques []types.TechniqueID) TechniqueCoverage {
	set := types.TechniqueSet(unmitigated)
	requested := dedup(techniques)

	coverage := TechniqueCoverage{
		Ratio:       types.Undefined(),
		Unmitigated: []types.TechniqueID{},
		Requested:   len(requested),
	}
	if len(requested) == 0 {
		return coverage
	}
	for _, tech := range requested {
		if member(set, tech) {
			coverage.Unmitigated = append(coverage.Unmitigated, tech)
		}
	}
	coverage.Ratio = types.Defined(float64(len(coverage.Unmitigated)) / float64(len(requested)))
	return coverage
}

// WeaknessCoverage is the share of touched weaknesses with a potential mitigation.
type WeaknessCoverage struct {
	// Ratio is 0 when no weakness is touched.
	Ratio     float64 `json:"ratio"`
	Mitigated int     `json:"mitigated"`
	Touched   int     `json:"touched"`
}

// WeaknessLookup finds a CWE entry by identifier. *dataset.Snapshot satisfies it.
type WeaknessLookup interface {
	Weakness(id string) (dataset.Weakness, bool)
}

// WeaknessMitigation computes mitigated/touched over the distinct CWE
// identifiers. A CWE missing from the catalogue counts as touched and unmitigated.
func WeaknessMitigation(catalogue WeaknessLookup, cwes []string) WeaknessCoverage {
	seen := make(map[string]struct{}, len(cwes))
	var coverage WeaknessCoverage
	for _, id := range cwes {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		coverage.Touched++
		if w, ok := catalogue.Weakness(id); ok && w.HasMitigation {
			coverage.Mitigated++
		}
	}
	if coverage.Touched > 0 {
		coverage.Ratio = float64(coverage.Mitigated) / float64(coverage.Touched)
	}
	return coverage
}

func dedup(ids []types.TechniqueID) []types.TechniqueID {
	seen := make(map[types.TechniqueID]struct{}, len(ids))
	out := make([]types.TechniqueID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
