package extract

import (
	"sort"

	"github.com/zero-day-ai/threatscore/dataset"
	"github.com/zero-day-ai/threatscore/severity"
	"github.com/zero-day-ai/threatscore/types"
)

// TechniqueSeverity is the average impact severity of one technique.
type TechniqueSeverity struct {
	Technique types.TechniqueID `json:"technique"`

	// Severity is undefined when no matched action record has a severity.
	Severity types.Measure `json:"severity"`

	// Band is empty when the severity is undefined or outside (0, 10].
	Band severity.Band `json:"band,omitempty"`
}

// BandCount is the number of techniques in a severity band.
type BandCount struct {
	Band  severity.Band `json:"band"`
	Count int           `json:"count"`
}

// ImpactSummary describes the behavior and CIA impact of an actor's techniques.
type ImpactSummary struct {
	// Techniques holds one entry per technique with action records, sorted by technique.
	Techniques []TechniqueSeverity `json:"techniques"`

	// Bands counts techniques per band, always in Low, Moderate, High, Critical order.
	Bands []BandCount `json:"bands"`

	// MeanSeverity is the mean over techniques with a defined severity.
	MeanSeverity types.Measure `json:"mean_severity"`

	// Attributes counts matched attribute records per CIA group, sorted by group.
	Attributes []Count `json:"attributes"`
}

// Impact filters the VERIS impact table by technique. Action records yield a
// per-technique average severity and its band; attribute records yield the
// confidentiality, integrity and availability breakdown.
func Impact(table []dataset.ImpactRecord, techniques []types.TechniqueID) ImpactSummary {
	set := types.TechniqueSet(techniques)
	severities := make(map[types.TechniqueID][]float64)
	attributes := make(map[string]int)

	for _, row := range table {
		if !member(set, row.Technique) {
			continue
		}
		switch row.Partition {
		case dataset.PartitionAction:
			values := severities[row.Technique]
			if v, ok := row.Severity.Value(); ok {
				values = append(values, v)
			}
			severities[row.Technique] = values
		case dataset.PartitionAttribute:
			attributes[row.CapabilityGroup]++
		}
	}

	summary := ImpactSummary{
		Techniques: make([]TechniqueSeverity, 0, len(severities)),
		Attributes: tally(attributes),
	}

	bands := make(map[severity.Band]int)
	var means []float64
	for tech, values := range severities {
		ts := TechniqueSeverity{Technique: tech, Severity: types.Mean(values)}
		if v, ok := ts.Severity.Value(); ok {
			means = append(means, v)
			if band, ok := severity.Classify(v); ok {
				ts.Band = band
				bands[band]++
			}
		}
		summary.Techniques = append(summary.Techniques, ts)
	}
	sort.Slice(summary.Techniques, func(i, j int) bool {
		return summary.Techniques[i].Technique < summary.Techniques[j].Technique
	})

	for _, b := range severity.AllBands() {
		summary.Bands = append(summary.Bands, BandCount{Band: b, Count: bands[b]})
	}
	summary.MeanSeverity = types.Mean(means)
	return summary
}
