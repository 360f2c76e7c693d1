package extract

import (
	"github.com/zero-day-ai/threatscore/dataset"
	"github.com/zero-day-ai/threatscore/types"
)

// ControlSummary counts the security controls an actor's techniques undermine.
type ControlSummary struct {
	// Groups is the number of distinct violated controls per control family,
	// sorted by family.
	Groups []Count `json:"groups"`

	// Capabilities lists the distinct violated control identifiers in table order.
	Capabilities []string `json:"capabilities"`

	// AttackTypes counts every matching row by technique name, sorted by name.
	// Rows are not deduplicated by control, so a technique weighs as many
	// controls as it violates. Unnamed rows are left out.
	AttackTypes []Count `json:"attack_types"`
}

// Total returns the number of distinct violated controls.
func (s ControlSummary) Total() int {
	return len(s.Capabilities)
}

// Controls filters the control violation table by technique and counts each
// control once, however many techniques reach it.
func Controls(table []dataset.ControlViolation, techniques []types.TechniqueID) ControlSummary {
	set := types.TechniqueSet(techniques)
	seen := make(map[string]struct{})
	counts := make(map[string]int)
	attackTypes := make(map[string]int)
	summary := ControlSummary{Capabilities: []string{}}

	for _, row := range table {
		if !member(set, row.Technique) {
			continue
		}
		if row.TechniqueName != "" {
			attackTypes[row.TechniqueName]++
		}
		if _, dup := seen[row.CapabilityID]; dup {
			continue
		}
		seen[row.CapabilityID] = struct{}{}
		counts[row.CapabilityGroup]++
		summary.Capabilities = append(summary.Capabilities, row.CapabilityID)
	}

	summary.Groups = tally(counts)
	summary.AttackTypes = tally(attackTypes)
	return summary
}
