package extract

import (
	"sort"

	"github.com/zero-day-ai/threatscore/types"
)

// Count is the number of rows sharing a label.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// member reports whether a technique is in the set. A sub-technique is not a
// member just because its parent is.
func member(set map[types.TechniqueID]struct{}, id types.TechniqueID) bool {
	_, ok := set[id]
	return ok
}

// tally converts label counts into a slice sorted by label.
func tally(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
