package incident

import (
	"sort"

	"github.com/zero-day-ai/threatscore/dataset"
	"github.com/zero-day-ai/threatscore/types"
)

const (
	// MinFrequency is the score of the actors with the fewest incidents, and of
	// any actor outside a non-empty population.
	MinFrequency = 0.01

	// MaxFrequency is the score of the actors with the most incidents.
	MaxFrequency = 1.0
)

// ActorCount is the number of incidents attributed to an actor.
type ActorCount struct {
	Actor     string  `json:"actor"`
	Incidents int     `json:"incidents"`
	Score     float64 `json:"score"`
}

// Frequencies holds incident counts and scaled frequency scores per actor.
type Frequencies struct {
	canon  func(string) string
	counts map[string]int
	scores map[string]float64
	names  map[string]string
}

// Aggregate counts incidents per actor name and scales the counts into
// [MinFrequency, MaxFrequency]. When every actor has the same count, every
// actor scores MaxFrequency.
func Aggregate(incidents []dataset.Incident) *Frequencies {
	return AggregateBy(incidents, types.ActorKey)
}

// AggregateBy is Aggregate with a custom actor identity: incidents whose actor
// names canonicalize to the same key are counted together, so aliases of one
// group share a count.
func AggregateBy(incidents []dataset.Incident, canon func(name string) string) *Frequencies {
	f := &Frequencies{
		canon:  canon,
		counts: make(map[string]int),
		scores: make(map[string]float64),
		names:  make(map[string]string),
	}
	for _, inc := range incidents {
		key := canon(inc.Actor)
		if key == "" {
			continue
		}
		if _, ok := f.names[key]; !ok {
			f.names[key] = inc.Actor
		}
		f.counts[key]++
	}
	if len(f.counts) == 0 {
		return f
	}

	lo, hi := -1, 0
	for _, n := range f.counts {
		if lo < 0 || n < lo {
			lo = n
		}
		hi = max(hi, n)
	}
	for key, n := range f.counts {
		if hi == lo {
			f.scores[key] = MaxFrequency
			continue
		}
		scaled := float64(n-lo) / float64(hi-lo)
		f.scores[key] = MinFrequency + scaled*(MaxFrequency-MinFrequency)
	}
	return f
}

// Len returns the number of actors in the population.
func (f *Frequencies) Len() int {
	return len(f.counts)
}

// Count returns the incident count of the first key found in the population.
func (f *Frequencies) Count(keys ...string) int {
	if key, ok := f.lookup(keys); ok {
		return f.counts[key]
	}
	return 0
}

// Score returns the frequency score of the first key found in the population.
// Keys are actor names or aliases, matched case-insensitively. An actor outside
// a non-empty population scores MinFrequency; with no incidents at all the
// score is undefined.
func (f *Frequencies) Score(keys ...string) types.Measure {
	if len(f.counts) == 0 {
		return types.Undefined()
	}
	if key, ok := f.lookup(keys); ok {
		return types.Defined(f.scores[key])
	}
	return types.Defined(MinFrequency)
}

// Ranking returns every actor by descending incident count, ties by name.
func (f *Frequencies) Ranking() []ActorCount {
	out := make([]ActorCount, 0, len(f.counts))
	for key, n := range f.counts {
		out = append(out, ActorCount{Actor: f.names[key], Incidents: n, Score: f.scores[key]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Incidents != out[j].Incidents {
			return out[i].Incidents > out[j].Incidents
		}
		return out[i].Actor < out[j].Actor
	})
	return out
}

func (f *Frequencies) lookup(keys []string) (string, bool) {
	for _, k := range keys {
		key := f.canon(k)
		if _, ok := f.counts[key]; ok {
			return key, true
		}
	}
	return "", false
}
