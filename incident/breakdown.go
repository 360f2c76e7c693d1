package incident

import (
	"slices"
	"sort"

	"github.com/zero-day-ai/threatscore/dataset"
	"github.com/zero-day-ai/threatscore/types"
)

// ForActor returns the incidents attributed to any of the given names or aliases.
func ForActor(incidents []dataset.Incident, keys ...string) []dataset.Incident {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if key := types.ActorKey(k); key != "" {
			wanted[key] = struct{}{}
		}
	}
	out := []dataset.Incident{}
	for _, inc := range incidents {
		if _, ok := wanted[types.ActorKey(inc.Actor)]; ok {
			out = append(out, inc)
		}
	}
	return out
}

// TimelinePoint is the number of incidents in one year, industry and motive.
type TimelinePoint struct {
	Year      int    `json:"year"`
	Industry  string `json:"industry"`
	Motive    string `json:"motive"`
	Incidents int    `json:"incidents"`
}

// Timeline counts incidents by year, industry and motive, sorted by those
// fields. Incidents without a date are skipped.
func Timeline(incidents []dataset.Incident) []TimelinePoint {
	type key struct {
		year             int
		industry, motive string
	}
	counts := make(map[key]int)
	for _, inc := range incidents {
		if inc.EventDate.IsZero() {
			continue
		}
		counts[key{inc.EventDate.Year(), inc.Industry, inc.Motive}]++
	}

	out := make([]TimelinePoint, 0, len(counts))
	for k, n := range counts {
		out = append(out, TimelinePoint{Year: k.year, Industry: k.industry, Motive: k.motive, Incidents: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Industry != b.Industry {
			return a.Industry < b.Industry
		}
		return a.Motive < b.Motive
	})
	return out
}

// CountryCount is the incident activity against one country.
type CountryCount struct {
	Country   string   `json:"country"`
	Incidents int      `json:"incidents"`
	Actors    []string `json:"actors,omitempty"`
}

// ByCountry counts incidents per country, most targeted first, ties by name.
// Incidents without a country are skipped.
func ByCountry(incidents []dataset.Incident) []CountryCount {
	counts := make(map[string]int)
	for _, inc := range incidents {
		if inc.Country != "" {
			counts[inc.Country]++
		}
	}
	out := make([]CountryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CountryCount{Country: c, Incidents: n})
	}
	sortCountries(out)
	return out
}

// ActorsPerCountry lists the distinct actors active against each country.
// Actors are compared case-insensitively and Incidents counts distinct actors
// here, not incidents.
func ActorsPerCountry(incidents []dataset.Incident) []CountryCount {
	actors := make(map[string][]string)
	seen := make(map[string]map[string]struct{})
	for _, inc := range incidents {
		key := types.ActorKey(inc.Actor)
		if inc.Country == "" || key == "" {
			continue
		}
		if seen[inc.Country] == nil {
			seen[inc.Country] = make(map[string]struct{})
		}
		if _, dup := seen[inc.Country][key]; dup {
			continue
		}
		seen[inc.Country][key] = struct{}{}
		actors[inc.Country] = append(actors[inc.Country], inc.Actor)
	}
	out := make([]CountryCount, 0, len(actors))
	for c, list := range actors {
		slices.Sort(list)
		out = append(out, CountryCount{Country: c, Incidents: len(list), Actors: list})
	}
	sortCountries(out)
	return out
}

// DominantIndustry returns the most frequently targeted industry, ties broken
// by name. It reports false when no incident names an industry.
func DominantIndustry(incidents []dataset.Incident) (string, bool) {
	counts := make(map[string]int)
	for _, inc := range incidents {
		if inc.Industry != "" {
			counts[inc.Industry]++
		}
	}
	best, bestN := "", 0
	for industry, n := range counts {
		if n > bestN || (n == bestN && industry < best) {
			best, bestN = industry, n
		}
	}
	return best, bestN > 0
}

func sortCountries(out []CountryCount) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Incidents != out[j].Incidents {
			return out[i].Incidents > out[j].Incidents
		}
		return out[i].Country < out[j].Country
	})
}
