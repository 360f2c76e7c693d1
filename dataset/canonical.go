package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zero-day-ai/threatscore/types"
)

const nonMappable = "non_mappable"

var (
	yearPattern      = regexp.MustCompile(`\d{4}`)
	veriActionPrefix = regexp.MustCompile(`^action\.\w+\.(variety|vector)\.`)
	listSeparators   = regexp.MustCompile(`[,;|]`)
)

// isNonMappable reports whether a mapping_type value flags the row as unusable.
func isNonMappable(mappingType string) bool {
	return strings.EqualFold(strings.TrimSpace(mappingType), nonMappable)
}

// yearOf returns the first four-digit run of s, or 0.
func yearOf(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// parseScore parses a numeric cell. Empty cells, "nan" and infinities are
// undefined.
func parseScore(s string) types.Measure {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return types.Undefined()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return types.Undefined()
	}
	return types.Defined(v)
}

// parseRating parses a cell on the 0-10 CVSS and VERIS severity scale. Values
// off the scale are undefined.
func parseRating(s string) types.Measure {
	m := parseScore(s)
	if v, ok := m.Value(); ok && (v < 0 || v > 10) {
		return types.Undefined()
	}
	return m
}

// firstDefined returns the first defined Measure, or an undefined one.
func firstDefined(ms ...types.Measure) types.Measure {
	for _, m := range ms {
		if m.IsDefined() {
			return m
		}
	}
	return types.Undefined()
}

// normalizeCWE upper-cases a CWE identifier and adds the CWE- prefix to bare numbers.
func normalizeCWE(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	if _, err := strconv.Atoi(id); err == nil {
		return "CWE-" + id
	}
	return id
}

// splitList splits a multi-value cell on commas, semicolons or pipes.
func splitList(s string) []string {
	var out []string
	for _, part := range listSeparators.Split(s, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitVERISGroup separates the partition prefix from a VERIS capability group.
// "action.hacking" yields (PartitionAction, "hacking").
func splitVERISGroup(group string) (Partition, string, bool) {
	g := strings.ToLower(strings.TrimSpace(group))
	for _, p := range []Partition{PartitionAction, PartitionAttribute} {
		prefix := string(p) + "."
		if strings.HasPrefix(g, prefix) {
			return p, strings.TrimPrefix(g, prefix), true
		}
		if g == string(p) {
			return p, "", true
		}
	}
	return "", "", false
}

// veriAttackType strips "action.<category>.(variety|vector)." from a VERIS action id.
func veriAttackType(capabilityID string) string {
	return strings.TrimSpace(veriActionPrefix.ReplaceAllString(strings.ToLower(strings.TrimSpace(capabilityID)), ""))
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
	"2006",
	"January 2006",
	"2006-01",
}

// parseDate parses the date formats found in incident and alias tables.
// Unparseable values yield the zero time.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
