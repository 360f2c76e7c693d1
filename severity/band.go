// Package severity classifies 0–10 technique severities into ordered bands.
package severity

import (
	"fmt"
	"math"
	"strings"
)

// Band is an ordered severity category.
type Band string

const (
	// BandLow covers severities in (0, 4].
	BandLow Band = "Low"

	// BandModerate covers severities in (4, 6].
	BandModerate Band = "Moderate"

	// BandHigh covers severities in (6, 8].
	BandHigh Band = "High"

	// BandCritical covers severities in (8, 10].
	BandCritical Band = "Critical"
)

// upper bounds are inclusive, the lower bound of BandLow is exclusive.
var bandUpperBounds = []struct {
	upper float64
	band  Band
}{
	{4, BandLow},
	{6, BandModerate},
	{8, BandHigh},
	{10, BandCritical},
}

// Classify returns the band for a severity score.
// Scores outside (0, 10] and NaN have no band.
func Classify(score float64) (Band, bool) {
	if math.IsNaN(score) || score <= 0 {
		return "", false
	}
	for _, b := range bandUpperBounds {
		if score <= b.upper {
			return b.band, true
		}
	}
	return "", false
}

// IsValid returns true if the band is one of the four known bands.
func (b Band) IsValid() bool {
	switch b {
	case BandLow, BandModerate, BandHigh, BandCritical:
		return true
	default:
		return false
	}
}

// Rank returns the position of the band from 1 (Low) to 4 (Critical), 0 when invalid.
func (b Band) Rank() int {
	for i, ub := range bandUpperBounds {
		if ub.band == b {
			return i + 1
		}
	}
	return 0
}

// String returns the string representation of the band.
func (b Band) String() string {
	return string(b)
}

// ParseBand parses a band name case-insensitively.
func ParseBand(s string) (Band, error) {
	for _, b := range AllBands() {
		if strings.EqualFold(strings.TrimSpace(s), string(b)) {
			return b, nil
		}
	}
	return "", fmt.Errorf("invalid severity band: %s", s)
}

// Compare compares two bands by rank.
// Returns:
//   - negative if b1 < b2
//   - zero if b1 == b2
//   - positive if b1 > b2
func Compare(b1, b2 Band) int {
	return b1.Rank() - b2.Rank()
}

// AllBands returns the bands in ascending order from Low to Critical.
func AllBands() []Band {
	return []Band{BandLow, BandModerate, BandHigh, BandCritical}
}
