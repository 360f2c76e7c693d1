package types

import (
	"regexp"
	"strings"
)

// techniquePattern matches ATT&CK technique and sub-technique identifiers.
var techniquePattern = regexp.MustCompile(`^T\d{4}(\.\d{3})?$`)

// TechniqueID is an ATT&CK technique identifier such as "T1548" or "T1548.002".
type TechniqueID string

// ParseTechniqueID normalizes and validates a technique identifier.
// Surrounding whitespace is trimmed and the leading letter is upper-cased.
func ParseTechniqueID(s string) (TechniqueID, error) {
	id := strings.ToUpper(strings.TrimSpace(s))
	if id == "" {
		return "", &ValidationError{Field: "technique", Message: "technique ID is required"}
	}
	if !techniquePattern.MatchString(id) {
		return "", &ValidationError{Field: "technique", Message: "malformed technique ID " + s}
	}
	return TechniqueID(id), nil
}

// String returns the string representation of the technique ID.
func (t TechniqueID) String() string {
	return string(t)
}

// IsValid returns true if the ID has the ATT&CK technique shape.
func (t TechniqueID) IsValid() bool {
	return techniquePattern.MatchString(string(t))
}

// Base returns the identifier before the first ".", so "T1548.002" yields "T1548".
// A technique that is not a sub-technique is its own base.
func (t TechniqueID) Base() TechniqueID {
	if i := strings.IndexByte(string(t), '.'); i >= 0 {
		return t[:i]
	}
	return t
}

// IsSubTechnique returns true for identifiers of the form "T1548.002".
func (t TechniqueID) IsSubTechnique() bool {
	return strings.IndexByte(string(t), '.') >= 0
}

// Technique describes an ATT&CK technique from the reference catalogue.
type Technique struct {
	// ID is the ATT&CK identifier (e.g., "T1548.002").
	ID TechniqueID `json:"id"`

	// Name is the human-readable technique name.
	Name string `json:"name"`

	// Tactics lists the kill-chain phases the technique belongs to.
	Tactics []string `json:"tactics,omitempty"`

	// Parent is the parent technique for sub-techniques, empty otherwise.
	Parent TechniqueID `json:"parent,omitempty"`
}

// ParseTechniqueList splits a comma-separated list of technique identifiers.
// Entries are trimmed, empty entries are skipped and duplicates are removed while
// keeping first-seen order. The first malformed entry aborts parsing.
func ParseTechniqueList(text string) ([]TechniqueID, error) {
	parts := strings.Split(text, ",")
	ids := make([]TechniqueID, 0, len(parts))
	seen := make(map[TechniqueID]struct{}, len(parts))

	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := ParseTechniqueID(part)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids, nil
}

// TechniqueSet builds a membership set from a list of technique IDs.
func TechniqueSet(ids []TechniqueID) map[TechniqueID]struct{} {
	set := make(map[TechniqueID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
