package types

import (
	"strings"
	"time"
)

// Actor is a tracked threat-actor group.
type Actor struct {
	// ID is the ATT&CK group identifier (e.g., "G0016").
	ID string `json:"id"`

	// Name is the canonical display name.
	Name string `json:"name"`

	// Aliases lists alternative names the group is tracked under.
	Aliases []string `json:"aliases,omitempty"`

	// FirstSeen is the first observed activity, zero when unknown.
	FirstSeen time.Time `json:"first_seen,omitempty"`

	// LastSeen is the most recent observed activity, zero when unknown.
	LastSeen time.Time `json:"last_seen,omitempty"`
}

// Matches reports whether key equals the actor's ID, name or one of its aliases,
// ignoring case and surrounding whitespace.
func (a Actor) Matches(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if strings.EqualFold(a.ID, key) || strings.EqualFold(a.Name, key) {
		return true
	}
	for _, alias := range a.Aliases {
		if strings.EqualFold(alias, key) {
			return true
		}
	}
	return false
}

// ActorKey normalizes an actor name for case-insensitive lookups.
func ActorKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
