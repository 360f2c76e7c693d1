package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/zero-day-ai/threatscore/types"
)

const attackSource = "mitre-attack"

// stixBundle is the envelope of an ATT&CK STIX 2.x export.
type stixBundle struct {
	Type    string            `json:"type"`
	Objects []json.RawMessage `json:"objects"`
}

// stixObject carries the fields used from groups, techniques and relationships.
type stixObject struct {
	Type             string              `json:"type"`
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Aliases          []string            `json:"aliases,omitempty"`
	Revoked          bool                `json:"revoked,omitempty"`
	Deprecated       bool                `json:"x_mitre_deprecated,omitempty"`
	IsSubtechnique   bool                `json:"x_mitre_is_subtechnique,omitempty"`
	ExternalRefs     []externalReference `json:"external_references,omitempty"`
	KillChain        []killChainPhase    `json:"kill_chain_phases,omitempty"`
	RelationshipType string              `json:"relationship_type,omitempty"`
	SourceRef        string              `json:"source_ref,omitempty"`
	TargetRef        string              `json:"target_ref,omitempty"`
}

type externalReference struct {
	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id"`
}

type killChainPhase struct {
	KillChainName string `json:"kill_chain_name"`
	PhaseName     string `json:"phase_name"`
}

func (o *stixObject) active() bool {
	return !o.Revoked && !o.Deprecated
}

// externalID returns the ATT&CK ID (e.g., "G0016" or "T1548.002").
func (o *stixObject) externalID() (string, bool) {
	for _, r := range o.ExternalRefs {
		if strings.EqualFold(r.SourceName, attackSource) && r.ExternalID != "" {
			return strings.TrimSpace(r.ExternalID), true
		}
	}
	return "", false
}

// readAttack parses a STIX bundle into the canonical ATT&CK table.
//
// Groups without an ATT&CK ID are unresolvable: their "uses" relationships are
// dropped instead of being attributed to an unknown bucket. Display names,
// aliases and first/last seen dates come from the alias table when one of the
// group's names matches an alias entry.
func readAttack(path string, aliases []aliasEntry) (AttackTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AttackTable{}, err
	}

	var bundle stixBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return AttackTable{}, fmt.Errorf("parse stix bundle %s: %w", path, err)
	}
	if bundle.Type != "bundle" {
		return AttackTable{}, fmt.Errorf("parse stix bundle %s: unexpected type %q", path, bundle.Type)
	}

	groups := make(map[string]types.Actor)
	techniques := make(map[string]types.Technique)
	var relationships []stixObject

	for _, raw := range bundle.Objects {
		var obj stixObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		switch obj.Type {
		case "intrusion-set":
			if !obj.active() {
				continue
			}
			id, ok := obj.externalID()
			if !ok {
				continue
			}
			groups[obj.ID] = types.Actor{ID: strings.ToUpper(id), Name: obj.Name, Aliases: obj.Aliases}
		case "attack-pattern":
			if !obj.active() {
				continue
			}
			id, ok := obj.externalID()
			if !ok {
				continue
			}
			tech, err := types.ParseTechniqueID(id)
			if err != nil {
				continue
			}
			t := types.Technique{ID: tech, Name: obj.Name}
			for _, phase := range obj.KillChain {
				if phase.KillChainName == attackSource {
					t.Tactics = append(t.Tactics, phase.PhaseName)
				}
			}
			if obj.IsSubtechnique || tech.IsSubTechnique() {
				t.Parent = tech.Base()
			}
			techniques[obj.ID] = t
		case "relationship":
			if obj.active() {
				relationships = append(relationships, obj)
			}
		}
	}

	table := AttackTable{Uses: make(map[string][]types.TechniqueID)}
	mitigationCount := make(map[string]int, len(techniques))

	for _, rel := range relationships {
		switch rel.RelationshipType {
		case "uses":
			group, okGroup := groups[rel.SourceRef]
			tech, okTech := techniques[rel.TargetRef]
			if !okGroup || !okTech {
				continue
			}
			if !slices.Contains(table.Uses[group.ID], tech.ID) {
				table.Uses[group.ID] = append(table.Uses[group.ID], tech.ID)
			}
		case "mitigates":
			if _, ok := techniques[rel.TargetRef]; ok {
				mitigationCount[rel.TargetRef]++
			}
		}
	}

	for _, g := range groups {
		table.Actors = append(table.Actors, mergeAlias(g, aliases))
	}
	sort.Slice(table.Actors, func(i, j int) bool { return table.Actors[i].ID < table.Actors[j].ID })

	for stixID, t := range techniques {
		table.Techniques = append(table.Techniques, t)
		if mitigationCount[stixID] == 0 {
			table.Unmitigated = append(table.Unmitigated, t.ID)
		}
	}
	sort.Slice(table.Techniques, func(i, j int) bool { return table.Techniques[i].ID < table.Techniques[j].ID })
	slices.Sort(table.Unmitigated)

	return table, nil
}

// mergeAlias enriches a STIX group with the first matching alias table entry.
func mergeAlias(g types.Actor, aliases []aliasEntry) types.Actor {
	names := append([]string{g.Name}, g.Aliases...)
	for _, entry := range aliases {
		for _, n := range names {
			if !slices.Contains(entry.keys, types.ActorKey(n)) {
				continue
			}
			merged := g
			merged.Name = entry.actor.Name
			merged.FirstSeen = entry.actor.FirstSeen
			merged.LastSeen = entry.actor.LastSeen
			merged.Aliases = slices.Clone(g.Aliases)
			for _, a := range append([]string{g.Name}, entry.actor.Aliases...) {
				if a != merged.Name && !slices.Contains(merged.Aliases, a) {
					merged.Aliases = append(merged.Aliases, a)
				}
			}
			return merged
		}
	}
	return g
}
