// Package types provides the value types shared by every threatscore package:
// technique identifiers, threat actors, optional measures and health status.
//
// # Techniques
//
// Technique identifiers are validated and normalized on parse:
//
//	id, err := types.ParseTechniqueID(" t1548.002 ")
//	// id == "T1548.002", id.Base() == "T1548"
//
//	ids, err := types.ParseTechniqueList("T1548, T1548.002, T1548")
//	// ids == []TechniqueID{"T1548", "T1548.002"}
//
// Malformed identifiers yield a *ValidationError.
//
// # Measures
//
// A Measure is a float64 that may be undefined. Undefined is distinct from zero
// and marshals to JSON null:
//
//	mean := types.Mean(nil)        // undefined
//	cvss := types.Defined(7.5)
//	if v, ok := cvss.Value(); ok {
//	    // use v
//	}
//
// # Actors
//
// Actor describes an ATT&CK group. ActorKey normalizes names and aliases for
// case-insensitive matching:
//
//	actor.Matches("fancy bear")
//
// # Health
//
// HealthStatus reports whether a reference dataset is usable:
//
//	status := types.NewDegradedStatus("no usable rows", map[string]any{
//	    "dataset": "complexity",
//	})
package types
