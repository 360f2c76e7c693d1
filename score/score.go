// Package score combines per-actor category summaries into a composite risk score.
//
// The score is a weighted sum of six components, each normalized to [0, 1]
// except mitigation, which is the unclamped sum of two ratios:
//
//	complexity  20
//	frequency   20
//	impact      30
//	mitigation  10
//	sector      10
//	actor type  10
//
// The weights sum to 100. An undefined component leaves the total undefined
// and Compute returns an *InsufficientDataError, so "no data" is never scored as 0.
package score

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zero-day-ai/threatscore/types"
)

// CVSSWeight is the weight of the mean CVSS relative to the mean impact severity.
const CVSSWeight = 0.5

// MaxTotal is the sum of all component weights.
const MaxTotal = 100.0

// Component names a scoring category.
type Component string

const (
	// ComponentComplexity is the mean complexity of the actor's techniques.
	ComponentComplexity Component = "complexity"

	// ComponentFrequency is the normalized incident frequency.
	ComponentFrequency Component = "frequency"

	// ComponentImpact blends mean impact severity with mean CVSS.
	ComponentImpact Component = "impact"

	// ComponentMitigation sums the unmitigated technique and mitigated weakness ratios.
	ComponentMitigation Component = "mitigation"

	// ComponentSector is the score of the targeted sector.
	ComponentSector Component = "sector"

	// ComponentActorType is the score of the actor archetype.
	ComponentActorType Component = "actor_type"

	// ComponentRemaining labels the placeholder breakdown row. It is not scored.
	ComponentRemaining Component = "remaining"
)

// weights lists the components in summation order.
var weights = []struct {
	component Component
	label     string
	weight    float64
}{
	{ComponentComplexity, "Complexity", 20},
	{ComponentFrequency, "Frequency", 20},
	{ComponentImpact, "Impact", 30},
	{ComponentMitigation, "Mitigation", 10},
	{ComponentSector, "Targeted Sector", 10},
	{ComponentActorType, "Actor Type", 10},
}

// Weight returns the weight of a component, 0 for the placeholder or unknown components.
func Weight(c Component) float64 {
	for _, w := range weights {
		if w.component == c {
			return w.weight
		}
	}
	return 0
}

// Inputs are the per-actor values the composite score is computed from.
type Inputs struct {
	// Complexity is the mean complexity of the actor's techniques.
	Complexity types.Measure `json:"complexity"`

	// Frequency is the actor's normalized incident frequency.
	Frequency types.Measure `json:"frequency"`

	// MeanSeverity is the mean VERIS action severity on a 0–10 scale.
	MeanSeverity types.Measure `json:"mean_severity"`

	// MeanCVSS is the mean CVSS score on a 0–10 scale.
	MeanCVSS types.Measure `json:"mean_cvss"`

	// TechniqueMitigation is the fraction of techniques without mitigation.
	TechniqueMitigation types.Measure `json:"technique_mitigation"`

	// WeaknessMitigation is the fraction of touched weaknesses with a mitigation.
	WeaknessMitigation float64 `json:"weakness_mitigation"`

	Sector    Sector    `json:"sector"`
	ActorType ActorType `json:"actor_type"`
}

// Row is one line of the score breakdown.
type Row struct {
	Label     string    `json:"label"`
	Component Component `json:"component"`

	// Value is the raw component before weighting.
	Value types.Measure `json:"value"`

	// Weighted is the contribution of the component to the total.
	Weighted float64 `json:"weighted"`

	// MaxWeight is the largest contribution the component can make when its
	// value is 1.
	MaxWeight float64 `json:"max_weight"`

	// Placeholder marks the "remaining" row, which only fills a chart to 100.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Result is a composite score with its breakdown.
type Result struct {
	// Total is undefined when any component is undefined.
	Total types.Measure `json:"total"`

	// Components holds every component value, defined or not.
	Components map[Component]types.Measure `json:"components"`

	// Breakdown lists the defined components in weight order, followed by the
	// remaining row when the total is defined.
	Breakdown []Row `json:"breakdown"`

	// Missing lists the undefined components in weight order.
	Missing []Component `json:"missing,omitempty"`
}

// ErrInsufficientData indicates a score could not be computed because a
// component has no data.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError lists the components that prevented scoring.
type InsufficientDataError struct {
	Missing []Component
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("insufficient data: undefined %s", strings.Join(names, ", "))
}

// Is matches ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// Impact combines mean severity and mean CVSS into a [0, 1] impact component.
func Impact(meanSeverity, meanCVSS types.Measure) types.Measure {
	sev, ok1 := meanSeverity.Value()
	cvss, ok2 := meanCVSS.Value()
	if !ok1 || !ok2 {
		return types.Undefined()
	}
	return types.Defined((sev + CVSSWeight*cvss) / (1 + CVSSWeight) / 10)
}

// Mitigation sums the technique and weakness ratios. The sum is not clamped
// and ranges over [0, 2].
func Mitigation(techniqueRatio types.Measure, weaknessRatio float64) types.Measure {
	v, ok := techniqueRatio.Value()
	if !ok {
		return types.Undefined()
	}
	return types.Defined(v + weaknessRatio)
}

// Compute scores the inputs. When a component is undefined the result still
// carries the defined components and the error is an *InsufficientDataError.
func Compute(in Inputs) (Result, error) {
	values := map[Component]types.Measure{
		ComponentComplexity: in.Complexity,
		ComponentFrequency:  in.Frequency,
		ComponentImpact:     Impact(in.MeanSeverity, in.MeanCVSS),
		ComponentMitigation: Mitigation(in.TechniqueMitigation, in.WeaknessMitigation),
		ComponentSector:     types.Defined(in.Sector.Score()),
		ComponentActorType:  types.Defined(in.ActorType.Score()),
	}

	result := Result{
		Components: values,
		Breakdown:  make([]Row, 0, len(weights)+1),
	}

	var total float64
	for _, w := range weights {
		v, ok := values[w.component].Value()
		if !ok {
			result.Missing = append(result.Missing, w.component)
			continue
		}
		contribution := v * w.weight
		total += contribution
		result.Breakdown = append(result.Breakdown, Row{
			Label:     w.label,
			Component: w.component,
			Value:     types.Defined(v),
			Weighted:  contribution,
			MaxWeight: w.weight,
		})
	}

	if len(result.Missing) > 0 {
		result.Total = types.Undefined()
		return result, &InsufficientDataError{Missing: result.Missing}
	}

	result.Total = types.Defined(total)
	result.Breakdown = append(result.Breakdown, Row{
		Label:       "Remaining",
		Component:   ComponentRemaining,
		Value:       types.Undefined(),
		Weighted:    MaxTotal - total,
		MaxWeight:   0,
		Placeholder: true,
	})
	return result, nil
}
