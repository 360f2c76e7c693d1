package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// Measure is a numeric aggregate that may be undefined, such as the mean of an
// empty series. An undefined Measure is distinct from a defined zero.
type Measure struct {
	value   float64
	defined bool
}

// Defined returns a Measure holding v. NaN and ±Inf yield an undefined Measure.
func Defined(v float64) Measure {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Measure{}
	}
	return Measure{value: v, defined: true}
}

// Undefined returns a Measure with no value.
func Undefined() Measure {
	return Measure{}
}

// Mean returns the arithmetic mean of values, undefined when values is empty.
func Mean(values []float64) Measure {
	if len(values) == 0 {
		return Undefined()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Defined(sum / float64(len(values)))
}

// IsDefined reports whether the Measure holds a value.
func (m Measure) IsDefined() bool {
	return m.defined
}

// Value returns the value and whether it is defined.
func (m Measure) Value() (float64, bool) {
	return m.value, m.defined
}

// Float returns the value, or NaN when undefined.
func (m Measure) Float() float64 {
	if !m.defined {
		return math.NaN()
	}
	return m.value
}

// String formats the value, or "undefined".
func (m Measure) String() string {
	if !m.defined {
		return "undefined"
	}
	return strconv.FormatFloat(m.value, 'f', -1, 64)
}

// MarshalJSON encodes an undefined Measure as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON decodes null as undefined.
func (m *Measure) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}
