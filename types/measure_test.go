package types

import (
	"encoding/json"
	"math"
	"testing"
)

func TestMeasure_DefinedAndUndefined(t *testing.T) {
	zero := Defined(0)
	if v, ok := zero.Value(); !ok || v != 0 {
		t.Errorf("Defined(0).Value() = %v, %v; want 0, true", v, ok)
	}

	undef := Undefined()
	if undef.IsDefined() {
		t.Error("Undefined() reports defined")
	}
	if !math.IsNaN(undef.Float()) {
		t.Errorf("Undefined().Float() = %v, want NaN", undef.Float())
	}
	if zero == undef {
		t.Error("defined zero must differ from undefined")
	}

	if Defined(math.NaN()).IsDefined() {
		t.Error("Defined(NaN) must be undefined")
	}
	for _, inf := range []float64{math.Inf(1), math.Inf(-1)} {
		m := Defined(inf)
		if m.IsDefined() {
			t.Errorf("Defined(%v) must be undefined", inf)
		}
		data, err := json.Marshal(m)
		if err != nil || string(data) != "null" {
			t.Errorf("json.Marshal(Defined(%v)) = %s, %v; want null", inf, data, err)
		}
	}
}

func TestMean(t *testing.T) {
	if Mean(nil).IsDefined() {
		t.Error("Mean(nil) must be undefined")
	}
	if got := Mean([]float64{7.5, 5.0}).Float(); got != 6.25 {
		t.Errorf("Mean() = %v, want 6.25", got)
	}
}

func TestMeasure_JSON(t *testing.T) {
	type wrapper struct {
		A Measure `json:"a"`
		B Measure `json:"b"`
	}

	data, err := json.Marshal(wrapper{A: Defined(1.5), B: Undefined()})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"a":1.5,"b":null}` {
		t.Errorf("Marshal() = %s", data)
	}

	var decoded wrapper
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.A != Defined(1.5) || decoded.B.IsDefined() {
		t.Errorf("Unmarshal() = %+v", decoded)
	}
}
