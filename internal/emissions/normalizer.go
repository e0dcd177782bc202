package emissions

import (
	"fmt"

	"greenmines/emissions-portal/emissions-portal-backend/pkg/payload"
)

// Unit is the native unit of an extracted emission value.
type Unit string

const (
	Kilograms Unit = "kilograms"
	Tonnes    Unit = "tonnes"
)

// ParseUnit accepts the configuration spellings of a unit.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "kg", "kilogram", "kilograms":
		return Kilograms, nil
	case "t", "tonne", "tonnes", "ton", "tons":
		return Tonnes, nil
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

func (u Unit) toTonnes(v float64) float64 {
	if u == Kilograms {
		return v / 1000
	}
	return v
}

type extraction struct {
	value any
	unit  Unit
}

// rule extracts the emission value from a record. ok is false when the
// rule's path is absent, letting the next rule try.
type rule struct {
	name    string
	extract func(n *Normalizer, c Category, p Payload) (extraction, bool)
}

// rules is tried in order; the first present path wins.
var rules = []rule{
	{name: "result.CO2.value", extract: func(_ *Normalizer, _ Category, p Payload) (extraction, bool) {
		v, ok := payload.Lookup(map[string]any(p), "result", "CO2", "value")
		return extraction{v, Kilograms}, ok
	}},
	{name: "emissions.CO2", extract: func(_ *Normalizer, _ Category, p Payload) (extraction, bool) {
		v, ok := payload.Lookup(map[string]any(p), "emissions", "CO2")
		return extraction{v, Kilograms}, ok
	}},
	{name: "result.carbonEmissions", extract: func(_ *Normalizer, _ Category, p Payload) (extraction, bool) {
		if v, ok := payload.Lookup(map[string]any(p), "result", "carbonEmissions", "metricTonnes"); ok {
			return extraction{v, Tonnes}, true
		}
		v, ok := payload.Lookup(map[string]any(p), "result", "carbonEmissions", "kilograms")
		return extraction{v, Kilograms}, ok
	}},
	{name: "raw field", extract: func(n *Normalizer, c Category, p Payload) (extraction, bool) {
		if c == Methane {
			v, ok := payload.Lookup(map[string]any(p), "totalMethane")
			return extraction{v, n.methaneUnit}, ok
		}
		v, ok := payload.Lookup(map[string]any(p), "co2Emissions")
		return extraction{v, Kilograms}, ok
	}},
}

// Normalizer converts raw record payloads to tonnes of CO2e.
type Normalizer struct {
	methaneUnit Unit
}

// NewNormalizer creates a normalizer that reads methane totals in
// methaneUnit. An empty unit means tonnes.
func NewNormalizer(methaneUnit Unit) *Normalizer {
	if methaneUnit == "" {
		methaneUnit = Tonnes
	}
	return &Normalizer{methaneUnit: methaneUnit}
}

var defaultNormalizer = NewNormalizer(Tonnes)

// Normalize returns the record's emission in tonnes CO2e. Missing or
// malformed values yield 0; the result is never negative, NaN or infinite.
func (n *Normalizer) Normalize(c Category, p Payload) float64 {
	for _, r := range rules {
		ex, ok := r.extract(n, c, p)
		if !ok {
			continue
		}
		return ex.unit.toTonnes(payload.NonNegative(ex.value))
	}
	return 0
}

// Source names the rule that would read p, or "" when none applies.
func (n *Normalizer) Source(c Category, p Payload) string {
	for _, r := range rules {
		if _, ok := r.extract(n, c, p); ok {
			return r.name
		}
	}
	return ""
}

// Normalize uses a normalizer that reads methane in tonnes.
func Normalize(c Category, p Payload) float64 {
	return defaultNormalizer.Normalize(c, p)
}
