package sinks

import (
	"math"
	"time"

	"greenmines/emissions-portal/emissions-portal-backend/pkg/payload"
)

// DaysPerYear spreads annual sequestration evenly across the year.
const DaysPerYear = 365

// Kind distinguishes planned sinks from sinks already in place.
type Kind string

const (
	KindPlanned  Kind = "planned"
	KindExisting Kind = "existing"
)

// Sink is a land area that absorbs CO2. Numeric fields are nil when the
// source document did not carry a usable number.
type Sink struct {
	ID                      string    `json:"id,omitempty"`
	Kind                    Kind      `json:"kind,omitempty"`
	Name                    string    `json:"name,omitempty"`
	VegetationType          string    `json:"vegetationType,omitempty"`
	AreaCovered             *float64  `json:"areaCovered,omitempty"`             // hectares
	CarbonSequestrationRate *float64  `json:"carbonSequestrationRate,omitempty"` // t CO2 / ha / year
	DailySequestrationRate  *float64  `json:"dailySequestrationRate,omitempty"`  // t CO2 / day
	CreatedAt               time.Time `json:"createdAt"`
}

// FromDocument builds a Sink from a raw sink document.
func FromDocument(doc map[string]any, kind Kind) Sink {
	s := Sink{
		ID:             payload.ID(doc),
		Kind:           kind,
		Name:           payload.String(doc, "name"),
		VegetationType: payload.String(doc, "vegetationType"),
	}
	s.AreaCovered = number(doc, "areaCovered")
	s.CarbonSequestrationRate = number(doc, "carbonSequestrationRate")
	s.DailySequestrationRate = number(doc, "dailySequestrationRate")
	s.CreatedAt, _ = payload.Time(doc, "createdAt")
	return s
}

func number(doc map[string]any, key string) *float64 {
	v, ok := payload.Lookup(doc, key)
	if !ok {
		return nil
	}
	f, ok := payload.Float(v)
	if !ok {
		return nil
	}
	return &f
}

func usable(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0, false
	}
	return *v, true
}

// EffectiveRate is the annual sequestration rate: the recorded one when
// usable, otherwise the standard rate for the vegetation type.
func (s Sink) EffectiveRate() float64 {
	if r, ok := usable(s.CarbonSequestrationRate); ok {
		return r
	}
	return DefaultRate(s.VegetationType)
}

// Area is the covered area in hectares, 0 when unusable.
func (s Sink) Area() float64 {
	a, _ := usable(s.AreaCovered)
	return a
}

// DailyAbsorption is the tonnes of CO2 the sink absorbs per day. A stored
// daily rate wins; otherwise the annual rate is spread over the year.
func DailyAbsorption(s Sink) float64 {
	if d, ok := usable(s.DailySequestrationRate); ok {
		return d
	}
	return s.EffectiveRate() * s.Area() / DaysPerYear
}

// TotalDailyAbsorption sums DailyAbsorption over sinks.
func TotalDailyAbsorption(sinks []Sink) float64 {
	var total float64
	for _, s := range sinks {
		total += DailyAbsorption(s)
	}
	return total
}

// AverageSequestrationRate is the mean annual rate of the sinks that have
// one, or 0.
func AverageSequestrationRate(sinks []Sink) float64 {
	var sum float64
	n := 0
	for _, s := range sinks {
		if r := s.EffectiveRate(); r > 0 {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// TotalArea sums the covered area in hectares.
func TotalArea(sinks []Sink) float64 {
	var total float64
	for _, s := range sinks {
		total += s.Area()
	}
	return total
}

// Sequestration is the tonnes absorbed over a number of years, the figure
// returned to the sink entry form.
func Sequestration(s Sink, years float64) float64 {
	if years <= 0 {
		years = 1
	}
	return s.EffectiveRate() * s.Area() * years
}
