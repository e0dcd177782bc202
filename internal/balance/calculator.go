// Package balance compares emissions against sink absorption.
package balance

import (
	"math"

	"greenmines/emissions-portal/emissions-portal-backend/internal/sinks"
)

// CarbonBalance is the neutrality position for one reporting period. All
// quantities are tonnes CO2e except where noted.
type CarbonBalance struct {
	TotalEmissions  float64 `json:"totalEmissions"`
	TotalAbsorption float64 `json:"totalAbsorption"`

	// Gap is emissions minus absorption; negative means carbon-negative.
	Gap     float64 `json:"gap"`
	Deficit float64 `json:"deficit"`
	Surplus float64 `json:"surplus"`
	Neutral bool    `json:"neutral"`

	OffsetPercentage         float64 `json:"offsetPercentage"`
	AverageSequestrationRate float64 `json:"averageSequestrationRate"` // t CO2 / ha / year
	AdditionalSinkAreaNeeded float64 `json:"additionalSinkAreaNeeded"` // hectares
}

// Compute derives the balance. Negative or non-finite inputs count as 0,
// every ratio with a zero denominator is 0, and a ratio that overflows is
// capped at math.MaxFloat64.
func Compute(totalEmissions, totalAbsorption, avgRatePerHectare float64) CarbonBalance {
	e := clean(totalEmissions)
	a := clean(totalAbsorption)
	rate := clean(avgRatePerHectare)

	b := CarbonBalance{
		TotalEmissions:           e,
		TotalAbsorption:          a,
		Gap:                      e - a,
		AverageSequestrationRate: rate,
	}
	b.Deficit = math.Max(b.Gap, 0)
	b.Surplus = math.Max(-b.Gap, 0)
	b.Neutral = b.Gap <= 0

	if e > 0 {
		b.OffsetPercentage = bounded(a / e * 100)
	}
	if b.Deficit > 0 && rate > 0 {
		b.AdditionalSinkAreaNeeded = bounded(b.Deficit * sinks.DaysPerYear / rate)
	}
	return b
}

func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func bounded(v float64) float64 {
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}
