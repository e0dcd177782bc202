package reports

import (
	"time"

	"greenmines/emissions-portal/emissions-portal-backend/internal/balance"
	"greenmines/emissions-portal/emissions-portal-backend/internal/emissions"
	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
)

// ReportQuery selects the period a report covers. Either Range names a
// period relative to now, or Start and End give explicit dates.
type ReportQuery struct {
	Range     periods.RangeName `form:"range" json:"range,omitempty"`
	Start     string            `form:"start" json:"start,omitempty"`
	End       string            `form:"end" json:"end,omitempty"`
	Bucketing string            `form:"bucketing" json:"bucketing,omitempty"`
	WeekStart string            `form:"week_start" json:"weekStart,omitempty"`

	// Fresh skips the cached copy and recomputes.
	Fresh bool `form:"fresh" json:"fresh,omitempty"`
}

// Absorption splits sink absorption by sink kind. Total counts existing
// sinks only; planned sinks are reported for comparison.
type Absorption struct {
	Planned       float64 `json:"planned"`  // t CO2 / day
	Existing      float64 `json:"existing"` // t CO2 / day
	Total         float64 `json:"total"`
	AverageRate   float64 `json:"averageRate"` // t CO2 / ha / year
	PlannedSinks  int     `json:"plannedSinks"`
	ExistingSinks int     `json:"existingSinks"`
	ExistingArea  float64 `json:"existingArea"` // hectares
}

// CarbonReport is the full picture for one period.
type CarbonReport struct {
	Range      periods.DateRange     `json:"range"`
	RangeName  periods.RangeName     `json:"rangeName,omitempty"`
	Emissions  emissions.Result      `json:"emissions"`
	Absorption Absorption            `json:"absorption"`
	Balance    balance.CarbonBalance `json:"balance"`
	ComputedAt time.Time             `json:"computedAt"`
}

// AggregateRequest is the body of POST /emissions/aggregate.
type AggregateRequest struct {
	Records   emissions.Bundle `json:"records" binding:"required"`
	Bucketing string           `json:"bucketing,omitempty"`
	WeekStart string           `json:"weekStart,omitempty"`
	Anchor    string           `json:"anchor,omitempty"` // YYYY-MM-DD
}

// BalanceRequest is the body of POST /balance.
type BalanceRequest struct {
	TotalEmissions           float64 `json:"totalEmissions"`
	TotalAbsorption          float64 `json:"totalAbsorption"`
	AverageSequestrationRate float64 `json:"averageSequestrationRate"`
}

// AbsorptionRequest is the body of POST /sinks/absorption. Sinks are raw
// entry-form documents, read the same way as stored ones.
type AbsorptionRequest struct {
	Sinks []map[string]any `json:"sinks"`
	Years float64          `json:"years,omitempty"`
}

// AbsorptionResponse reports per-sink and total daily absorption, plus the
// tonnes each sink absorbs over the requested years.
type AbsorptionResponse struct {
	PerSink       []float64 `json:"perSink"`
	Sequestration []float64 `json:"sequestration"`
	Total         float64   `json:"total"`
	AverageRate   float64   `json:"averageRate"`
	TotalArea     float64   `json:"totalArea"`
}
