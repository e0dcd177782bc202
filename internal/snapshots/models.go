// Package snapshots persists periodic carbon-balance snapshots and delivers
// their reports.
package snapshots

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"greenmines/emissions-portal/emissions-portal-backend/internal/reports"
)

// BalanceSnapshot is the stored outcome of one scheduled report run
type BalanceSnapshot struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobName     string    `gorm:"index;not null" json:"job_name"`
	PeriodName  string    `json:"period_name"`
	PeriodStart time.Time `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"type:date;not null" json:"period_end"`

	TotalEmissions           float64 `json:"total_emissions"`  // t CO2e
	TotalAbsorption          float64 `json:"total_absorption"` // t CO2 / day
	Gap                      float64 `json:"gap"`
	OffsetPercentage         float64 `json:"offset_percentage"`
	AverageSequestrationRate float64 `json:"average_sequestration_rate"`
	AdditionalSinkAreaNeeded float64 `json:"additional_sink_area_needed"` // hectares
	Neutral                  bool    `json:"neutral"`

	CategoryTotals datatypes.JSON `gorm:"type:jsonb" json:"category_totals"`
	RecordCount    int            `json:"record_count"`
	IgnoredRecords int            `json:"ignored_records"`

	ArchiveKey string    `json:"archive_key,omitempty"`
	AlertSent  bool      `json:"alert_sent"`
	ComputedAt time.Time `gorm:"index" json:"computed_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate assigns an ID when the caller did not
func (s *BalanceSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Deficit is the positive part of the gap
func (s *BalanceSnapshot) Deficit() float64 {
	if s.Gap > 0 {
		return s.Gap
	}
	return 0
}

// NewSnapshot captures report under jobName
func NewSnapshot(jobName string, report *reports.CarbonReport) (*BalanceSnapshot, error) {
	totals, err := json.Marshal(report.Emissions.PerCategoryTotals)
	if err != nil {
		return nil, err
	}
	b := report.Balance
	return &BalanceSnapshot{
		ID:                       uuid.New(),
		JobName:                  jobName,
		PeriodName:               string(report.RangeName),
		PeriodStart:              report.Range.Start,
		PeriodEnd:                report.Range.End,
		TotalEmissions:           b.TotalEmissions,
		TotalAbsorption:          b.TotalAbsorption,
		Gap:                      b.Gap,
		OffsetPercentage:         b.OffsetPercentage,
		AverageSequestrationRate: b.AverageSequestrationRate,
		AdditionalSinkAreaNeeded: b.AdditionalSinkAreaNeeded,
		Neutral:                  b.Neutral,
		CategoryTotals:           datatypes.JSON(totals),
		RecordCount:              report.Emissions.RecordCount,
		IgnoredRecords:           report.Emissions.IgnoredCount(),
		ComputedAt:               report.ComputedAt,
	}, nil
}
