package reports

import (
	"fmt"

	"greenmines/emissions-portal/emissions-portal-backend/internal/emissions"
	"greenmines/emissions-portal/emissions-portal-backend/internal/reports/export"
)

const (
	unitTonnes       = "t CO2e"
	unitTonnesPerDay = "t CO2/day"
	unitRate         = "t CO2/ha/yr"
	unitHectares     = "ha"
	unitPercent      = "%"
	unitCount        = "records"
)

// Document flattens a report into exportable rows: per-category emissions,
// the bucket series when present, absorption and the balance.
func Document(report *CarbonReport) export.Document {
	doc := export.Document{
		Title:       "Carbon Emissions Report",
		Subtitle:    report.Range.String(),
		GeneratedAt: report.ComputedAt,
	}
	if report.RangeName != "" {
		doc.Subtitle = fmt.Sprintf("%s (%s)", doc.Subtitle, report.RangeName)
	}

	add := func(section, label, category string, value float64, unit string) {
		doc.Rows = append(doc.Rows, export.Row{Section: section, Label: label, Category: category, Value: value, Unit: unit})
	}

	res := report.Emissions
	for _, c := range emissions.Categories {
		add("Emissions", c.Label(), string(c), res.PerCategoryTotals[c], unitTonnes)
	}
	add("Emissions", "Total", "", res.GrandTotal, unitTonnes)
	add("Emissions", "Records", "", float64(res.RecordCount), unitCount)
	if n := res.IgnoredCount(); n > 0 {
		add("Emissions", "Ignored records", "", float64(n), unitCount)
	}

	for _, label := range res.BucketLabels {
		add("Series", label, string(res.Bucketing), res.BucketTotal(label), unitTonnes)
	}

	a := report.Absorption
	add("Absorption", "Existing sinks", "", a.Existing, unitTonnesPerDay)
	add("Absorption", "Planned sinks", "", a.Planned, unitTonnesPerDay)
	add("Absorption", "Average sequestration rate", "", a.AverageRate, unitRate)
	add("Absorption", "Existing sink area", "", a.ExistingArea, unitHectares)

	b := report.Balance
	add("Balance", "Gap", "", b.Gap, unitTonnes)
	add("Balance", "Offset", "", b.OffsetPercentage, unitPercent)
	add("Balance", "Additional sink area needed", "", b.AdditionalSinkAreaNeeded, unitHectares)

	return doc
}
