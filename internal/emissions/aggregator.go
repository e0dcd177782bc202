package emissions

import (
	"time"

	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
)

// Result holds emission totals in tonnes CO2e.
type Result struct {
	PerCategoryTotals map[Category]float64 `json:"perCategoryTotals"`
	GrandTotal        float64              `json:"grandTotal"`
	RecordCount       int                  `json:"recordCount"`
	IgnoredRecords    map[string]int       `json:"ignoredRecords,omitempty"`

	// Set only for bucketed aggregations.
	Bucketing       periods.Bucketing               `json:"bucketing,omitempty"`
	BucketLabels    []string                        `json:"bucketLabels,omitempty"`
	PerBucketTotals map[string]map[Category]float64 `json:"perBucketTotals,omitempty"`
	OutOfRange      int                             `json:"outOfRange,omitempty"`

	// Records of a known category carrying none of the emission fields.
	Unreadable int `json:"unreadableRecords,omitempty"`
}

// BucketTotal sums every category in one bucket.
func (r *Result) BucketTotal(label string) float64 {
	var sum float64
	for _, v := range r.PerBucketTotals[label] {
		sum += v
	}
	return sum
}

// IgnoredCount is the number of records skipped for an unknown category.
func (r *Result) IgnoredCount() int {
	n := 0
	for _, c := range r.IgnoredRecords {
		n += c
	}
	return n
}

// Aggregator sums normalized emissions, bucketing by calendar dates in its
// location.
type Aggregator struct {
	normalizer *Normalizer
	loc        *time.Location
}

// NewAggregator creates an aggregator backed by n that reads timestamps in
// loc. A nil loc means UTC.
func NewAggregator(n *Normalizer, loc *time.Location) *Aggregator {
	if n == nil {
		n = defaultNormalizer
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{normalizer: n, loc: loc}
}

// Aggregate classifies and sums a bundle. spec may be nil for totals only.
func (a *Aggregator) Aggregate(b Bundle, spec *periods.BucketingSpec) Result {
	records, ignored := Classify(b, a.loc)
	res := a.AggregateRecords(records, spec)
	for k, n := range ignored {
		if res.IgnoredRecords == nil {
			res.IgnoredRecords = make(map[string]int)
		}
		res.IgnoredRecords[k] += n
	}
	return res
}

// AggregateRecords sums already-classified records. Every category and,
// when bucketed, every bucket label appears in the result even when no
// record contributed to it.
func (a *Aggregator) AggregateRecords(records []Record, spec *periods.BucketingSpec) Result {
	res := Result{PerCategoryTotals: zeroTotals()}

	var bucketing periods.BucketingSpec
	bucketed := spec != nil && spec.Mode != periods.BucketNone
	if bucketed {
		bucketing = *spec
		if bucketing.Mode == periods.BucketWeekOfMonth && bucketing.Anchor.IsZero() {
			if first := earliest(records); !first.IsZero() {
				bucketing.Anchor = first.In(a.loc)
			}
		}
		res.Bucketing = bucketing.Mode
		res.BucketLabels = periods.Labels(bucketing)
		res.PerBucketTotals = make(map[string]map[Category]float64, len(res.BucketLabels))
		for _, label := range res.BucketLabels {
			res.PerBucketTotals[label] = zeroTotals()
		}
	}

	for _, r := range records {
		if _, known := res.PerCategoryTotals[r.Category]; !known {
			if res.IgnoredRecords == nil {
				res.IgnoredRecords = make(map[string]int)
			}
			res.IgnoredRecords[string(r.Category)]++
			continue
		}
		v := a.normalizer.Normalize(r.Category, r.Payload)
		res.PerCategoryTotals[r.Category] += v
		res.GrandTotal += v
		res.RecordCount++
		if a.normalizer.Source(r.Category, r.Payload) == "" {
			res.Unreadable++
		}

		if !bucketed {
			continue
		}
		if r.Timestamp.IsZero() {
			res.OutOfRange++
			continue
		}
		key, ok := periods.BucketKeyFor(r.Timestamp.In(a.loc), bucketing)
		if !ok {
			res.OutOfRange++
			continue
		}
		res.PerBucketTotals[key][r.Category] += v
	}

	return res
}

func earliest(records []Record) (first time.Time) {
	for _, r := range records {
		if r.Timestamp.IsZero() {
			continue
		}
		if first.IsZero() || r.Timestamp.Before(first) {
			first = r.Timestamp
		}
	}
	return first
}

var defaultAggregator = NewAggregator(nil, time.UTC)

// Aggregate uses the default normalizer and UTC dates.
func Aggregate(b Bundle, spec *periods.BucketingSpec) Result {
	return defaultAggregator.Aggregate(b, spec)
}
