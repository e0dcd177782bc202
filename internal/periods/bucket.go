package periods

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownBucketing = errors.New("unknown bucketing")

// Bucketing selects how a range is split into a fixed series of sub-periods.
type Bucketing string

const (
	BucketNone        Bucketing = ""
	BucketWeekday     Bucketing = "weekday"
	BucketWeekOfMonth Bucketing = "weekOfMonth"
	BucketMonthOfYear Bucketing = "monthOfYear"
)

const (
	// WeeksPerMonth is the fixed length of the week-of-month series.
	WeeksPerMonth = 4
	daysPerWeek   = 7
)

// BucketingSpec configures a bucketed aggregation.
//
// WeekStart orders the weekday series; the zero value is Sunday.
// Anchor is the first day of the first week-of-month window. When zero the
// aggregator anchors at the earliest record it is given.
type BucketingSpec struct {
	Mode      Bucketing    `json:"mode"`
	WeekStart time.Weekday `json:"weekStart"`
	Anchor    time.Time    `json:"anchor"`
}

// ParseBucketing accepts the wire names of the bucketing modes; "" and
// "none" select unbucketed aggregation.
func ParseBucketing(s string) (Bucketing, error) {
	switch Bucketing(s) {
	case BucketNone, "none":
		return BucketNone, nil
	case BucketWeekday, BucketWeekOfMonth, BucketMonthOfYear:
		return Bucketing(s), nil
	}
	return BucketNone, fmt.Errorf("%w: %q", ErrUnknownBucketing, s)
}

// BucketingForRange is the series a dashboard draws for a named range.
func BucketingForRange(name RangeName) Bucketing {
	switch name {
	case RangeWeek, RangePreviousWeek:
		return BucketWeekday
	case RangeMonth:
		return BucketWeekOfMonth
	case RangeYear:
		return BucketMonthOfYear
	}
	return BucketNone
}

// BucketKeyFor returns the label of the bucket containing ts. ok is false
// when bucketing is off or ts lies outside every week-of-month window.
func BucketKeyFor(ts time.Time, spec BucketingSpec) (string, bool) {
	switch spec.Mode {
	case BucketWeekday:
		return ts.Weekday().String(), true
	case BucketWeekOfMonth:
		for i, w := range WeekWindows(spec.Anchor) {
			if w.Contains(ts) {
				return weekLabel(i), true
			}
		}
		return "", false
	case BucketMonthOfYear:
		return ts.Month().String(), true
	}
	return "", false
}

// Labels is the complete, ordered series of bucket labels for spec.
func Labels(spec BucketingSpec) []string {
	switch spec.Mode {
	case BucketWeekday:
		labels := make([]string, 0, daysPerWeek)
		for i := 0; i < daysPerWeek; i++ {
			labels = append(labels, time.Weekday((int(spec.WeekStart)+i)%daysPerWeek).String())
		}
		return labels
	case BucketWeekOfMonth:
		labels := make([]string, 0, WeeksPerMonth)
		for i := 0; i < WeeksPerMonth; i++ {
			labels = append(labels, weekLabel(i))
		}
		return labels
	case BucketMonthOfYear:
		labels := make([]string, 0, 12)
		for m := time.January; m <= time.December; m++ {
			labels = append(labels, m.String())
		}
		return labels
	}
	return nil
}

// WeekWindows returns the four 7-day windows that make up the
// week-of-month series starting at anchor.
func WeekWindows(anchor time.Time) []DateRange {
	start := StartOfDay(anchor)
	windows := make([]DateRange, 0, WeeksPerMonth)
	for i := 0; i < WeeksPerMonth; i++ {
		s := start.AddDate(0, 0, i*daysPerWeek)
		windows = append(windows, DateRange{Start: s, End: s.AddDate(0, 0, daysPerWeek-1)})
	}
	return windows
}

func weekLabel(i int) string {
	return fmt.Sprintf("Week %d", i+1)
}
