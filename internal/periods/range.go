package periods

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-date layout used by query parameters and the
// record source.
const DateLayout = "2006-01-02"

var (
	ErrUnknownRange = errors.New("unknown date range")
	ErrInvalidRange = errors.New("start date must be before or equal to end date")
)

// RangeName identifies a named reporting window ending today.
type RangeName string

const (
	RangeDay          RangeName = "day"
	RangeWeek         RangeName = "week"
	RangeMonth        RangeName = "month"
	RangeYear         RangeName = "year"
	RangePreviousWeek RangeName = "previousWeek"
)

// DateRange is an inclusive span of calendar dates. Start and End are held
// at midnight in the location they were resolved in.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange truncates start and end to their calendar dates.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: StartOfDay(start), End: StartOfDay(end.In(start.Location()))}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return r, nil
}

// ParseDateRange parses two YYYY-MM-DD dates in loc.
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	s, err := ParseDate(start, loc)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end, loc)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// ResolveNamedRange computes the window for name relative to now. Month and
// year subtraction use time.AddDate, whose day-overflow normalisation
// matches the rollover of the dashboards that consume these ranges.
func ResolveNamedRange(name RangeName, now time.Time) (DateRange, error) {
	today := StartOfDay(now)

	switch name {
	case RangeDay:
		return DateRange{Start: today, End: today}, nil
	case RangeWeek:
		return DateRange{Start: today.AddDate(0, 0, -7), End: today}, nil
	case RangeMonth:
		return DateRange{Start: today.AddDate(0, -1, 0), End: today}, nil
	case RangeYear:
		return DateRange{Start: today.AddDate(-1, 0, 0), End: today}, nil
	case RangePreviousWeek:
		sinceMonday := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -sinceMonday-7)
		return DateRange{Start: start, End: start.AddDate(0, 0, 6)}, nil
	default:
		return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownRange, name)
	}
}

// Contains reports whether t falls on a calendar date inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := StartOfDay(t.In(r.Start.Location()))
	return !d.Before(r.Start) && !d.After(r.End)
}

// Bounds returns the first and last instants of the range, suitable for a
// createdAt query.
func (r DateRange) Bounds() (time.Time, time.Time) {
	end := r.End.AddDate(0, 0, 1).Add(-time.Millisecond)
	return r.Start, end
}

// Days is the number of calendar days covered.
func (r DateRange) Days() int {
	return DaysBetween(r.Start, r.End) + 1
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// StartOfDay drops the time-of-day component of t in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts whole calendar days from a to b, ignoring time of day
// and daylight-saving shifts.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
