package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"greenmines/emissions-portal/emissions-portal-backend/internal/balance"
	"greenmines/emissions-portal/emissions-portal-backend/internal/emissions"
	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
	"greenmines/emissions-portal/emissions-portal-backend/internal/sinks"
)

var (
	// ErrSourceUnavailable wraps every failure of the record or sink source.
	ErrSourceUnavailable = errors.New("record source unavailable")
	ErrUnknownCacheKind  = errors.New("unknown cache kind")
)

// Cache kinds, used as key prefixes.
const (
	CacheSummary = "summary"
	CacheSeries  = "series"
)

// RecordSource returns the raw emission documents created within a range,
// keyed by category name.
type RecordSource interface {
	FetchEmissions(ctx context.Context, r periods.DateRange) (emissions.Bundle, error)
}

// SinkSource returns the sinks of one kind created within a range.
type SinkSource interface {
	FetchSinks(ctx context.Context, r periods.DateRange, kind sinks.Kind) ([]sinks.Sink, error)
}

// ServiceConfig tunes the report service
type ServiceConfig struct {
	MethaneUnit emissions.Unit
	Location    *time.Location
	CacheTTL    time.Duration
	Now         func() time.Time
}

// Service builds emission and balance reports
type Service struct {
	records    RecordSource
	sinks      SinkSource
	aggregator *emissions.Aggregator
	cache      *SummaryCache
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

// NewService creates a new report service
func NewService(records RecordSource, sinkSource SinkSource, logger *zap.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	unit := cfg.MethaneUnit
	if unit == "" {
		unit = emissions.Tonnes
	}
	return &Service{
		records:    records,
		sinks:      sinkSource,
		aggregator: emissions.NewAggregator(emissions.NewNormalizer(unit), cfg.Location),
		cache:      NewSummaryCache(cfg.CacheTTL),
		logger:     logger,
		loc:        cfg.Location,
		now:        cfg.Now,
	}
}

// Location is the timezone dates are resolved in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// ResolveRange turns a query into a concrete date range. Explicit dates win
// over a range name; a query with neither covers the last week.
func (s *Service) ResolveRange(q ReportQuery) (periods.DateRange, periods.RangeName, error) {
	if q.Start != "" || q.End != "" {
		if q.Start == "" || q.End == "" {
			return periods.DateRange{}, "", fmt.Errorf("%w: start and end are both required", periods.ErrInvalidRange)
		}
		r, err := periods.ParseDateRange(q.Start, q.End, s.loc)
		if err != nil {
			return periods.DateRange{}, "", fmt.Errorf("%w: %w", periods.ErrInvalidRange, err)
		}
		return r, "", nil
	}

	name := q.Range
	if name == "" {
		name = periods.RangeWeek
	}
	r, err := periods.ResolveNamedRange(name, s.now().In(s.loc))
	if err != nil {
		return periods.DateRange{}, "", err
	}
	return r, name, nil
}

// BucketingFor builds the bucketing a query asks for. When the query does not
// name one and deriveFromRange is set, the range name picks it.
func (s *Service) BucketingFor(q ReportQuery, r periods.DateRange, name periods.RangeName, deriveFromRange bool) (*periods.BucketingSpec, error) {
	mode, err := periods.ParseBucketing(q.Bucketing)
	if err != nil {
		return nil, err
	}
	if mode == periods.BucketNone && q.Bucketing == "" && deriveFromRange {
		mode = periods.BucketingForRange(name)
	}
	if mode == periods.BucketNone {
		return nil, nil
	}
	weekStart, err := ParseWeekStart(q.WeekStart)
	if err != nil {
		return nil, err
	}
	return &periods.BucketingSpec{Mode: mode, WeekStart: weekStart, Anchor: r.Start}, nil
}

// ParseWeekStart accepts "", "sunday" or "monday".
func ParseWeekStart(s string) (time.Weekday, error) {
	switch strings.ToLower(s) {
	case "", "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	}
	return time.Sunday, fmt.Errorf("%w: week start %q", periods.ErrUnknownBucketing, s)
}

// GetSummary computes emissions, absorption and the balance for a period
func (s *Service) GetSummary(ctx context.Context, q ReportQuery) (*CarbonReport, error) {
	r, name, err := s.ResolveRange(q)
	if err != nil {
		return nil, err
	}
	spec, err := s.BucketingFor(q, r, name, false)
	if err != nil {
		return nil, err
	}

	// Cached reports carry no range name; each caller gets a copy named
	// after its own query.
	cacheKey := buildCacheKey(CacheSummary, r, spec)
	if !q.Fresh {
		if cached, ok := s.cache.Get(cacheKey); ok {
			if report, ok := cached.(*CarbonReport); ok {
				return named(report, name), nil
			}
		}
	}

	report, err := s.computeSummary(ctx, r, spec)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, report)
	return named(report, name), nil
}

// GetSeries computes a bucketed emissions aggregate for a period
func (s *Service) GetSeries(ctx context.Context, q ReportQuery) (*emissions.Result, error) {
	r, name, err := s.ResolveRange(q)
	if err != nil {
		return nil, err
	}
	spec, err := s.BucketingFor(q, r, name, true)
	if err != nil {
		return nil, err
	}

	cacheKey := buildCacheKey(CacheSeries, r, spec)
	if !q.Fresh {
		if cached, ok := s.cache.Get(cacheKey); ok {
			if res, ok := cached.(*emissions.Result); ok {
				return res, nil
			}
		}
	}

	bundle, err := s.records.FetchEmissions(ctx, r)
	if err != nil {
		s.logger.Error("Failed to fetch emission records", zap.Error(err), zap.String("range", r.String()))
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	res := s.Aggregate(bundle, spec)

	s.cache.Set(cacheKey, &res)
	return &res, nil
}

// Aggregate classifies and sums a bundle, reading timestamps in the
// service's timezone. Unknown categories are logged and counted.
func (s *Service) Aggregate(bundle emissions.Bundle, spec *periods.BucketingSpec) emissions.Result {
	res := s.aggregator.Aggregate(bundle, spec)

	if n := res.IgnoredCount(); n > 0 {
		s.logger.Warn("Ignored records with unknown category",
			zap.Int("count", n), zap.Any("categories", res.IgnoredRecords))
	}
	if res.Unreadable > 0 {
		s.logger.Debug("Records without an emission field", zap.Int("count", res.Unreadable))
	}
	if res.OutOfRange > 0 {
		s.logger.Debug("Records outside every bucket", zap.Int("count", res.OutOfRange))
	}
	return res
}

// InvalidateCache drops cached results of one kind, or all of them when
// kind is empty.
func (s *Service) InvalidateCache(kind string) error {
	switch kind {
	case "":
		s.cache.Clear()
	case CacheSummary, CacheSeries:
		s.cache.DeleteByPrefix(kind + "_")
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCacheKind, kind)
	}
	return nil
}

// CacheStats reports cache usage
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// Close stops background work
func (s *Service) Close() {
	s.cache.Stop()
}

func (s *Service) computeSummary(ctx context.Context, r periods.DateRange, spec *periods.BucketingSpec) (*CarbonReport, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	var (
		bundle   emissions.Bundle
		existing []sinks.Sink
		planned  []sinks.Sink
	)

	fail := func(what string, err error) {
		mu.Lock()
		errs = append(errs, fmt.Errorf("%s: %w", what, err))
		mu.Unlock()
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		b, err := s.records.FetchEmissions(ctx, r)
		if err != nil {
			fail("emissions", err)
			return
		}
		mu.Lock()
		bundle = b
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		list, err := s.sinks.FetchSinks(ctx, r, sinks.KindExisting)
		if err != nil {
			fail("existing sinks", err)
			return
		}
		mu.Lock()
		existing = list
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		list, err := s.sinks.FetchSinks(ctx, r, sinks.KindPlanned)
		if err != nil {
			fail("planned sinks", err)
			return
		}
		mu.Lock()
		planned = list
		mu.Unlock()
	}()

	wg.Wait()

	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.logger.Error("Failed to fetch report data", zap.Error(err), zap.String("range", r.String()))
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	res := s.Aggregate(bundle, spec)

	absorption := Absorption{
		Planned:       sinks.TotalDailyAbsorption(planned),
		Existing:      sinks.TotalDailyAbsorption(existing),
		AverageRate:   sinks.AverageSequestrationRate(existing),
		PlannedSinks:  len(planned),
		ExistingSinks: len(existing),
		ExistingArea:  sinks.TotalArea(existing),
	}
	absorption.Total = absorption.Existing

	report := &CarbonReport{
		Range:      r,
		Emissions:  res,
		Absorption: absorption,
		Balance:    balance.Compute(res.GrandTotal, absorption.Total, absorption.AverageRate),
		ComputedAt: s.now(),
	}

	s.logger.Info("Computed carbon report",
		zap.String("range", r.String()),
		zap.Int("days", r.Days()),
		zap.Int("records", res.RecordCount),
		zap.Float64("emissions", report.Balance.TotalEmissions),
		zap.Float64("absorption", report.Balance.TotalAbsorption))

	return report, nil
}

func named(report *CarbonReport, name periods.RangeName) *CarbonReport {
	out := *report
	out.RangeName = name
	return &out
}

func buildCacheKey(kind string, r periods.DateRange, spec *periods.BucketingSpec) string {
	key := fmt.Sprintf("%s_%s_%s", kind, r.Start.Format(periods.DateLayout), r.End.Format(periods.DateLayout))
	if spec != nil {
		key += fmt.Sprintf("_%s_%d", spec.Mode, spec.WeekStart)
	}
	return key
}
