package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"greenmines/emissions-portal/emissions-portal-backend/internal/balance"
	"greenmines/emissions-portal/emissions-portal-backend/internal/emissions"
	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
	"greenmines/emissions-portal/emissions-portal-backend/internal/reports"
	"greenmines/emissions-portal/emissions-portal-backend/pkg/notify"
	"greenmines/emissions-portal/emissions-portal-backend/pkg/storage"
)

type MockSummaryService struct {
	mock.Mock
}

func (m *MockSummaryService) GetSummary(ctx context.Context, q reports.ReportQuery) (*reports.CarbonReport, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reports.CarbonReport), args.Error(1)
}

func sampleReport(emitted, absorbed float64) *reports.CarbonReport {
	r := periods.DateRange{
		Start: time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC),
	}
	return &reports.CarbonReport{
		Range:     r,
		RangeName: periods.RangePreviousWeek,
		Emissions: emissions.Result{
			PerCategoryTotals: map[emissions.Category]float64{emissions.Methane: emitted},
			GrandTotal:        emitted,
			RecordCount:       3,
			IgnoredRecords:    map[string]int{"legacy": 2},
		},
		Absorption: reports.Absorption{Existing: absorbed, Total: absorbed, AverageRate: 5},
		Balance:    balance.Compute(emitted, absorbed, 5),
		ComputedAt: time.Date(2026, 10, 12, 0, 15, 0, 0, time.UTC),
	}
}

var weekly = Job{Name: "weekly", CronExpression: "0 15 0 * * MON", Range: periods.RangePreviousWeek}

func TestRunJobDeficit(t *testing.T) {
	svc := new(MockSummaryService)
	svc.On("GetSummary", mock.Anything, reports.ReportQuery{Range: periods.RangePreviousWeek, Fresh: true}).
		Return(sampleReport(7, 500.0/365), nil)

	repo := NewMemoryRepository()
	s3 := storage.NewMemoryClient()
	publisher := notify.NewMemoryPublisher()
	delivery := NewDeliveryManager(s3, publisher, DeliveryConfig{Bucket: "archive", Prefix: "reports", AlertThreshold: 1}, zap.NewNop())

	scheduler := NewScheduler(svc, repo, delivery, zap.NewNop(), time.UTC)
	snapshot, err := scheduler.RunJob(context.Background(), weekly)
	require.NoError(t, err)

	assert.Equal(t, "weekly", snapshot.JobName)
	assert.Equal(t, "previousWeek", snapshot.PeriodName)
	assert.InDelta(t, 5.63, snapshot.Gap, 0.001)
	assert.Equal(t, 2, snapshot.IgnoredRecords)
	assert.True(t, snapshot.AlertSent)
	assert.True(t, strings.HasPrefix(snapshot.ArchiveKey, "reports/weekly/2026-10-05_2026-10-11_"))
	assert.True(t, strings.HasSuffix(snapshot.ArchiveKey, ".xlsx"))

	var totals map[string]float64
	require.NoError(t, json.Unmarshal(snapshot.CategoryTotals, &totals))
	assert.Equal(t, 7.0, totals["methane"])

	stored, err := repo.Latest(context.Background(), "weekly")
	require.NoError(t, err)
	assert.Equal(t, snapshot.ArchiveKey, stored.ArchiveKey)
	assert.True(t, stored.AlertSent)

	rc, err := s3.Download(context.Background(), "archive", snapshot.ArchiveKey)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	alerts := publisher.Alerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Subject, "5.63")
	assert.Equal(t, "weekly", alerts[0].Attributes["job"])
}

func TestRunJobSurplusNoAlert(t *testing.T) {
	svc := new(MockSummaryService)
	svc.On("GetSummary", mock.Anything, mock.Anything).Return(sampleReport(1, 3), nil)

	repo := NewMemoryRepository()
	publisher := notify.NewMemoryPublisher()
	delivery := NewDeliveryManager(nil, publisher, DeliveryConfig{AlertThreshold: 0}, nil)

	snapshot, err := NewScheduler(svc, repo, delivery, nil, nil).RunJob(context.Background(), weekly)
	require.NoError(t, err)
	assert.True(t, snapshot.Neutral)
	assert.False(t, snapshot.AlertSent)
	assert.Empty(t, snapshot.ArchiveKey)
	assert.Empty(t, publisher.Alerts())

	list, err := repo.List(context.Background(), "weekly", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRunJobSourceFailure(t *testing.T) {
	svc := new(MockSummaryService)
	svc.On("GetSummary", mock.Anything, mock.Anything).Return(nil, reports.ErrSourceUnavailable)

	repo := NewMemoryRepository()
	_, err := NewScheduler(svc, repo, nil, zap.NewNop(), time.UTC).RunJob(context.Background(), weekly)
	assert.ErrorIs(t, err, reports.ErrSourceUnavailable)

	_, err = repo.Latest(context.Background(), "weekly")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

type failingS3 struct{ storage.S3Client }

func (failingS3) Upload(context.Context, string, string, io.Reader, string) error {
	return errors.New("access denied")
}

func TestRunJobArchiveFailureKeepsSnapshot(t *testing.T) {
	svc := new(MockSummaryService)
	svc.On("GetSummary", mock.Anything, mock.Anything).Return(sampleReport(7, 1), nil)

	repo := NewMemoryRepository()
	delivery := NewDeliveryManager(failingS3{}, nil, DeliveryConfig{Bucket: "archive"}, zap.NewNop())

	snapshot, err := NewScheduler(svc, repo, delivery, zap.NewNop(), time.UTC).RunJob(context.Background(), weekly)
	require.NoError(t, err)
	assert.Empty(t, snapshot.ArchiveKey)

	stored, err := repo.Latest(context.Background(), "weekly")
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, stored.ID)
}

func TestSchedulerJobs(t *testing.T) {
	scheduler := NewScheduler(new(MockSummaryService), NewMemoryRepository(), nil, zap.NewNop(), time.UTC)

	require.NoError(t, scheduler.AddJob(weekly))
	require.NoError(t, scheduler.AddJob(Job{Name: "daily", CronExpression: "0 55 23 * * *", Range: periods.RangeDay}))
	// replacing keeps one entry per name
	require.NoError(t, scheduler.AddJob(Job{Name: "daily", CronExpression: "0 50 23 * * *", Range: periods.RangeDay}))
	assert.Len(t, scheduler.Jobs(), 2)

	assert.ErrorIs(t, scheduler.AddJob(Job{Name: "bad", CronExpression: "0 0 * * * *", Range: "quarter"}), periods.ErrUnknownRange)
	assert.Error(t, scheduler.AddJob(Job{Name: "bad", CronExpression: "every day", Range: periods.RangeDay}))
	assert.Error(t, scheduler.AddJob(Job{CronExpression: "0 0 * * * *", Range: periods.RangeDay}))

	require.NoError(t, scheduler.Start())
	assert.Error(t, scheduler.Start())
	for _, status := range scheduler.Jobs() {
		assert.False(t, status.NextRun.IsZero())
	}
	scheduler.RemoveJob("daily")
	assert.Len(t, scheduler.Jobs(), 1)
	scheduler.Stop()
	scheduler.Stop()
}

func TestMemoryRepositoryOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &BalanceSnapshot{JobName: "daily", ComputedAt: base.AddDate(0, 0, i)}))
	}
	require.NoError(t, repo.Create(ctx, &BalanceSnapshot{JobName: "weekly", ComputedAt: base}))

	latest, err := repo.Latest(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 2), latest.ComputedAt)

	list, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, list, 4)

	assert.NoError(t, repo.MarkDelivered(ctx, latest.ID, "k", false))
	assert.ErrorIs(t, repo.MarkDelivered(ctx, uuid.New(), "k", false), ErrSnapshotNotFound)
}

func TestGormRepositoryQueries(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	snapshot, err := NewSnapshot("weekly", sampleReport(7, 1))
	require.NoError(t, err)

	stmt := db.Create(snapshot).Statement
	assert.Contains(t, stmt.SQL.String(), `INSERT INTO "balance_snapshots"`)

	var list []BalanceSnapshot
	stmt = db.Where("job_name = ?", "weekly").Order("computed_at DESC").Limit(5).Find(&list).Statement
	assert.Contains(t, stmt.SQL.String(), "job_name = $1")
	assert.Contains(t, stmt.SQL.String(), "ORDER BY computed_at DESC")
}
