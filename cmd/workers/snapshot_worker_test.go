package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"greenmines/emissions-portal/emissions-portal-backend/internal/config"
	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
	"greenmines/emissions-portal/emissions-portal-backend/internal/reports"
	"greenmines/emissions-portal/emissions-portal-backend/internal/snapshots"
	"greenmines/emissions-portal/emissions-portal-backend/pkg/notify"
	"greenmines/emissions-portal/emissions-portal-backend/pkg/storage"
)

type staticSummary struct{}

func (staticSummary) GetSummary(_ context.Context, q reports.ReportQuery) (*reports.CarbonReport, error) {
	r, err := periods.ResolveNamedRange(q.Range, time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, err
	}
	return &reports.CarbonReport{Range: r, RangeName: q.Range, ComputedAt: time.Now()}, nil
}

func TestJobsFromConfig(t *testing.T) {
	jobs := jobsFromConfig(config.Default().Snapshots.Jobs)
	require.Len(t, jobs, 2)
	assert.Equal(t, periods.RangeDay, jobs[0].Range)
	assert.Equal(t, periods.RangePreviousWeek, jobs[1].Range)
}

func TestRunAll(t *testing.T) {
	repo := snapshots.NewMemoryRepository()
	delivery := snapshots.NewDeliveryManager(storage.NewMemoryClient(), notify.NewMemoryPublisher(), snapshots.DeliveryConfig{Bucket: "archive"}, zap.NewNop())
	scheduler := snapshots.NewScheduler(staticSummary{}, repo, delivery, zap.NewNop(), time.UTC)

	worker, err := NewSnapshotWorker(scheduler, jobsFromConfig(config.Default().Snapshots.Jobs), zap.NewNop(), SnapshotWorkerConfig{MaxConcurrent: 1, RunTimeout: time.Minute})
	require.NoError(t, err)

	worker.RunAll(context.Background())

	list, err := repo.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, s := range list {
		assert.NotEmpty(t, s.ArchiveKey)
		assert.False(t, s.AlertSent)
	}
}

func TestNewSnapshotWorkerRejectsBadJob(t *testing.T) {
	scheduler := snapshots.NewScheduler(staticSummary{}, snapshots.NewMemoryRepository(), nil, zap.NewNop(), time.UTC)
	_, err := NewSnapshotWorker(scheduler, []snapshots.Job{{Name: "q", CronExpression: "0 0 0 1 */3 *", Range: "quarter"}}, zap.NewNop(), DefaultSnapshotWorkerConfig())
	assert.ErrorIs(t, err, periods.ErrUnknownRange)
}
