package snapshots

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
	"greenmines/emissions-portal/emissions-portal-backend/internal/reports"
)

// Job is one scheduled snapshot
type Job struct {
	Name           string            `json:"name"`
	CronExpression string            `json:"cron_expression"` // six fields, seconds first
	Range          periods.RangeName `json:"range"`
}

// SummaryService computes the report a snapshot captures
type SummaryService interface {
	GetSummary(ctx context.Context, q reports.ReportQuery) (*reports.CarbonReport, error)
}

// JobStatus represents the status of a scheduled job
type JobStatus struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	PrevRun time.Time `json:"prev_run"`
}

// Scheduler runs snapshot jobs on their cron schedules
type Scheduler struct {
	cron       *cron.Cron
	jobs       map[string]cron.EntryID
	service    SummaryService
	repository Repository
	delivery   *DeliveryManager
	logger     *zap.Logger
	timeout    time.Duration
	mu         sync.RWMutex
	running    bool
}

// NewScheduler creates a scheduler whose cron expressions are read in loc
func NewScheduler(service SummaryService, repository Repository, delivery *DeliveryManager, logger *zap.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		jobs:       make(map[string]cron.EntryID),
		service:    service,
		repository: repository,
		delivery:   delivery,
		logger:     logger,
		timeout:    10 * time.Minute,
	}
}

// AddJob registers job, replacing any job with the same name
func (s *Scheduler) AddJob(job Job) error {
	if job.Name == "" {
		return errors.New("snapshot job needs a name")
	}
	if _, err := periods.ResolveNamedRange(job.Range, time.Now()); err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[job.Name]; ok {
		s.cron.Remove(entryID)
	}

	// a run that overlaps the next tick is skipped rather than queued
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunJob(ctx, job); err != nil {
			s.logger.Error("Snapshot job failed", zap.String("job", job.Name), zap.Error(err))
		}
	}))

	entryID, err := s.cron.AddJob(job.CronExpression, wrapped)
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", job.Name, err)
	}
	s.jobs[job.Name] = entryID

	s.logger.Info("Added snapshot job",
		zap.String("job", job.Name),
		zap.String("cron", job.CronExpression),
		zap.String("range", string(job.Range)))
	return nil
}

// RemoveJob unregisters a job by name
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("Removed snapshot job", zap.String("job", name))
	}
}

// Start starts the cron loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("snapshot scheduler already running")
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("Started snapshot scheduler", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping snapshot scheduler")
	<-s.cron.Stop().Done()
}

// Jobs lists the status of every registered job
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for name, id := range s.jobs {
		entry := s.cron.Entry(id)
		statuses = append(statuses, JobStatus{Name: name, NextRun: entry.Next, PrevRun: entry.Prev})
	}
	return statuses
}

// RunJob computes, stores and delivers one snapshot. Delivery failures are
// logged and leave the stored snapshot in place.
func (s *Scheduler) RunJob(ctx context.Context, job Job) (*BalanceSnapshot, error) {
	start := time.Now()

	report, err := s.service.GetSummary(ctx, reports.ReportQuery{Range: job.Range, Fresh: true})
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}

	snapshot, err := NewSnapshot(job.Name, report)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}
	if err := s.repository.Create(ctx, snapshot); err != nil {
		return nil, err
	}

	if s.delivery != nil {
		archiveKey, err := s.delivery.Archive(ctx, snapshot, report)
		if err != nil {
			s.logger.Error("Failed to archive snapshot report", zap.String("job", job.Name), zap.Error(err))
		}
		alertSent, err := s.delivery.Alert(ctx, snapshot)
		if err != nil {
			s.logger.Error("Failed to publish deficit alert", zap.String("job", job.Name), zap.Error(err))
		}

		if archiveKey != "" || alertSent {
			snapshot.ArchiveKey = archiveKey
			snapshot.AlertSent = alertSent
			if err := s.repository.MarkDelivered(ctx, snapshot.ID, archiveKey, alertSent); err != nil {
				s.logger.Error("Failed to record snapshot delivery", zap.String("job", job.Name), zap.Error(err))
			}
		}
	}

	s.logger.Info("Snapshot job completed",
		zap.String("job", job.Name),
		zap.String("snapshot_id", snapshot.ID.String()),
		zap.String("period", report.Range.String()),
		zap.Float64("gap", snapshot.Gap),
		zap.Duration("took", time.Since(start)))

	return snapshot, nil
}
