package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	v1 "greenmines/emissions-portal/emissions-portal-backend/api/v1"
	"greenmines/emissions-portal/emissions-portal-backend/internal/config"
	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
	"greenmines/emissions-portal/emissions-portal-backend/internal/records"
	"greenmines/emissions-portal/emissions-portal-backend/internal/snapshots"
	"greenmines/emissions-portal/emissions-portal-backend/pkg/notify"
	"greenmines/emissions-portal/emissions-portal-backend/pkg/storage"
)

// SnapshotWorker runs the configured balance snapshot jobs
type SnapshotWorker struct {
	scheduler *snapshots.Scheduler
	jobs      []snapshots.Job
	logger    *zap.Logger
	config    SnapshotWorkerConfig
}

// SnapshotWorkerConfig configuration for the snapshot worker
type SnapshotWorkerConfig struct {
	MaxConcurrent int
	RunTimeout    time.Duration
}

// DefaultSnapshotWorkerConfig returns default configuration
func DefaultSnapshotWorkerConfig() SnapshotWorkerConfig {
	return SnapshotWorkerConfig{
		MaxConcurrent: 2,
		RunTimeout:    10 * time.Minute,
	}
}

// NewSnapshotWorker registers jobs on scheduler
func NewSnapshotWorker(scheduler *snapshots.Scheduler, jobs []snapshots.Job, logger *zap.Logger, config SnapshotWorkerConfig) (*SnapshotWorker, error) {
	for _, job := range jobs {
		if err := scheduler.AddJob(job); err != nil {
			return nil, err
		}
	}
	return &SnapshotWorker{scheduler: scheduler, jobs: jobs, logger: logger, config: config}, nil
}

// Start runs the scheduler until ctx is cancelled
func (w *SnapshotWorker) Start(ctx context.Context) error {
	if err := w.scheduler.Start(); err != nil {
		return err
	}
	for _, status := range w.scheduler.Jobs() {
		w.logger.Info("Scheduled snapshot job", zap.String("job", status.Name), zap.Time("next_run", status.NextRun))
	}

	<-ctx.Done()
	w.logger.Info("Snapshot worker shutting down")
	w.scheduler.Stop()
	return nil
}

// RunAll runs every job once, at most MaxConcurrent at a time
func (w *SnapshotWorker) RunAll(ctx context.Context) {
	sem := make(chan struct{}, w.config.MaxConcurrent)
	var wg sync.WaitGroup

	for _, job := range w.jobs {
		sem <- struct{}{}
		wg.Add(1)

		go func(job snapshots.Job) {
			defer wg.Done()
			defer func() { <-sem }()

			runCtx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
			defer cancel()
			if _, err := w.scheduler.RunJob(runCtx, job); err != nil {
				w.logger.Error("Snapshot job failed", zap.String("job", job.Name), zap.Error(err))
			}
		}(job)
	}

	wg.Wait()
}

func jobsFromConfig(cfg []config.SnapshotJob) []snapshots.Job {
	jobs := make([]snapshots.Job, 0, len(cfg))
	for _, j := range cfg {
		jobs = append(jobs, snapshots.Job{
			Name:           j.Name,
			CronExpression: j.CronExpression,
			Range:          periods.RangeName(j.Range),
		})
	}
	return jobs
}

// newDelivery builds the archive and alert clients. Unconfigured sides stay
// nil interfaces so the delivery manager skips them.
func newDelivery(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*snapshots.DeliveryManager, error) {
	var s3 storage.S3Client
	var publisher notify.Publisher

	if cfg.AWS.ArchiveBucket != "" || cfg.AWS.AlertTopicARN != "" {
		storageCfg := storage.Config{
			Region:          cfg.AWS.Region,
			Endpoint:        cfg.AWS.Endpoint,
			PathStyle:       cfg.AWS.PathStyle,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
		}
		awsCfg, err := storage.LoadAWSConfig(ctx, storageCfg)
		if err != nil {
			return nil, err
		}
		if cfg.AWS.ArchiveBucket != "" {
			s3 = storage.NewS3Client(awsCfg, storageCfg)
		}
		if cfg.AWS.AlertTopicARN != "" {
			publisher = notify.NewSNSPublisher(awsCfg, cfg.AWS.AlertTopicARN)
		}
	}

	return snapshots.NewDeliveryManager(s3, publisher, snapshots.DeliveryConfig{
		Bucket:         cfg.AWS.ArchiveBucket,
		Prefix:         cfg.Snapshots.ArchivePrefix,
		AlertThreshold: cfg.Snapshots.AlertThreshold,
	}, logger), nil
}

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	runOnce := flag.Bool("run-once", false, "run every job once and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	client, err := records.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	db, err := snapshots.OpenPostgres(cfg.Database.GetDatabaseURL(), snapshots.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Connected to database")

	store := records.NewStore(records.NewMongoFinder(client.Database(cfg.Mongo.Database)), cfg.Mongo.Collections, logger)
	service, err := v1.NewReportService(store, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create report service", zap.Error(err))
	}
	defer service.Close()

	delivery, err := newDelivery(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to configure report delivery", zap.Error(err))
	}

	scheduler := snapshots.NewScheduler(service, snapshots.NewGormRepository(db), delivery, logger, cfg.Emissions.Location())
	worker, err := NewSnapshotWorker(scheduler, jobsFromConfig(cfg.Snapshots.Jobs), logger, DefaultSnapshotWorkerConfig())
	if err != nil {
		logger.Fatal("Invalid snapshot job", zap.Error(err))
	}

	if *runOnce {
		logger.Info("Running snapshot jobs once")
		worker.RunAll(ctx)
		return
	}

	logger.Info("Snapshot worker starting")
	if err := worker.Start(ctx); err != nil {
		logger.Error("Worker error", zap.Error(err))
	}
	logger.Info("Snapshot worker stopped")
}
