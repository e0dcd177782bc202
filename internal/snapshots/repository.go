package snapshots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Repository stores balance snapshots
type Repository interface {
	Create(ctx context.Context, snapshot *BalanceSnapshot) error
	MarkDelivered(ctx context.Context, id uuid.UUID, archiveKey string, alertSent bool) error
	Latest(ctx context.Context, jobName string) (*BalanceSnapshot, error)
	List(ctx context.Context, jobName string, limit int) ([]BalanceSnapshot, error)
}

// PoolConfig sizes the connection pool
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenPostgres connects gorm to dsn and migrates the snapshot table
func OpenPostgres(dsn string, pool PoolConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&BalanceSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// GormRepository is a Repository backed by gorm
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps db
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, snapshot *BalanceSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

func (r *GormRepository) MarkDelivered(ctx context.Context, id uuid.UUID, archiveKey string, alertSent bool) error {
	result := r.db.WithContext(ctx).Model(&BalanceSnapshot{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"archive_key": archiveKey,
			"alert_sent":  alertSent,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update snapshot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

func (r *GormRepository) Latest(ctx context.Context, jobName string) (*BalanceSnapshot, error) {
	var snapshot BalanceSnapshot
	err := r.db.WithContext(ctx).
		Where("job_name = ?", jobName).
		Order("computed_at DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r *GormRepository) List(ctx context.Context, jobName string, limit int) ([]BalanceSnapshot, error) {
	var list []BalanceSnapshot
	query := r.db.WithContext(ctx).Order("computed_at DESC")
	if jobName != "" {
		query = query.Where("job_name = ?", jobName)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return list, nil
}

// MemoryRepository keeps snapshots in memory
type MemoryRepository struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]BalanceSnapshot
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{snapshots: map[uuid.UUID]BalanceSnapshot{}}
}

func (r *MemoryRepository) Create(_ context.Context, snapshot *BalanceSnapshot) error {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshot.ID] = *snapshot
	return nil
}

func (r *MemoryRepository) MarkDelivered(_ context.Context, id uuid.UUID, archiveKey string, alertSent bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snapshots[id]
	if !ok {
		return ErrSnapshotNotFound
	}
	s.ArchiveKey = archiveKey
	s.AlertSent = alertSent
	r.snapshots[id] = s
	return nil
}

func (r *MemoryRepository) Latest(ctx context.Context, jobName string) (*BalanceSnapshot, error) {
	list, _ := r.List(ctx, jobName, 1)
	if len(list) == 0 {
		return nil, ErrSnapshotNotFound
	}
	return &list[0], nil
}

func (r *MemoryRepository) List(_ context.Context, jobName string, limit int) ([]BalanceSnapshot, error) {
	r.mu.RLock()
	list := make([]BalanceSnapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		if jobName == "" || s.JobName == jobName {
			list = append(list, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ComputedAt.After(list[j].ComputedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
