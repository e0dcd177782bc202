package snapshots

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"

	"go.uber.org/zap"

	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
	"greenmines/emissions-portal/emissions-portal-backend/internal/reports"
	"greenmines/emissions-portal/emissions-portal-backend/internal/reports/export"
	"greenmines/emissions-portal/emissions-portal-backend/pkg/notify"
	"greenmines/emissions-portal/emissions-portal-backend/pkg/storage"
)

// DeliveryConfig configures where snapshot reports go
type DeliveryConfig struct {
	Bucket         string
	Prefix         string
	Format         export.Format
	AlertThreshold float64 // deficit in t CO2e above which an alert is published
}

// DeliveryManager archives rendered reports and raises deficit alerts.
// Either side is skipped when its client is nil or unconfigured.
type DeliveryManager struct {
	storage   storage.S3Client
	publisher notify.Publisher
	config    DeliveryConfig
	logger    *zap.Logger
}

// NewDeliveryManager creates a delivery manager
func NewDeliveryManager(s3 storage.S3Client, publisher notify.Publisher, config DeliveryConfig, logger *zap.Logger) *DeliveryManager {
	if config.Format == "" {
		config.Format = export.FormatExcel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryManager{storage: s3, publisher: publisher, config: config, logger: logger}
}

// ArchiveKey is the object key a snapshot's report is stored under
func (d *DeliveryManager) ArchiveKey(s *BalanceSnapshot) string {
	name := fmt.Sprintf("%s_%s_%s.%s",
		s.PeriodStart.Format(periods.DateLayout),
		s.PeriodEnd.Format(periods.DateLayout),
		s.ID.String()[:8],
		d.config.Format.Extension())
	return path.Join(d.config.Prefix, s.JobName, name)
}

// Archive renders report and uploads it. It returns "" when archiving is off.
func (d *DeliveryManager) Archive(ctx context.Context, s *BalanceSnapshot, report *reports.CarbonReport) (string, error) {
	if d.storage == nil || d.config.Bucket == "" {
		return "", nil
	}

	data, err := export.Render(d.config.Format, reports.Document(report))
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	key := d.ArchiveKey(s)
	if err := d.storage.Upload(ctx, d.config.Bucket, key, bytes.NewReader(data), d.config.Format.ContentType()); err != nil {
		return "", err
	}

	d.logger.Info("Archived snapshot report",
		zap.String("bucket", d.config.Bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)))
	return key, nil
}

// ShouldAlert reports whether the snapshot's deficit exceeds the threshold
func (d *DeliveryManager) ShouldAlert(s *BalanceSnapshot) bool {
	return s.Deficit() > d.config.AlertThreshold
}

// Alert publishes a deficit alert when one is due. It reports whether an
// alert was sent.
func (d *DeliveryManager) Alert(ctx context.Context, s *BalanceSnapshot) (bool, error) {
	if d.publisher == nil || !d.ShouldAlert(s) {
		return false, nil
	}

	alert := notify.Alert{
		Subject: fmt.Sprintf("Carbon deficit %.2f t CO2e (%s)", s.Deficit(), s.JobName),
		Message: fmt.Sprintf(
			"Period %s..%s: emissions %.3f t CO2e, absorption %.3f t CO2/day, gap %.3f t, offset %.2f%%. "+
				"Additional sink area needed: %.1f ha.",
			s.PeriodStart.Format(periods.DateLayout), s.PeriodEnd.Format(periods.DateLayout),
			s.TotalEmissions, s.TotalAbsorption, s.Gap, s.OffsetPercentage, s.AdditionalSinkAreaNeeded),
		Attributes: map[string]string{
			"job":         s.JobName,
			"snapshot_id": s.ID.String(),
			"deficit":     strconv.FormatFloat(s.Deficit(), 'f', 3, 64),
		},
	}

	id, err := d.publisher.Publish(ctx, alert)
	if err != nil {
		return false, err
	}

	d.logger.Warn("Published carbon deficit alert",
		zap.String("job", s.JobName),
		zap.Float64("deficit", s.Deficit()),
		zap.String("message_id", id))
	return true, nil
}
