package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"greenmines/emissions-portal/emissions-portal-backend/internal/config"
	"greenmines/emissions-portal/emissions-portal-backend/internal/emissions"
	"greenmines/emissions-portal/emissions-portal-backend/internal/records"
	"greenmines/emissions-portal/emissions-portal-backend/internal/reports"
	"greenmines/emissions-portal/emissions-portal-backend/internal/snapshots"
)

// ReportsAPI holds the reporting API dependencies
type ReportsAPI struct {
	Handler   *reports.Handler
	Service   *reports.Service
	Snapshots *snapshots.Handler
}

// SetupReportsAPI wires the report service over the record store. db may be
// nil, in which case the snapshot routes are not served.
func SetupReportsAPI(store *records.Store, db *gorm.DB, cfg *config.Config, logger *zap.Logger) (*ReportsAPI, error) {
	service, err := NewReportService(store, cfg, logger)
	if err != nil {
		return nil, err
	}

	api := &ReportsAPI{
		Handler: reports.NewHandler(service, logger),
		Service: service,
	}
	if db != nil {
		api.Snapshots = snapshots.NewHandler(snapshots.NewGormRepository(db), logger)
	}
	return api, nil
}

// NewReportService builds the report service from configuration
func NewReportService(store *records.Store, cfg *config.Config, logger *zap.Logger) (*reports.Service, error) {
	unit, err := emissions.ParseUnit(cfg.Emissions.MethaneUnit)
	if err != nil {
		return nil, err
	}
	return reports.NewService(store, store, logger, reports.ServiceConfig{
		MethaneUnit: unit,
		Location:    cfg.Emissions.Location(),
		CacheTTL:    cfg.Emissions.CacheTTL,
	}), nil
}

// RegisterReportsRoutes registers the reporting routes on the router group
func RegisterReportsRoutes(router *gin.RouterGroup, api *ReportsAPI) {
	api.Handler.RegisterRoutes(router)
	if api.Snapshots != nil {
		api.Snapshots.RegisterRoutes(router)
	}
}
