package reports

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greenmines/emissions-portal/emissions-portal-backend/internal/balance"
	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
	"greenmines/emissions-portal/emissions-portal-backend/internal/reports/export"
	"greenmines/emissions-portal/emissions-portal-backend/internal/sinks"
)

// Handler handles HTTP requests for emissions reporting
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new reports handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers reporting routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	em := router.Group("/emissions")
	{
		em.GET("/summary", h.getSummary)
		em.GET("/series", h.getSeries)
		em.POST("/aggregate", h.aggregate)
	}

	router.POST("/balance", h.computeBalance)

	sk := router.Group("/sinks")
	{
		sk.POST("/absorption", h.computeAbsorption)
		sk.POST("/required-land", h.requiredLand)
	}

	router.GET("/reports/export", h.exportReport)
	router.DELETE("/reports/cache", h.invalidateCache)
}

// getSummary handles GET /api/v1/emissions/summary
func (h *Handler) getSummary(c *gin.Context) {
	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.GetSummary(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, "Failed to build summary", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// getSeries handles GET /api/v1/emissions/series
func (h *Handler) getSeries(c *gin.Context) {
	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.GetSeries(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, "Failed to build series", err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// aggregate handles POST /api/v1/emissions/aggregate
func (h *Handler) aggregate(c *gin.Context) {
	var req AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode, err := periods.ParseBucketing(req.Bucketing)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var spec *periods.BucketingSpec
	if mode != periods.BucketNone {
		weekStart, err := ParseWeekStart(req.WeekStart)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		spec = &periods.BucketingSpec{Mode: mode, WeekStart: weekStart}
		if req.Anchor != "" {
			anchor, err := periods.ParseDate(req.Anchor, h.service.Location())
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			spec.Anchor = anchor
		}
	}

	c.JSON(http.StatusOK, h.service.Aggregate(req.Records, spec))
}

// computeBalance handles POST /api/v1/balance
func (h *Handler) computeBalance(c *gin.Context) {
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, balance.Compute(req.TotalEmissions, req.TotalAbsorption, req.AverageSequestrationRate))
}

// computeAbsorption handles POST /api/v1/sinks/absorption
func (h *Handler) computeAbsorption(c *gin.Context) {
	var req AbsorptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list := make([]sinks.Sink, 0, len(req.Sinks))
	for _, doc := range req.Sinks {
		list = append(list, sinks.FromDocument(doc, sinks.KindExisting))
	}

	resp := AbsorptionResponse{
		PerSink:       make([]float64, len(list)),
		Sequestration: make([]float64, len(list)),
		Total:         sinks.TotalDailyAbsorption(list),
		AverageRate:   sinks.AverageSequestrationRate(list),
		TotalArea:     sinks.TotalArea(list),
	}
	for i, s := range list {
		resp.PerSink[i] = sinks.DailyAbsorption(s)
		resp.Sequestration[i] = sinks.Sequestration(s, req.Years)
	}

	c.JSON(http.StatusOK, resp)
}

// requiredLand handles POST /api/v1/sinks/required-land
func (h *Handler) requiredLand(c *gin.Context) {
	var req sinks.LandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := sinks.RequiredLand(req)
	if err != nil {
		h.respondError(c, "Failed to size sink", err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// exportReport handles GET /api/v1/reports/export
func (h *Handler) exportReport(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.GetSummary(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, "Failed to build report for export", err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, Document(report)); err != nil {
		h.respondError(c, "Failed to render report", err)
		return
	}

	filename := fmt.Sprintf("carbon-report_%s_%s.%s",
		report.Range.Start.Format(periods.DateLayout),
		report.Range.End.Format(periods.DateLayout),
		format.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// invalidateCache handles DELETE /api/v1/reports/cache?kind=summary|series
func (h *Handler) invalidateCache(c *gin.Context) {
	if err := h.service.InvalidateCache(c.Query("kind")); err != nil {
		h.respondError(c, "Failed to invalidate cache", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError maps domain errors to status codes
func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	} else {
		h.logger.Debug(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusFor is the HTTP status for an error returned by the service.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, periods.ErrUnknownRange),
		errors.Is(err, periods.ErrInvalidRange),
		errors.Is(err, periods.ErrUnknownBucketing),
		errors.Is(err, sinks.ErrUnknownLandType),
		errors.Is(err, sinks.ErrInvalidTarget),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, ErrUnknownCacheKind):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
