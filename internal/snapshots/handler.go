package snapshots

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler exposes stored snapshots read-only
type Handler struct {
	repository Repository
	logger     *zap.Logger
}

// NewHandler creates a snapshot handler
func NewHandler(repository Repository, logger *zap.Logger) *Handler {
	return &Handler{repository: repository, logger: logger}
}

// RegisterRoutes registers snapshot routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/snapshots")
	{
		group.GET("", h.list)
		group.GET("/:job/latest", h.latest)
	}
}

func (h *Handler) list(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	list, err := h.repository.List(c.Request.Context(), c.Query("job"), limit)
	if err != nil {
		h.logger.Error("Failed to list snapshots", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list snapshots"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
}

func (h *Handler) latest(c *gin.Context) {
	snapshot, err := h.repository.Latest(c.Request.Context(), c.Param("job"))
	if errors.Is(err, ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get latest snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get snapshot"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
