package handlers

import (
	"context"
	"net/http"
	"time"

	"waterquality/internal/repository"
	"waterquality/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatsProvider reports cache server statistics.
type StatsProvider func(ctx context.Context) (map[string]string, error)

type SystemHandler struct {
	measurements service.MeasurementService
	cache        repository.CacheRepository
	cacheEnabled bool
	cacheStats   StatsProvider
	storage      string
	logger       *zap.Logger
}

// NewSystemHandler builds the health and stats handler. cacheStats may be nil
// when the cache is disabled.
func NewSystemHandler(
	measurements service.MeasurementService,
	cache repository.CacheRepository,
	cacheStats StatsProvider,
	storage string,
	logger *zap.Logger,
) *SystemHandler {
	return &SystemHandler{
		measurements: measurements,
		cache:        cache,
		cacheEnabled: cacheStats != nil,
		cacheStats:   cacheStats,
		storage:      storage,
		logger:       logger,
	}
}

func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	services := gin.H{}

	if err := h.measurements.Ping(ctx); err != nil {
		h.logger.Warn("storage health check failed", zap.Error(err))
		services["storage"] = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		services["storage"] = "connected"
	}

	switch {
	case !h.cacheEnabled:
		services["cache"] = "disabled"
	case h.cache.Ping(ctx) != nil:
		// The API keeps working without its cache.
		services["cache"] = "unavailable"
	default:
		services["cache"] = "connected"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"storage":   h.storage,
		"services":  services,
	})
}

func (h *SystemHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.measurements.Stats(ctx)
	if err != nil {
		internalError(c, h.logger, "failed to collect stats", err)
		return
	}

	body := gin.H{"database": stats}
	if h.cacheEnabled {
		cacheStats, err := h.cacheStats(ctx)
		if err != nil {
			h.logger.Warn("failed to collect cache stats", zap.Error(err))
		} else {
			body["redis"] = cacheStats
		}
	}
	c.JSON(http.StatusOK, body)
}
