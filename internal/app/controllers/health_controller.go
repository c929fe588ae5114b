package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models/dto"
)

// Pinger checks that the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController reports store and change feed status
type HealthController struct {
	db       Pinger
	realtime func() bool
	logger   zerolog.Logger
}

// NewHealthController creates a new HealthController. db may be nil for
// the in-memory store.
func NewHealthController(db Pinger, realtime func() bool, logger zerolog.Logger) *HealthController {
	return &HealthController{db: db, realtime: realtime, logger: logger}
}

// Health answers 200 when the store is reachable and 503 otherwise
// GET /api/v1/health
func (c *HealthController) Health(ctx *gin.Context) {
	resp := dto.HealthResponse{Status: "ok", Database: "memory"}
	if c.realtime != nil {
		resp.Realtime = c.realtime()
	}

	if c.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := c.db.Ping(pingCtx); err != nil {
			c.logger.Error().Err(err).Msg("Health check: database unreachable")
			resp.Status = "degraded"
			resp.Database = "unreachable"
			ctx.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(resp))
			return
		}
		resp.Database = "ok"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// Ping answers a plain liveness probe
// GET /ping
func (c *HealthController) Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "pong"})
}
