package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/pkg/metrics"
)

// Pinger is implemented by the database handle
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController reports liveness and lists the API
type HealthController struct {
	db          Pinger
	environment string
	version     string
	startedAt   time.Time
}

// NewHealthController creates a new HealthController. A nil db means the
// in-memory store is in use.
func NewHealthController(db Pinger, environment, version string) *HealthController {
	return &HealthController{
		db:          db,
		environment: environment,
		version:     version,
		startedAt:   time.Now(),
	}
}

// Health pings the database and reports process state
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse}
// @Failure 503 {object} dto.APIResponse{data=dto.HealthResponse}
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	resp := dto.HealthResponse{
		Status:      "OK",
		Timestamp:   time.Now(),
		Environment: c.environment,
		Database:    "memory",
		Uptime:      time.Since(c.startedAt).Seconds(),
		Version:     c.version,
	}

	if c.db == nil {
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := c.db.Ping(pingCtx)
	metrics.ObserveDBPing(time.Since(start))
	if err != nil {
		resp.Status = "ERROR"
		resp.Database = "disconnected"
		ctx.JSON(http.StatusServiceUnavailable, dto.APIResponse{
			Success:   false,
			Message:   "Datenbank nicht erreichbar",
			Data:      resp,
			Timestamp: time.Now(),
		})
		return
	}

	resp.Database = "connected"
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// Ping answers pong
// @Summary Ping
// @Tags system
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Router /ping [get]
func (c *HealthController) Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"message": "pong"}, ""))
}

// Index lists the API endpoints
// GET /api
func (c *HealthController) Index(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"name":    "Bildungsfortschritt API",
		"version": c.version,
		"endpoints": gin.H{
			"auth":         "/api/auth",
			"users":        "/api/user",
			"modules":      "/api/modules",
			"competencies": "/api/competencies",
			"health":       "/api/health",
		},
	}, ""))
}
