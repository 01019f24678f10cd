package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wrenlabs/rca-scheduler/pkg/api/dto"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	version   string
	startTime time.Time
}

// NewHealthHandler returns a HealthHandler that reports version and uptime
// measured from its own construction.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version, startTime: time.Now()}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(map[string]string{"status": "ready"}))
}
