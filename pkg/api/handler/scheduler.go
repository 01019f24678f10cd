package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wrenlabs/rca-scheduler/pkg/api/dto"
	"github.com/wrenlabs/rca-scheduler/pkg/scheduler"
)

// SchedulerHandler exposes read-only scheduler metrics and a manual tick
// trigger, mostly useful for local debugging outside the cron cadence.
type SchedulerHandler struct {
	sched *scheduler.Scheduler
}

// NewSchedulerHandler binds a handler to a running Scheduler.
func NewSchedulerHandler(sched *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{sched: sched}
}

// Metrics handles GET /metrics.
func (h *SchedulerHandler) Metrics(c *gin.Context) {
	snap := h.sched.Snapshot()
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.MetricsResponse{
		NodeCount:        snap.NodeCount,
		MutedNodes:       snap.MutedNodes,
		CurrTick:         snap.CurrTick,
		LastTickDuration: snap.LastTickDuration.String(),
		DegradedTicks:    snap.DegradedTicks,
	}))
}

// Tick handles POST /tick, running one scheduler tick synchronously and
// returning once it completes.
func (h *SchedulerHandler) Tick(c *gin.Context) {
	h.sched.Run(context.Background())
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.TickResponse{Timestamp: time.Now()}))
}
