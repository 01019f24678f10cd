// Package api wires the gin HTTP surface exposed alongside the scheduler:
// health/readiness probes and a read-only metrics/manual-tick endpoint,
// grounded on the teacher's router.go + server.go split.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wrenlabs/rca-scheduler/pkg/api/handler"
	"github.com/wrenlabs/rca-scheduler/pkg/api/middleware"
	"github.com/wrenlabs/rca-scheduler/pkg/scheduler"
)

// SetupRouter builds the gin engine for a running Scheduler.
func SetupRouter(sched *scheduler.Scheduler, version string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	healthHandler := handler.NewHealthHandler(version)
	schedHandler := handler.NewSchedulerHandler(sched)

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/metrics", schedHandler.Metrics)
		v1.POST("/tick", schedHandler.Tick)
	}

	return router
}
