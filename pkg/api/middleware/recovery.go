// Package middleware holds the gin middleware chain the HTTP surface runs
// every request through, grounded on the teacher's recovery/logger pair.
package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wrenlabs/rca-scheduler/pkg/api/dto"
)

// Recovery converts a panic inside a handler into a 500 response instead
// of crashing the process, matching the containment discipline the
// scheduler itself applies to evaluator panics.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("api: panic recovered: %v\n%s", err, debug.Stack())
				c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, "internal server error"))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// Logger logs one line per request: method, path, status, latency.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		log.Printf("api: %s %s %d %s", c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
