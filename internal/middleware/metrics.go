package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stp-api/internal/service"
)

// Metrics observes every request on the Prometheus collectors. A nil
// service disables instrumentation.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
