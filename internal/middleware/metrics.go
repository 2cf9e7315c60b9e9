package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hakplan/roster-api/internal/service"
)

// Metrics captures per-request latency and status counts. The scrape
// endpoint itself is excluded to avoid self-inflation.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		// Use the route template so path cardinality stays bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
