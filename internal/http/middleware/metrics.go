package middleware

import (
	"strconv"
	"time"

	"todo_api/internal/metrics"

	"github.com/gin-gonic/gin"
)

// UnmatchedPath labels requests that hit no route, keeping label cardinality bounded.
const UnmatchedPath = "unmatched"

// Metrics counts every request and observes its latency, labelled by the
// route template rather than the raw URL.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = UnmatchedPath
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
