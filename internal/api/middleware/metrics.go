package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/mediagate/internal/metrics"
)

// Metrics records inflight, count and latency per matched route.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := m.RequestStarted()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		done(route, c.Request.Method, c.Writer.Status())
	}
}
