package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/questline-backend/internal/observability"
)

// Routes left out of the API SLI: health checks and the scrape endpoint.
var unobservedRoutes = map[string]bool{
	"/healthcheck": true,
	"/readyz":      true,
	"/metrics":     true,
}

// Metrics records request count, latency and in-flight gauge per route
// template. Requests that match no route share the "unmatched" label.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if m == nil || unobservedRoutes[route] {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}
		m.ApiInflightInc()
		start := time.Now()
		c.Next()
		m.ApiInflightDec()
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
