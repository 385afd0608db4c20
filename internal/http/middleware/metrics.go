package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/observability"
)

// Metrics records per-route request counts, latency and in-flight gauge.
// Probe endpoints are excluded so scrapes and liveness checks do not drown
// the ingest series.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" || route == "/healthcheck" {
			c.Next()
			return
		}
		if route == "" {
			route = "unknown"
		}

		m.ApiInflightInc()
		defer m.ApiInflightDec()

		start := time.Now()
		c.Next()

		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
