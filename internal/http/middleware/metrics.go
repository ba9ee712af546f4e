package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/observability"
)

// Metrics records request counts and latency per route. Job routes are
// split per stage; unknown stages keep the templated route so the label
// set stays bounded.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		m.ObserveAPI(c.Request.Method, metricRoute(c), strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func metricRoute(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return "unknown"
	}
	if !strings.Contains(route, ":stage") {
		return route
	}
	stage, err := types.ParseStage(c.Param("stage"))
	if err != nil {
		return route
	}
	return strings.Replace(route, ":stage", string(stage), 1)
}
