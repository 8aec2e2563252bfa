package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures a store operation
type Timer struct {
	start     time.Time
	metrics   *Metrics
	operation string
}

// NewTimer starts timing operation
func NewTimer(metrics *Metrics, operation string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   metrics,
		operation: operation,
	}
}

// Stop records the duration with result
func (t *Timer) Stop(result string) {
	if t.metrics == nil {
		return
	}
	t.metrics.ObserveStore(t.operation, result, time.Since(t.start))
}
