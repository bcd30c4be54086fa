package middleware

import (
	"strconv"
	"time"

	"github.com/domperidog/docshare/pkg/logger"
	"github.com/domperidog/docshare/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id (reusing a client-supplied one), logs
// one line per request and records the HTTP metrics.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		entry := logger.With("request_id", id, "method", c.Request.Method, "route", route, "status", status, "duration", elapsed.String())
		if u := CurrentUser(c); u != nil {
			entry = entry.With("user", u.Username)
		}
		switch {
		case status >= 500:
			entry.Errorf("request failed")
		case status >= 400:
			entry.Infof("request rejected")
		default:
			entry.Debugf("request served")
		}
	}
}
