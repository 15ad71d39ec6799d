package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talkbase/scheduling-api/pkg/logger"
)

// Logger logs each request after it completes, levelled by status class.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"request_id", c.GetString(ContextRequestID),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		var lastErr error
		if last := c.Errors.Last(); last != nil {
			lastErr = last
		}

		switch {
		case status >= 500:
			log.Error(lastErr, "server error", fields...)
		case status >= 400:
			log.Warn("client error", fields...)
		default:
			log.Info("request processed", fields...)
		}
	}
}
