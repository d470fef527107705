package monitoring

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates Gin middleware for request monitoring
func Middleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.IncrementRequest()

		ip := c.ClientIP()
		userAgent := c.GetHeader("User-Agent")
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		metrics.RecordResponseTime(duration)
		metrics.RecordRequestByStatus(statusCode)

		if statusCode >= 400 {
			metrics.IncrementError()
		}

		logger.RequestLogger(method, path, ip, userAgent, statusCode, duration)

		// Team-sized inputs should analyze well under a second
		if duration > time.Second {
			logger.SystemLogger("slow_request", method+" "+path+" took "+duration.String())
		}
	}
}
