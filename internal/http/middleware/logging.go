package middleware

import (
	"time"

	"todo_api/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestLogger tags the request with an id (taken from X-Request-ID when the
// caller sent a sane one) and logs the outcome once the handler returns.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		ctx := logger.ContextWithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = UnmatchedPath
		}
		log := logger.WithContext(ctx).With(
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		switch {
		case status >= 500:
			log.Error("request failed", "errors", c.Errors.String())
		case status >= 400:
			log.Warn("request rejected")
		default:
			log.Info("request served")
		}
	}
}
