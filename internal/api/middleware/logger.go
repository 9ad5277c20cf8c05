package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KetonAI/backend/internal/infrastructure/tracing"
)

// RequestLogger logs one line per request after the response is finished.
// Server errors are logged at warn level.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Deferred so requests aborted by panic are still logged.
		defer func() {
			status := c.Writer.Status()
			fields := append(tracing.Fields(c.Request.Context()),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", status),
				zap.Int("size", c.Writer.Size()),
				zap.Duration("latency", time.Since(start)),
				zap.String("client_ip", c.ClientIP()),
			)

			if status >= 500 {
				logger.Warn("request finished", fields...)
				return
			}
			logger.Info("request finished", fields...)
		}()

		c.Next()
	}
}

// Recovery converts panics into a 500 and logs them with the stack.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			fields := append(tracing.Fields(c.Request.Context()),
				zap.Any("panic", recovered),
				zap.String("path", c.Request.URL.Path),
				zap.Stack("stack"),
			)
			logger.Error("panic recovered", fields...)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()

		c.Next()
	}
}
