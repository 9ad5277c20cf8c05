package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// unmatchedPath labels requests that hit no route, keeping label
// cardinality bounded.
const unmatchedPath = "unmatched"

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		// Deferred so requests aborted by panic are still counted.
		defer func() {
			path := c.FullPath()
			if path == "" {
				path = unmatchedPath
			}

			status := strconv.Itoa(c.Writer.Status())
			respSize := int64(c.Writer.Size())
			if respSize < 0 {
				respSize = 0
			}

			metrics.RecordHTTPRequest(method, path, status, time.Since(start), reqSize, respSize)
		}()

		c.Next()
	}
}
