package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// HTTPMiddleware creates Gin middleware for HTTP tracing
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID, parentID := ExtractTraceContext(c.Request.Header)
		ctx := WithTrace(c.Request.Context(), traceID, parentID)

		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}

		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)

		c.Request = c.Request.WithContext(ctx)

		// Headers must be set before the handler writes its first byte.
		c.Header(HeaderTraceID, span.TraceID.String())
		c.Header(HeaderSpanID, span.SpanID.String())

		// Deferred so spans of aborted responses are still submitted.
		defer func() {
			span.SetStatus(c.Writer.Status())
			span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))
			if len(c.Errors) > 0 {
				span.SetError(c.Errors.Last())
			}

			span.Finish()
			tracer.Submit(span)
		}()

		c.Next()
	}
}
