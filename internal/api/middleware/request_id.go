package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/KetonAI/backend/internal/infrastructure/tracing"
	"github.com/KetonAI/backend/internal/shared/id"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with an ID that ends up in each log line
// written for it. A well-formed inbound X-Request-ID is kept; anything
// else is replaced with a fresh ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := id.ParseRequestID(c.GetHeader(HeaderRequestID))
		if !ok {
			requestID = id.NewRequestID()
		}

		c.Request = c.Request.WithContext(tracing.WithRequestID(c.Request.Context(), requestID))
		c.Header(HeaderRequestID, requestID.String())

		c.Next()
	}
}
