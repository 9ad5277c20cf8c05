package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KetonAI/backend/internal/relay"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "ketonai"

// Handlers contains all HTTP handlers
type Handlers struct {
	relay   *relay.Relay
	metrics *HandlerMetrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(r *relay.Relay, metrics *HandlerMetrics, logger *zap.Logger) *Handlers {
	return &Handlers{
		relay:   r,
		metrics: metrics,
		logger:  logger,
	}
}

// Health handles the liveness check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServiceName,
	})
}
