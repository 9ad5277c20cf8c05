package http

import (
	"github.com/KetonAI/backend/internal/infrastructure/monitoring"
	"github.com/KetonAI/backend/internal/relay"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// TrackRelay marks a relay as active and returns the func that records
// how it ended.
func (hm *HandlerMetrics) TrackRelay() func(relay.Outcome) {
	hm.metrics.StreamStarted()
	return func(out relay.Outcome) {
		if out.State == relay.StateCompleted || out.FailedIn >= relay.StateBackendCalled {
			var openErr error
			if out.FailedIn == relay.StateBackendCalled {
				openErr = out.Err
			}
			hm.metrics.RecordBackendOpen(out.OpenDuration, openErr)
		}
		hm.metrics.StreamFinished(string(out.Kind()), out.Fragments, out.Bytes)
	}
}

// TrackRejected records a request refused before reaching the relay.
func (hm *HandlerMetrics) TrackRejected() {
	hm.metrics.RelayOutcomes.WithLabelValues(string(relay.KindRejected)).Inc()
}
