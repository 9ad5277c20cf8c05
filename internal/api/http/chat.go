package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KetonAI/backend/internal/infrastructure/tracing"
	"github.com/KetonAI/backend/internal/relay"
)

const (
	msgNoMessage     = "No message provided."
	msgBackendFailed = "Failed to get response from Gemini"

	contentTypePlain = "text/plain; charset=utf-8"
)

// Chat relays a message to the generation backend and streams the reply
// as plain text.
//
// Failures before the first byte are answered with a JSON error. Once bytes
// have been sent a failure drops the connection, so the caller sees an
// incomplete body rather than a clean end.
func (h *Handlers) Chat(c *gin.Context) {
	var req relay.ChatRequest
	err := c.ShouldBindJSON(&req)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		// Malformed and non-string bodies are indistinguishable from a
		// missing message to the caller.
		h.reject(c, err)
		return
	}

	finish := h.metrics.TrackRelay()
	out := h.relay.Serve(c.Request.Context(), req, &responseSink{w: c.Writer})
	finish(out)

	h.respond(c, out)
}

func (h *Handlers) respond(c *gin.Context, out relay.Outcome) {
	fields := append(tracing.Fields(c.Request.Context()),
		zap.String("model", h.relay.Template().Model),
		zap.String("outcome", string(out.Kind())),
		zap.Int("fragments", out.Fragments),
		zap.Int64("bytes", out.Bytes),
		zap.Duration("open_duration", out.OpenDuration),
		zap.Duration("duration", out.Duration),
	)
	if out.Err != nil {
		fields = append(fields, zap.String("failed_in", out.FailedIn.String()), zap.Error(out.Err))
	}

	switch out.Kind() {
	case relay.KindCompleted:
		h.logger.Debug("chat relay completed", fields...)
		if !c.Writer.Written() {
			// No fragments: still answer 200 with an empty text body.
			c.Status(http.StatusOK)
			c.Writer.WriteHeaderNow()
		}

	case relay.KindRejected:
		clearStreamHeaders(c.Writer.Header())
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoMessage})

	case relay.KindClientGone:
		h.logger.Info("client disconnected during chat relay", fields...)

	case relay.KindTruncated:
		_ = c.Error(out.Err)
		h.logger.Error("chat relay failed mid-stream", fields...)
		// The status line is gone; dropping the connection is the only
		// way left to signal failure.
		panic(http.ErrAbortHandler)

	default:
		_ = c.Error(out.Err)
		h.logger.Error("chat relay failed", fields...)
		clearStreamHeaders(c.Writer.Header())
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgBackendFailed})
	}
}

func (h *Handlers) reject(c *gin.Context, err error) {
	h.logger.Debug("chat request rejected", append(tracing.Fields(c.Request.Context()), zap.Error(err))...)
	h.metrics.TrackRejected()
	c.JSON(http.StatusBadRequest, gin.H{"error": msgNoMessage})
}

// streamHeaders are set by Prepare for a plain text reply.
var streamHeaders = map[string]string{
	"Content-Type":           contentTypePlain,
	"Cache-Control":          "no-cache",
	"X-Content-Type-Options": "nosniff",
}

// clearStreamHeaders undoes Prepare before a JSON error is written.
func clearStreamHeaders(h http.Header) {
	for name := range streamHeaders {
		h.Del(name)
	}
}

// responseSink adapts the gin writer to relay.Sink.
type responseSink struct {
	w gin.ResponseWriter
}

func (s *responseSink) Prepare() {
	h := s.w.Header()
	for name, value := range streamHeaders {
		h.Set(name, value)
	}
}

func (s *responseSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *responseSink) Flush() {
	s.w.Flush()
}
