package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KetonAI/backend/internal/api/middleware"
	"github.com/KetonAI/backend/internal/infrastructure/monitoring"
	"github.com/KetonAI/backend/internal/persona"
	"github.com/KetonAI/backend/internal/relay"
	"github.com/KetonAI/backend/internal/relay/relaytest"
)

func newTestRouter(t *testing.T, backend relay.Backend) (*gin.Engine, *monitoring.Metrics) {
	t.Helper()
	return newRouterWithLogger(t, backend, zaptest.NewLogger(t))
}

func newRouterWithLogger(t *testing.T, backend relay.Backend, logger *zap.Logger) (*gin.Engine, *monitoring.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics()
	r := relay.New(backend, relay.NewTemplate(persona.Default()))
	h := NewHandlers(r, NewHandlerMetrics(metrics), logger)

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.POST("/chat", h.Chat)
	router.GET("/health", h.Health)
	return router, metrics
}

func postChat(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func outcomes(m *monitoring.Metrics, kind relay.Kind) float64 {
	return testutil.ToFloat64(m.RelayOutcomes.WithLabelValues(string(kind)))
}

func TestChatRejectsMissingMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "empty message", body: `{"message":""}`},
		{name: "null message", body: `{"message":null}`},
		{name: "non-string message", body: `{"message":42}`},
		{name: "malformed json", body: `{"message":`},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := relaytest.Reply("never")
			router, metrics := newTestRouter(t, backend)

			w := postChat(router, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"No message provided."}`, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			assert.Zero(t, backend.Calls(), "backend must not be contacted")
			assert.Equal(t, 1.0, outcomes(metrics, relay.KindRejected))
		})
	}
}

func TestChatRejectsBeforeRelaying(t *testing.T) {
	for _, body := range []string{`{"message":""}`, `{"message":`} {
		core, logs := observer.New(zapcore.DebugLevel)
		backend := relaytest.Reply("never")
		router, metrics := newRouterWithLogger(t, backend, zap.New(core))

		w := postChat(router, body)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, 1, logs.FilterMessage("chat request rejected").Len(), body)
		assert.Equal(t, 1.0, outcomes(metrics, relay.KindRejected), body)
		assert.Zero(t, testutil.CollectAndCount(metrics.BackendOpenDuration), body)
		assert.Zero(t, testutil.ToFloat64(metrics.ActiveStreams), body)
	}
}

func TestChatStreamsReply(t *testing.T) {
	backend := relaytest.Reply("Hi", " there!")
	router, metrics := newTestRouter(t, backend)

	w := postChat(router, `{"message":"Hello"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hi there!", w.Body.String())
	assert.Equal(t, contentTypePlain, w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.True(t, w.Flushed)

	req := backend.LastRequest()
	require.NotNil(t, req)
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "Hello", req.Contents[0].Parts[0].Text)
	assert.Equal(t, persona.DefaultModel, req.Model)

	assert.Equal(t, 1.0, outcomes(metrics, relay.KindCompleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RelayFragments))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ActiveStreams))
}

func TestChatPreservesFragmentOrder(t *testing.T) {
	fragments := []string{"Keto ", "", "pancakes ", "need ", "almond ", "flour", " 🥞"}
	router, _ := newTestRouter(t, relaytest.Reply(fragments...))

	w := postChat(router, `{"message":"recipe?"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, strings.Join(fragments, ""), w.Body.String())
}

func TestChatEmptyReply(t *testing.T) {
	router, _ := newTestRouter(t, relaytest.Reply())

	w := postChat(router, `{"message":"Hello"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, contentTypePlain, w.Header().Get("Content-Type"))
}

func TestChatBackendFailureBeforeFirstByte(t *testing.T) {
	tests := []struct {
		name    string
		backend *relaytest.Backend
	}{
		{name: "open fails", backend: relaytest.FailOpen(relaytest.ErrBackend)},
		{name: "first receive fails", backend: relaytest.FailAfter(relaytest.ErrBackend)},
		{name: "fails after empty fragments", backend: relaytest.FailAfter(relaytest.ErrBackend, "", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, metrics := newTestRouter(t, tt.backend)

			w := postChat(router, `{"message":"Hello"}`)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"Failed to get response from Gemini"}`, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			assert.Empty(t, w.Header().Get("Cache-Control"), "streaming headers must not leak onto the error")
			assert.Empty(t, w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, 1, tt.backend.Calls(), "no retry")
			assert.Equal(t, 1.0, outcomes(metrics, relay.KindBackendError))
		})
	}
}

func TestChatTruncatesOnMidStreamFailure(t *testing.T) {
	router, metrics := newTestRouter(t, relaytest.FailAfter(relaytest.ErrBackend, "partial"))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{"message":"Hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypePlain, resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	assert.Equal(t, "partial", string(body))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "the transfer must not end cleanly")
	assert.NotContains(t, string(body), "error")

	assert.Equal(t, 1.0, outcomes(metrics, relay.KindTruncated))
}

func TestChatClientDisconnectCancelsBackend(t *testing.T) {
	backend := relaytest.Reply("Hi")
	backend.Hold = true
	router, metrics := newTestRouter(t, backend)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/chat", strings.NewReader(`{"message":"Hello"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := make([]byte, 2)
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	assert.Equal(t, "Hi", string(buf))

	cancel()

	assert.Eventually(t, func() bool {
		return outcomes(metrics, relay.KindClientGone) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Error(t, backend.LastContext().Err())
	assert.Equal(t, 1, backend.Closed())
}

func TestChatConcurrentRequests(t *testing.T) {
	router, metrics := newTestRouter(t, relaytest.Reply("a", "b"))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	const n = 10
	bodies := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{"message":"Hello"}`))
			if err != nil {
				bodies <- err.Error()
				return
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			bodies <- string(b)
		}()
	}

	for i := 0; i < n; i++ {
		assert.Equal(t, "ab", <-bodies)
	}
	assert.Equal(t, float64(n), outcomes(metrics, relay.KindCompleted))
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, relaytest.Reply())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"ketonai"}`, w.Body.String())
}
