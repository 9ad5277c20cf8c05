package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "github.com/KetonAI/backend/internal/api/http"
	"github.com/KetonAI/backend/internal/api/middleware"
	"github.com/KetonAI/backend/internal/gemini"
	"github.com/KetonAI/backend/internal/infrastructure/config"
	"github.com/KetonAI/backend/internal/infrastructure/logging"
	"github.com/KetonAI/backend/internal/infrastructure/monitoring"
	"github.com/KetonAI/backend/internal/infrastructure/resilience"
	"github.com/KetonAI/backend/internal/infrastructure/tracing"
	"github.com/KetonAI/backend/internal/persona"
	"github.com/KetonAI/backend/internal/relay"
)

const (
	breakerName       = "gemini"
	readHeaderTimeout = 10 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	relay   *relay.Relay
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewServer creates a server relaying to the Gemini API
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	client, err := gemini.New(gemini.Config{
		APIKey:     cfg.Gemini.APIKey,
		BaseURL:    cfg.Gemini.BaseURL,
		APIVersion: cfg.Gemini.APIVersion,
		Timeout:    cfg.Gemini.Timeout,
	}, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return New(cfg, logger, client)
}

// New creates a server relaying to backend
func New(cfg *config.Config, logger *logging.Logger, backend relay.Backend) (*Server, error) {
	profile, err := persona.Load(cfg.Persona.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona: %w", err)
	}

	logger.Info("Initializing KetonAI relay",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("persona", profile.Name),
		zap.String("model", profile.Model),
		zap.Float32("temperature", profile.Temperature),
		zap.Bool("breaker", cfg.Breaker.Enabled),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New(handlers.ServiceName, logger.Logger)

	var opts []relay.Option
	if cfg.Breaker.Enabled {
		opts = append(opts, relay.WithBreaker(newBreaker(cfg.Breaker, logger, metrics)))
	}
	rel := relay.New(backend, relay.NewTemplate(profile), opts...)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Logger))
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.RequestLogger(logger.Logger))

	h := handlers.NewHandlers(rel, handlers.NewHandlerMetrics(metrics), logger.Logger)

	router.POST("/chat", h.Chat)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
			// No write timeout: replies stream for as long as the backend talks.
		},
		relay:   rel,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		tracer:  tracer,
	}, nil
}

func newBreaker(cfg config.BreakerConfig, logger *logging.Logger, metrics *monitoring.Metrics) *resilience.Breaker {
	metrics.SetBreakerState(breakerName, int(resilience.StateClosed))

	return resilience.New(breakerName, resilience.Settings{
		Threshold: cfg.Threshold,
		Cooldown:  cfg.Cooldown,
		Classify:  gemini.Verdict,
		OnStateChange: func(name string, from, to resilience.State) {
			metrics.SetBreakerState(name, int(to))
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until it is shut down
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	return s.serve(s.http.ListenAndServe)
}

// Serve accepts connections on l until the server is shut down
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", l.Addr().String()))
	return s.serve(func() error { return s.http.Serve(l) })
}

func (s *Server) serve(fn func() error) error {
	if err := fn(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight relays until
// ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to drain connections", zap.Error(err))
		err = fmt.Errorf("failed to shut down http server: %w", err)
	}

	s.tracer.Close()
	_ = s.logger.Sync()

	return err
}
