// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"account_agent/internal/auth"
	"account_agent/internal/common"
	"account_agent/internal/config"
	"account_agent/internal/jobs"
	"account_agent/internal/middleware"
	"account_agent/internal/profile"
	"account_agent/internal/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	manager *auth.Manager

	// Jobs
	outboxReplayJob *jobs.OutboxReplayJob
}

// NewServer creates a new instance of the agent's local API server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	manager *auth.Manager,
	authHandler *auth.Handler,
	profileHandler *profile.Handler,
	outboxReplayJob *jobs.OutboxReplayJob,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.RegisterValidations(v); err != nil {
			return nil, fmt.Errorf("registering validation tags: %w", err)
		}
	}

	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	// The API is served on the loopback interface to local clients only.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOriginFunc = isLocalOrigin
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", common.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", common.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	requireSession := middleware.RequireSession(manager, logger.Named("SessionMiddleware"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		status := manager.Status()
		c.JSON(http.StatusOK, gin.H{"status": "UP", "session": status.State})
	})

	v1 := router.Group("/api/v1")
	authHandler.RegisterRoutes(v1, requireSession)
	profileHandler.RegisterRoutes(v1, requireSession)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// session/events is a long-lived stream, so no WriteTimeout.
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer:      httpServer,
		router:          router,
		cfg:             cfg,
		logger:          logger,
		manager:         manager,
		outboxReplayJob: outboxReplayJob,
	}, nil
}

// Router exposes the configured engine, mainly for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Logger returns the application logger.
func (s *Server) Logger() *zap.Logger { return s.logger }

// Start restores the persisted session, starts the replay job and serves HTTP
// until Shutdown is called.
func (s *Server) Start() error {
	restoreCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ServerTimeout)
	res := s.manager.Restore(restoreCtx)
	cancel()
	if !res.Success {
		s.logger.Warn("Starting signed out", zap.String("code", res.Code), zap.String("message", res.Message))
	}

	if s.outboxReplayJob != nil {
		if err := s.outboxReplayJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start outbox replay job", zap.Error(err))
		}
	} else {
		s.logger.Info("Outbox replay job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.outboxReplayJob != nil {
		s.outboxReplayJob.Stop()
	}
	s.manager.Close()
	return s.httpServer.Shutdown(ctx)
}

func isLocalOrigin(origin string) bool {
	for _, host := range []string{"http://localhost", "http://127.0.0.1", "http://[::1]"} {
		if origin == host || strings.HasPrefix(origin, host+":") {
			return true
		}
	}
	return false
}
