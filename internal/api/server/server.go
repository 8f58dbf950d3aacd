package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/api/rest"
	"github.com/feral-file/ff-marketplace/internal/auth"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RateLimit is disabled when Requests or Period is zero
	RateLimit middleware.RateLimitConfig
}

// Server wraps the HTTP server
type Server struct {
	config      Config
	marketplace marketplace.Service
	auth        auth.Service
	rateLimiter adapter.RedisRateLimiter
	httpServer  *http.Server
}

// New creates a new API server.
// rateLimiter may be nil, in which case requests are limited per process.
func New(cfg Config, market marketplace.Service, authService auth.Service, rateLimiter adapter.RedisRateLimiter) *Server {
	return &Server{
		config:      cfg,
		marketplace: market,
		auth:        authService,
		rateLimiter: rateLimiter,
	}
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	// Setup middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	// Rate limiting applies to the versioned API only
	rateLimit := middleware.RateLimit(s.config.RateLimit, s.rateLimiter)
	router.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			rateLimit(c)
			return
		}
		c.Next()
	})

	restHandler := rest.NewHandler(s.marketplace, s.auth)
	rest.SetupRoutes(router, restHandler, middleware.Auth(s.auth))

	return router
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
