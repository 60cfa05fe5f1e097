// Package api exposes the nearby view and the listing operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"give4need/internal/common/auth"
	"give4need/internal/common/logger"
	"give4need/internal/listing"
	"give4need/internal/nearby"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	CookieName string
	LoginPath  string
}

type Server struct {
	config   Config
	router   *gin.Engine
	verifier *auth.TokenVerifier
	nearby   *nearby.Service
	listings *listing.Service
	checks   map[string]Pinger
	logger   logger.Logger
}

func NewServer(
	cfg Config,
	verifier *auth.TokenVerifier,
	nearbySvc *nearby.Service,
	listings *listing.Service,
	checks map[string]Pinger,
	log logger.Logger,
) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "auth-token"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	s := &Server{
		config:   cfg,
		router:   gin.New(),
		verifier: verifier,
		nearby:   nearbySvc,
		listings: listings,
		checks:   checks,
		logger:   log,
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.Use(s.authMiddleware())

	v1.GET("/recommendations", s.handleRecommendations)

	v1.GET("/items/latest", s.handleLatest)
	v1.GET("/items/search", s.handleSearch)
	v1.GET("/items/mine", s.handleMine)
	v1.GET("/items/:id", s.handleDetails)
	v1.POST("/items", s.handleCreate)
	v1.PUT("/items/:id", s.handleUpdate)
	v1.POST("/items/:id/availability", s.handleToggle)
	v1.DELETE("/items/:id", s.handleDelete)

	v1.GET("/categories/:category", s.handleCategory)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range s.checks {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
