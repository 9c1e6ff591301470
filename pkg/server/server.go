// Package server exposes the engine over HTTP with gin.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/server/handlers"
)

// Server represents the HTTP server.
type Server struct {
	config *config.Config
	router *gin.Engine
	client *graphweave.Client
	server *http.Server
}

// New creates a new server instance.
func New(cfg *config.Config, client *graphweave.Client) *Server {
	return &Server{
		config: cfg,
		client: client,
	}
}

// Setup sets up the server routes and middleware.
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes.
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.client)
	graphHandler := handlers.NewGraphHandler(s.client)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		ingest := v1.Group("/ingest")
		{
			ingest.POST("/text", graphHandler.IngestText)
			ingest.POST("/document", graphHandler.IngestDocument)
		}

		v1.POST("/query", graphHandler.Query)

		graph := v1.Group("/graph")
		{
			graph.GET("/export", graphHandler.Export)
			graph.POST("/import", graphHandler.Import)
			graph.POST("/subgraph", graphHandler.Subgraph)
			graph.POST("/similar", graphHandler.Similar)
			graph.GET("/stats", graphHandler.Stats)
		}

		v1.POST("/analytics/recompute", graphHandler.Recompute)
		v1.GET("/entities/:id", graphHandler.GetEntity)
		v1.POST("/entities/:id/archive", graphHandler.Archive)
	}
}

// Start starts the server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the underlying router for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// corsMiddleware adds CORS headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
