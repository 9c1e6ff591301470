package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/graphweave/graphweave"
)

// Build information - can be set at build time using ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	client *graphweave.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(client *graphweave.Client) *HealthHandler {
	return &HealthHandler{client: client}
}

// HealthCheck handles GET /health - basic liveness check.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "graphweave",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready - verifies the engine answers.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	stats := h.client.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"service":   "graphweave",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"nodes":     stats.NodeCount,
		"edges":     stats.EdgeCount,
		"seq":       stats.Seq,
	})
}
