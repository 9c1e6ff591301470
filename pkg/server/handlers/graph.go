// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/server/dto"
	"github.com/graphweave/graphweave/pkg/subgraph"
	"github.com/graphweave/graphweave/pkg/types"
)

// GraphHandler handles ingestion, query, and graph access endpoints.
type GraphHandler struct {
	client *graphweave.Client
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(client *graphweave.Client) *GraphHandler {
	return &GraphHandler{client: client}
}

// IngestText handles POST /api/v1/ingest/text.
func (h *GraphHandler) IngestText(c *gin.Context) {
	var req dto.IngestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	report, err := h.client.IngestText(c.Request.Context(), req.SourceID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// IngestDocument handles POST /api/v1/ingest/document.
func (h *GraphHandler) IngestDocument(c *gin.Context) {
	var req dto.IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	report, err := h.client.SubmitDocument(c.Request.Context(), req.Document)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Query handles POST /api/v1/query.
func (h *GraphHandler) Query(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	answer, err := h.client.Query(c.Request.Context(), req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// Export handles GET /api/v1/graph/export.
func (h *GraphHandler) Export(c *gin.Context) {
	c.JSON(http.StatusOK, h.client.Export())
}

// Import handles POST /api/v1/graph/import. The body is a raw exported
// graph; slightly malformed JSON is repaired before giving up.
func (h *GraphHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.client.ImportJSON(data); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.client.Stats())
}

// Subgraph handles POST /api/v1/graph/subgraph.
func (h *GraphHandler) Subgraph(c *gin.Context) {
	var req dto.SubgraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	sg, err := h.client.Subgraph(req.Names, subgraph.Options{
		MaxDepth: req.MaxDepth,
		MaxNodes: req.MaxNodes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sg)
}

// Similar handles POST /api/v1/graph/similar.
func (h *GraphHandler) Similar(c *gin.Context) {
	var req dto.SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if req.K <= 0 {
		req.K = 5
	}
	similar, err := h.client.SimilarTo(c.Request.Context(), req.Name, req.K)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.SimilarEntityResponse, 0, len(similar))
	for _, s := range similar {
		resp = append(resp, dto.SimilarEntityResponse{
			ID:    s.Entity.ID,
			Name:  s.Entity.Name,
			Type:  string(s.Entity.Type),
			Score: s.Score,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Stats handles GET /api/v1/graph/stats.
func (h *GraphHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.client.Stats())
}

// Recompute handles POST /api/v1/analytics/recompute.
func (h *GraphHandler) Recompute(c *gin.Context) {
	snap, err := h.client.Recompute(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"seq":                     snap.Seq,
		"computed_at":             snap.ComputedAt,
		"betweenness_approximate": snap.BetweennessApproximate,
	})
}

// GetEntity handles GET /api/v1/entities/:id.
func (h *GraphHandler) GetEntity(c *gin.Context) {
	ent, err := h.client.GetEntity(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ent)
}

// Archive handles POST /api/v1/entities/:id/archive.
func (h *GraphHandler) Archive(c *gin.Context) {
	if err := h.client.Archive(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": c.Param("id")})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrEntityNotFound), errors.Is(err, types.ErrRelationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrEmptyDocument), errors.Is(err, types.ErrBatchAborted):
		status = http.StatusBadRequest
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}
