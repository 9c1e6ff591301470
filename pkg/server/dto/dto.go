// Package dto defines the request and response bodies of the HTTP API.
package dto

import "github.com/graphweave/graphweave/pkg/types"

// IngestTextRequest submits raw text for extraction and ingestion.
type IngestTextRequest struct {
	SourceID string `json:"source_id" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// IngestDocumentRequest submits a pre-extracted document.
type IngestDocumentRequest struct {
	Document types.Document `json:"document" binding:"required"`
}

// QueryRequest asks a natural-language question.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// SubgraphRequest extracts a bounded neighborhood around seed entities.
type SubgraphRequest struct {
	Names    []string `json:"names" binding:"required"`
	MaxDepth int      `json:"max_depth"`
	MaxNodes int      `json:"max_nodes"`
}

// SimilarRequest finds entities similar to the named one.
type SimilarRequest struct {
	Name string `json:"name" binding:"required"`
	K    int    `json:"k"`
}

// SimilarEntityResponse is one similarity result.
type SimilarEntityResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// ErrorResponse carries a single error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
