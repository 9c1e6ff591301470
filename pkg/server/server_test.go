package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/types"
)

func newTestServer(t *testing.T) (*Server, *graphweave.Client) {
	t.Helper()
	client, err := graphweave.New(graphweave.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.Mode = "test"

	srv := New(cfg, client)
	srv.Setup()
	return srv, client
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func seedDocument() types.Document {
	return types.Document{
		SourceID: "seed",
		Mentions: []types.Mention{
			{Text: "Tesla", TypeHint: types.EntityOrganization},
			{Text: "Elon Musk", TypeHint: types.EntityPerson},
		},
		Relations: []types.RelationHint{
			{MentionA: "Tesla", MentionB: "Elon Musk", Type: types.RelationMentionedWith, Confidence: 1},
		},
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "graphweave", health["service"])

	w = doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var ready map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready["status"])
	assert.Equal(t, float64(0), ready["nodes"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestIngestDocumentEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/ingest/document",
		map[string]any{"document": seedDocument()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report types.BatchReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.MentionsResolved)
	assert.Equal(t, 2, report.EntitiesCreated)
	assert.Equal(t, 1, report.RelationsAdded)
}

func TestIngestDocumentEmptyRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/ingest/document",
		map[string]any{"document": types.Document{SourceID: "empty"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestTextValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	// Missing required fields.
	w := doJSON(t, srv, http.MethodPost, "/api/v1/ingest/text", map[string]any{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryEndpoint(t *testing.T) {
	srv, client := newTestServer(t)
	_, err := client.SubmitDocument(t.Context(), seedDocument())
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/query",
		map[string]any{"question": "who is Elon Musk?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ans types.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ans))
	assert.Equal(t, types.ConfidenceHigh, ans.Confidence)
	assert.Contains(t, ans.Text, "Elon Musk")
}

func TestExportImportEndpoints(t *testing.T) {
	srv, client := newTestServer(t)
	_, err := client.SubmitDocument(t.Context(), seedDocument())
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/graph/export", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var g types.ExportedGraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)

	// Round-trip through the import endpoint.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/graph/import", bytes.NewReader(w.Body.Bytes()))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats types.GraphStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
}

func TestImportEndpointRejectsDanglingEdge(t *testing.T) {
	srv, _ := newTestServer(t)
	payload := `{"seq":1,"nodes":[{"id":"a","name":"A","type":"PERSON"}],"edges":[{"source":"a","target":"ghost","type":"RELATED_TO","weight":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/graph/import", bytes.NewBufferString(payload))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubgraphEndpoint(t *testing.T) {
	srv, client := newTestServer(t)
	_, err := client.SubmitDocument(t.Context(), seedDocument())
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/graph/subgraph",
		map[string]any{"names": []string{"Tesla"}, "max_depth": 1, "max_nodes": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sg types.Subgraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sg))
	assert.Len(t, sg.Nodes, 2)
	assert.Len(t, sg.Edges, 1)
}

func TestSubgraphEndpointUnknownSeed(t *testing.T) {
	srv, client := newTestServer(t)
	_, err := client.SubmitDocument(t.Context(), seedDocument())
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/graph/subgraph",
		map[string]any{"names": []string{"Completely Unknown Thing"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimilarEndpoint(t *testing.T) {
	srv, client := newTestServer(t)
	_, err := client.SubmitDocument(t.Context(), seedDocument())
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/graph/similar",
		map[string]any{"name": "Tesla"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var results []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Len(t, results, 1)
	assert.Equal(t, "Elon Musk", results[0]["name"])
}

func TestStatsEndpoint(t *testing.T) {
	srv, client := newTestServer(t)
	_, err := client.SubmitDocument(t.Context(), seedDocument())
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/graph/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats types.GraphStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
}

func TestRecomputeEndpoint(t *testing.T) {
	srv, client := newTestServer(t)
	_, err := client.SubmitDocument(t.Context(), seedDocument())
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/analytics/recompute", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["seq"])
}

func TestEntityEndpoints(t *testing.T) {
	srv, client := newTestServer(t)
	_, err := client.SubmitDocument(t.Context(), seedDocument())
	require.NoError(t, err)

	id, ok := client.ResolveName("Tesla")
	require.True(t, ok)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/entities/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ent types.Entity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ent))
	assert.Equal(t, "Tesla", ent.Name)

	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/entities/%s/archive", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	ent2, err := client.GetEntity(id)
	require.NoError(t, err)
	assert.True(t, ent2.Archived)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/entities/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflights(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/query", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
