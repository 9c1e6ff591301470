package graphweave

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/graphweave/graphweave/pkg/analytics"
	"github.com/graphweave/graphweave/pkg/embedder"
	"github.com/graphweave/graphweave/pkg/extract"
	"github.com/graphweave/graphweave/pkg/metrics"
	"github.com/graphweave/graphweave/pkg/persist"
	"github.com/graphweave/graphweave/pkg/query"
	"github.com/graphweave/graphweave/pkg/registry"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/subgraph"
	"github.com/graphweave/graphweave/pkg/telemetry"
	"github.com/graphweave/graphweave/pkg/types"
)

// Options configures a Client. Zero values give an in-memory engine with the
// local deterministic embedder and no durability.
type Options struct {
	Logger   *slog.Logger
	Embedder embedder.Client

	// SnapshotPath enables durable snapshots in a badger store at this
	// directory. The latest snapshot is restored on startup.
	SnapshotPath string

	// Mirror, when set, receives every export pushed via MirrorExport.
	Mirror *persist.Neo4jExporter

	// Recorder, when set, receives every ingestion batch report.
	Recorder *telemetry.Recorder

	// CustomTemplates are tried before the built-in query intent table.
	CustomTemplates []query.Template

	// Subgraph bounds; zero values take the package defaults.
	SubgraphMaxDepth int
	SubgraphMaxNodes int
}

// Client is the engine facade: ingestion, querying, analytics, subgraph
// extraction, and export/import behind one handle. All methods are safe for
// concurrent use.
type Client struct {
	opts      Options
	logger    *slog.Logger
	registry  *registry.Registry
	store     *store.Store
	analytics *analytics.Analytics
	queries   *query.Engine
	extractor *extract.Extractor
	sub       *subgraph.Extractor
	snapshots *persist.SnapshotStore
}

// New assembles a Client from options, restoring the latest durable snapshot
// when one exists.
func New(opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New()
	st := store.New(reg, logger)
	an := analytics.New(st, opts.Embedder, logger)

	c := &Client{
		opts:      opts,
		logger:    logger,
		registry:  reg,
		store:     st,
		analytics: an,
		queries:   query.New(st, an, logger, opts.CustomTemplates...),
		extractor: extract.New(logger),
		sub:       subgraph.New(st),
	}

	if opts.SnapshotPath != "" {
		snaps, err := persist.OpenSnapshotStore(opts.SnapshotPath, logger)
		if err != nil {
			return nil, err
		}
		c.snapshots = snaps
		g, err := snaps.LoadLatest()
		if err != nil {
			snaps.Close()
			return nil, err
		}
		if g != nil {
			if err := st.Import(g); err != nil {
				snaps.Close()
				return nil, fmt.Errorf("restore snapshot: %w", err)
			}
			logger.Info("graph restored from snapshot", "seq", g.Seq, "nodes", len(g.Nodes))
		}
	}
	return c, nil
}

// SubmitDocument ingests one pre-extracted document as an atomic batch.
func (c *Client) SubmitDocument(ctx context.Context, doc types.Document) (*types.BatchReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	report, err := c.store.Ingest(doc)
	if err != nil {
		metrics.IncIngested("aborted")
		return nil, err
	}
	metrics.ObserveIngest(time.Since(start))
	if report.Skipped {
		metrics.IncIngested("skipped")
	} else {
		metrics.IncIngested("committed")
	}

	if c.opts.Recorder != nil {
		if err := c.opts.Recorder.Record(report); err != nil {
			c.logger.Warn("telemetry record failed", "error", err)
		}
	}
	if c.snapshots != nil && !report.Skipped {
		g := c.store.Export()
		if err := c.snapshots.Save(&g); err != nil {
			c.logger.Warn("snapshot save failed", "seq", g.Seq, "error", err)
		}
	}
	return report, nil
}

// IngestText extracts entities and relation hints from raw text and ingests
// the resulting document.
func (c *Client) IngestText(ctx context.Context, sourceID, text string) (*types.BatchReport, error) {
	doc, err := c.extractor.Extract(sourceID, text)
	if err != nil {
		return nil, err
	}
	return c.SubmitDocument(ctx, *doc)
}

// Query answers a natural-language question over the graph.
func (c *Client) Query(ctx context.Context, question string) (*types.Answer, error) {
	return c.queries.Query(ctx, question)
}

// Export returns the full graph in the stable wire schema.
func (c *Client) Export() types.ExportedGraph {
	return c.store.Export()
}

// ExportJSON returns the exported graph serialized as JSON.
func (c *Client) ExportJSON() ([]byte, error) {
	g := c.store.Export()
	return json.MarshalIndent(g, "", "  ")
}

// Import replaces the graph with the given snapshot.
func (c *Client) Import(g *types.ExportedGraph) error {
	return c.store.Import(g)
}

// ImportJSON decodes and imports a serialized snapshot, tolerating slightly
// malformed payloads.
func (c *Client) ImportJSON(data []byte) error {
	return c.store.ImportJSON(data)
}

// Subgraph extracts a bounded neighborhood around the named entities.
// Names are resolved through the registry; unknown names fail with
// ErrEntityNotFound.
func (c *Client) Subgraph(names []string, opts subgraph.Options) (*types.Subgraph, error) {
	if opts.MaxDepth == 0 {
		opts.MaxDepth = c.opts.SubgraphMaxDepth
	}
	if opts.MaxNodes == 0 {
		opts.MaxNodes = c.opts.SubgraphMaxNodes
	}
	seeds := make([]string, 0, len(names))
	for _, name := range names {
		id, _, ok := c.registry.BestMatch(name)
		if !ok {
			return nil, fmt.Errorf("subgraph seed %q: %w", name, types.ErrEntityNotFound)
		}
		seeds = append(seeds, id)
	}
	return c.sub.Extract(seeds, opts)
}

// SimilarTo returns the k entities most similar to the named one.
func (c *Client) SimilarTo(ctx context.Context, name string, k int) ([]analytics.SimilarEntity, error) {
	id, _, ok := c.registry.BestMatch(name)
	if !ok {
		return nil, fmt.Errorf("similar to %q: %w", name, types.ErrEntityNotFound)
	}
	return c.analytics.SimilarTo(ctx, id, k)
}

// Recompute forces a fresh analytics snapshot regardless of staleness.
func (c *Client) Recompute(ctx context.Context) (*analytics.Snapshot, error) {
	return c.analytics.Recompute(ctx)
}

// Snapshot returns the latest analytics snapshot, or nil if none exists.
func (c *Client) Snapshot() *analytics.Snapshot {
	return c.analytics.Current()
}

// Stats summarises the graph.
func (c *Client) Stats() types.GraphStats {
	return c.store.Stats()
}

// GetEntity returns a copy of the entity with the given id.
func (c *Client) GetEntity(id string) (*types.Entity, error) {
	return c.store.GetEntity(id)
}

// ResolveName maps free text to the best matching entity id.
func (c *Client) ResolveName(name string) (string, bool) {
	id, _, ok := c.registry.BestMatch(name)
	return id, ok
}

// Archive flags an entity as excluded from analytics and query answers.
func (c *Client) Archive(id string) error {
	return c.store.Archive(id)
}

// MirrorExport pushes the current graph to the configured Neo4j mirror.
func (c *Client) MirrorExport(ctx context.Context) error {
	if c.opts.Mirror == nil {
		return fmt.Errorf("mirror export: no mirror configured")
	}
	g := c.store.Export()
	return c.opts.Mirror.Export(ctx, &g)
}

// Close releases the durable snapshot store and flushes telemetry.
func (c *Client) Close() error {
	var firstErr error
	if c.opts.Recorder != nil {
		if err := c.opts.Recorder.Close(); err != nil {
			firstErr = err
		}
	}
	if c.snapshots != nil {
		if err := c.snapshots.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
