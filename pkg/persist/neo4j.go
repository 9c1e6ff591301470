package persist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/graphweave/graphweave/pkg/types"
)

// Neo4jExporter mirrors exported graphs into a Neo4j instance so the graph
// can be explored with Cypher and standard visualization tooling. The mirror
// is write-only: the engine never reads back from Neo4j.
type Neo4jExporter struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jExporter connects to the Neo4j instance and verifies reachability.
func NewNeo4jExporter(ctx context.Context, uri, username, password, database string, logger *slog.Logger) (*Neo4jExporter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j exporter: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j exporter connectivity: %w", err)
	}
	return &Neo4jExporter{driver: driver, database: database, logger: logger}, nil
}

// Export replaces the mirrored graph with the given snapshot inside one
// write transaction.
func (e *Neo4jExporter) Export(ctx context.Context, g *types.ExportedGraph) error {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: e.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, "MATCH (n:Entity) DETACH DELETE n", nil); err != nil {
			return nil, err
		}

		for _, n := range g.Nodes {
			_, err := tx.Run(ctx, `
				CREATE (e:Entity {
					id: $id, name: $name, type: $type,
					importance: $importance, community: $community,
					mention_count: $mention_count, archived: $archived
				})`, map[string]any{
				"id":            n.ID,
				"name":          n.Name,
				"type":          string(n.Type),
				"importance":    n.Importance,
				"community":     n.Community,
				"mention_count": n.MentionCount,
				"archived":      n.Archived,
			})
			if err != nil {
				return nil, err
			}
		}

		for _, edge := range g.Edges {
			_, err := tx.Run(ctx, `
				MATCH (a:Entity {id: $source}), (b:Entity {id: $target})
				CREATE (a)-[:RELATES {
					type: $type, weight: $weight, evidence_count: $evidence_count
				}]->(b)`, map[string]any{
				"source":         edge.Source,
				"target":         edge.Target,
				"type":           string(edge.Type),
				"weight":         edge.Weight,
				"evidence_count": edge.EvidenceCount,
			})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j export seq %d: %w", g.Seq, err)
	}
	e.logger.Info("graph mirrored to neo4j", "seq", g.Seq, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return nil
}

// Close shuts down the driver.
func (e *Neo4jExporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}
