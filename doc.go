// Package graphweave builds weighted knowledge graphs from extracted text
// and answers questions over them.
//
// The engine is organized around four cooperating layers:
//
//   - registry: canonicalizes entity mentions into stable ids, handling
//     aliases, normalization, and fuzzy deduplication.
//   - store: the in-memory directed multigraph with batch-atomic document
//     ingestion and a stable export/import schema.
//   - analytics: PageRank importance, centrality, community detection, and
//     embedding similarity, published as immutable snapshots.
//   - query: natural-language question answering via ordered intent
//     templates with a keyword fallback.
//
// The Client facade wires the layers together and adds optional durability
// (badger snapshots), telemetry (parquet batch reports), and a Neo4j export
// mirror:
//
//	client, err := graphweave.New(graphweave.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	report, err := client.IngestText(ctx, "doc-1",
//		"Tesla was founded by Elon Musk. Tesla builds electric cars.")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(report.EntitiesCreated, "entities created")
//
//	answer, err := client.Query(ctx, "What are the most important entities?")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(answer.Text)
package graphweave
