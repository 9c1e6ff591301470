package types

// ExportedNode is the stable wire form of an entity. The schema evolves
// additively only: fields are never renamed or removed.
type ExportedNode struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       EntityType `json:"type"`
	Importance float64    `json:"importance"`
	Community  int        `json:"community"`

	Aliases      []string `json:"aliases,omitempty"`
	MentionCount int      `json:"mention_count,omitempty"`
	FirstSeen    uint64   `json:"first_seen,omitempty"`
	LastSeen     uint64   `json:"last_seen,omitempty"`
	Archived     bool     `json:"archived,omitempty"`
}

// ExportedEdge is the stable wire form of a relation.
type ExportedEdge struct {
	Source string       `json:"source"`
	Target string       `json:"target"`
	Type   RelationType `json:"type"`
	Weight float64      `json:"weight"`

	EvidenceCount int      `json:"evidence_count,omitempty"`
	Evidence      []string `json:"evidence,omitempty"`
}

// ExportedGraph is the sole contract between the core and any persistence or
// visualization layer.
type ExportedGraph struct {
	Seq   uint64         `json:"seq"`
	Nodes []ExportedNode `json:"nodes"`
	Edges []ExportedEdge `json:"edges"`
}

// Subgraph is a bounded neighborhood extracted for external rendering. Every
// edge endpoint is guaranteed to be present in Nodes.
type Subgraph struct {
	Nodes []ExportedNode `json:"nodes"`
	Edges []ExportedEdge `json:"edges"`
	// Truncated reports whether the node budget dropped lower-ranked nodes.
	Truncated bool `json:"truncated,omitempty"`
}

// Confidence grades a query answer.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Answer is the typed result of one natural-language query: a free-text
// summary plus the entity and edge ids it references, so a caller can render
// a focused subgraph.
type Answer struct {
	Text            string       `json:"answer_text"`
	ReferencedNodes []string     `json:"referenced_nodes,omitempty"`
	ReferencedEdges [][2]string  `json:"referenced_edges,omitempty"`
	Confidence      Confidence   `json:"confidence"`
}

// GraphStats summarises the graph for the statistics intent and the stats
// endpoint.
type GraphStats struct {
	NodeCount  int     `json:"node_count"`
	EdgeCount  int     `json:"edge_count"`
	Density    float64 `json:"density"`
	Components int     `json:"components"`
	Seq        uint64  `json:"seq"`

	EntitiesByType map[EntityType]int `json:"entities_by_type,omitempty"`
	ArchivedCount  int                `json:"archived_count,omitempty"`
}
