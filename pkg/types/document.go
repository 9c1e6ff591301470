package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Sentinel errors shared across packages.
var (
	// ErrRelationNotFound is returned when no relation exists for a
	// (source, target, type) triple.
	ErrRelationNotFound = errors.New("relation not found")
	// ErrEntityNotFound is returned when an entity id or name cannot be
	// resolved against the graph.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrBatchAborted is returned when a fatal mid-batch error forces a full
	// rollback of one document's mutations.
	ErrBatchAborted = errors.New("ingestion batch aborted")
	// ErrEmptyDocument is returned for documents with no mentions at all.
	ErrEmptyDocument = errors.New("document carries no mentions")
	// ErrBatchClosed is returned when a committed or aborted batch is reused.
	ErrBatchClosed = errors.New("batch already closed")
)

// Mention is one observed occurrence of an entity surface form in a source
// document, as produced by the ingestion collaborator. The core consumes
// mentions; it never performs extraction itself.
type Mention struct {
	Text     string     `json:"text"`
	TypeHint EntityType `json:"type_hint"`
	// Span is the [start, end) byte offset in the source text. Informational
	// only; the core does not read back into the document body.
	Span [2]int `json:"span"`
}

// RelationHint is a co-occurrence or dependency signal between two mentions
// of the same document. MentionA and MentionB are surface forms and must
// match the Text of mentions in the same document.
type RelationHint struct {
	MentionA   string       `json:"mention_a"`
	MentionB   string       `json:"mention_b"`
	Type       RelationType `json:"type"`
	Confidence float64      `json:"confidence"`
	// Snippet is an optional evidence excerpt kept in the relation's
	// bounded evidence buffer.
	Snippet string `json:"snippet,omitempty"`
}

// Document is the structured ingestion unit handed to the core by the
// extraction collaborator. One document is one atomic ingestion batch.
type Document struct {
	SourceID  string         `json:"source_id"`
	Mentions  []Mention      `json:"mentions"`
	Relations []RelationHint `json:"relation_hints"`
}

// ContentHash returns a stable digest of the document's mentions and
// relation hints, used to detect re-ingestion of identical content.
func (d Document) ContentHash() string {
	raw, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// IssueKind classifies a non-fatal per-item ingestion problem.
type IssueKind string

const (
	// IssueExtractionConflict records a mention whose type hint disagrees
	// with the fixed type of the entity it resolved to.
	IssueExtractionConflict IssueKind = "extraction_conflict"
	// IssueMalformedRelation records a rejected relation: a self-loop or an
	// endpoint absent from the graph.
	IssueMalformedRelation IssueKind = "malformed_relation"
)

// Issue is one recorded per-mention or per-relation problem. Issues are
// accumulated into the batch report and never abort ingestion.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	EntityID string    `json:"entity_id,omitempty"`
	Detail   string    `json:"detail"`
}

// BatchReport summarises one committed ingestion batch. It is returned
// alongside a successful ingestion result; the caller decides whether to
// surface the accumulated issues.
type BatchReport struct {
	SourceID string `json:"source_id"`
	// Seq is the graph sequence number assigned to this batch.
	Seq uint64 `json:"seq"`

	MentionsResolved int `json:"mentions_resolved"`
	EntitiesCreated  int `json:"entities_created"`
	RelationsAdded   int `json:"relations_added"`
	RelationsMerged  int `json:"relations_merged"`

	// Skipped is true when the document was an exact duplicate of an
	// already committed batch and no mutation took place.
	Skipped bool `json:"skipped,omitempty"`

	Issues []Issue `json:"issues,omitempty"`
}

// Record appends an issue to the report.
func (b *BatchReport) Record(kind IssueKind, entityID, detail string) {
	b.Issues = append(b.Issues, Issue{Kind: kind, EntityID: entityID, Detail: detail})
}

// Conflicts counts recorded extraction conflicts.
func (b *BatchReport) Conflicts() int {
	n := 0
	for _, is := range b.Issues {
		if is.Kind == IssueExtractionConflict {
			n++
		}
	}
	return n
}

// Malformed counts recorded malformed relations.
func (b *BatchReport) Malformed() int {
	n := 0
	for _, is := range b.Issues {
		if is.Kind == IssueMalformedRelation {
			n++
		}
	}
	return n
}
