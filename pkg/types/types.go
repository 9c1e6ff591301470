// Package types defines the shared data model for the graphweave knowledge
// graph: entities, relations, ingestion documents, batch reports, and the
// export schema consumed by storage and presentation layers.
package types

// EntityType is the closed taxonomy of entity kinds the graph tracks.
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityLocation     EntityType = "LOCATION"
	EntityDate         EntityType = "DATE"
	EntityConcept      EntityType = "CONCEPT"
	EntityTechnology   EntityType = "TECHNOLOGY"
	EntityNounPhrase   EntityType = "NOUN_PHRASE"
	EntityOther        EntityType = "OTHER"
)

// ValidEntityTypes lists every member of the taxonomy, used for validation
// and for the entities-by-type query intent.
var ValidEntityTypes = []EntityType{
	EntityPerson, EntityOrganization, EntityLocation, EntityDate,
	EntityConcept, EntityTechnology, EntityNounPhrase, EntityOther,
}

// IsValid reports whether t is a member of the closed taxonomy.
func (t EntityType) IsValid() bool {
	for _, v := range ValidEntityTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Generic reports whether t carries little type information. Generic types
// are considered compatible with any other type during fuzzy alias matching.
func (t EntityType) Generic() bool {
	return t == EntityOther || t == EntityNounPhrase || t == EntityConcept || t == ""
}

// RelationType is the closed set of relation kinds between entities.
type RelationType string

const (
	RelationAssociatedWith RelationType = "ASSOCIATED_WITH"
	RelationPartOf         RelationType = "PART_OF"
	RelationCauses         RelationType = "CAUSES"
	RelationLocatedIn      RelationType = "LOCATED_IN"
	RelationMentionedWith  RelationType = "MENTIONED_WITH"
	// RelationRelatedTo is the generic fallback for hints that carry no
	// recognised relation type.
	RelationRelatedTo RelationType = "RELATED_TO"
)

// ValidRelationTypes lists every member of the closed relation set.
var ValidRelationTypes = []RelationType{
	RelationAssociatedWith, RelationPartOf, RelationCauses,
	RelationLocatedIn, RelationMentionedWith, RelationRelatedTo,
}

// IsValid reports whether r is a member of the closed relation set.
func (r RelationType) IsValid() bool {
	for _, v := range ValidRelationTypes {
		if r == v {
			return true
		}
	}
	return false
}

// MaxEvidenceSnippets bounds the per-relation evidence ring buffer. When a
// relation accumulates more evidence events than this, the oldest snippet is
// evicted first.
const MaxEvidenceSnippets = 5

// Entity is a canonical node in the graph. Entities are owned exclusively by
// the store: they are created on the first unresolved mention, updated on
// repeat mentions, and never deleted. Archiving is the only lifecycle exit.
type Entity struct {
	// ID is opaque and stable: assigned once by the registry, never reused.
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type EntityType `json:"type"`

	// Aliases holds every observed surface form, lowercased, in first-seen
	// order. The canonical name is always present.
	Aliases      []string `json:"aliases"`
	MentionCount int      `json:"mention_count"`

	// FirstSeen and LastSeen are ingestion sequence numbers.
	FirstSeen uint64 `json:"first_seen"`
	LastSeen  uint64 `json:"last_seen"`

	// Archived entities are excluded from analytics and query answers but
	// keep their edges so referential integrity is preserved.
	Archived bool `json:"archived,omitempty"`

	// Cached analytic scores. ScoresSeq is the ingestion sequence the scores
	// were computed against; scores are fresh iff ScoresSeq equals the
	// graph's current sequence, and zero means never computed.
	Importance float64 `json:"importance"`
	Community  int     `json:"community"`
	ScoresSeq  uint64  `json:"scores_seq"`
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Aliases = append([]string(nil), e.Aliases...)
	return &c
}

// HasAlias reports whether the lowercased surface form is already recorded.
func (e *Entity) HasAlias(lowered string) bool {
	for _, a := range e.Aliases {
		if a == lowered {
			return true
		}
	}
	return false
}

// Relation is a directed, typed, weighted edge between two entities. At most
// one relation exists per (source, target, type) triple; repeat observations
// increment weight and evidence count instead of creating parallel edges.
type Relation struct {
	SourceID string       `json:"source_id"`
	TargetID string       `json:"target_id"`
	Type     RelationType `json:"type"`

	// Weight accumulates one increment per evidence event, scaled by the
	// hint confidence (default 1.0). It is monotonically non-decreasing.
	Weight        float64 `json:"weight"`
	EvidenceCount int     `json:"evidence_count"`

	// Evidence is a bounded ring buffer of example snippets, oldest first.
	Evidence []string `json:"evidence,omitempty"`

	FirstSeen uint64 `json:"first_seen"`
	LastSeen  uint64 `json:"last_seen"`
}

// Clone returns a deep copy of the relation.
func (r *Relation) Clone() *Relation {
	c := *r
	c.Evidence = append([]string(nil), r.Evidence...)
	return &c
}

// AppendEvidence adds a snippet to the ring buffer, evicting the oldest
// entry once the buffer is full. Empty snippets are ignored.
func (r *Relation) AppendEvidence(snippet string) {
	if snippet == "" {
		return
	}
	r.Evidence = append(r.Evidence, snippet)
	if len(r.Evidence) > MaxEvidenceSnippets {
		r.Evidence = r.Evidence[len(r.Evidence)-MaxEvidenceSnippets:]
	}
}

// TripleKey identifies a relation by its (source, target, type) triple.
type TripleKey struct {
	Source string
	Target string
	Type   RelationType
}

// Key returns the relation's triple key.
func (r *Relation) Key() TripleKey {
	return TripleKey{Source: r.SourceID, Target: r.TargetID, Type: r.Type}
}
