package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityTypeValidity(t *testing.T) {
	for _, typ := range ValidEntityTypes {
		assert.True(t, typ.IsValid(), "%s should be valid", typ)
	}
	assert.False(t, EntityType("MARTIAN").IsValid())
	assert.False(t, EntityType("").IsValid())
}

func TestEntityTypeGeneric(t *testing.T) {
	assert.True(t, EntityOther.Generic())
	assert.True(t, EntityNounPhrase.Generic())
	assert.True(t, EntityConcept.Generic())
	assert.True(t, EntityType("").Generic())
	assert.False(t, EntityPerson.Generic())
	assert.False(t, EntityOrganization.Generic())
}

func TestRelationTypeValidity(t *testing.T) {
	for _, typ := range ValidRelationTypes {
		assert.True(t, typ.IsValid(), "%s should be valid", typ)
	}
	assert.False(t, RelationType("TELEPATHY").IsValid())
}

func TestEntityClone(t *testing.T) {
	e := &Entity{ID: "e1", Name: "Tesla", Aliases: []string{"tesla"}}
	c := e.Clone()
	c.Aliases[0] = "changed"
	c.Name = "changed"
	assert.Equal(t, "tesla", e.Aliases[0])
	assert.Equal(t, "Tesla", e.Name)
}

func TestEntityHasAlias(t *testing.T) {
	e := &Entity{Aliases: []string{"tesla", "tesla inc"}}
	assert.True(t, e.HasAlias("tesla"))
	assert.False(t, e.HasAlias("spacex"))
}

func TestAppendEvidenceBounded(t *testing.T) {
	r := &Relation{}
	r.AppendEvidence("")
	assert.Empty(t, r.Evidence)

	for i := 0; i < MaxEvidenceSnippets+3; i++ {
		r.AppendEvidence(string(rune('a' + i)))
	}
	assert.Len(t, r.Evidence, MaxEvidenceSnippets)
	// Oldest entries evicted first.
	assert.Equal(t, "d", r.Evidence[0])
}

func TestRelationKey(t *testing.T) {
	r := &Relation{SourceID: "a", TargetID: "b", Type: RelationPartOf}
	assert.Equal(t, TripleKey{Source: "a", Target: "b", Type: RelationPartOf}, r.Key())
}

func TestDocumentContentHash(t *testing.T) {
	doc := Document{
		SourceID: "d1",
		Mentions: []Mention{{Text: "Tesla", TypeHint: EntityOrganization}},
	}
	h1 := doc.ContentHash()
	h2 := doc.ContentHash()
	assert.NotEmpty(t, h1)
	assert.Equal(t, h1, h2)

	doc.Mentions = append(doc.Mentions, Mention{Text: "SpaceX"})
	assert.NotEqual(t, h1, doc.ContentHash())
}

func TestBatchReportCounters(t *testing.T) {
	var r BatchReport
	r.Record(IssueExtractionConflict, "e1", "type clash")
	r.Record(IssueMalformedRelation, "e2", "self-loop")
	r.Record(IssueMalformedRelation, "", "unknown endpoint")
	assert.Equal(t, 1, r.Conflicts())
	assert.Equal(t, 2, r.Malformed())
	assert.Len(t, r.Issues, 3)
}
