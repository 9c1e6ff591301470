package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave/pkg/registry"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"
)

// buildStore ingests one document wiring the named entities in a hub-and-spoke
// shape around the first name.
func buildStore(t *testing.T, hub string, spokes ...string) *store.Store {
	t.Helper()
	st := store.New(registry.New(), nil)

	doc := types.Document{SourceID: "fixture"}
	doc.Mentions = append(doc.Mentions, types.Mention{Text: hub, TypeHint: types.EntityOrganization})
	for _, s := range spokes {
		doc.Mentions = append(doc.Mentions, types.Mention{Text: s, TypeHint: types.EntityPerson})
		doc.Relations = append(doc.Relations, types.RelationHint{
			MentionA: hub, MentionB: s, Type: types.RelationMentionedWith, Confidence: 1,
		})
	}
	_, err := st.Ingest(doc)
	require.NoError(t, err)
	return st
}

func TestPageRankSumsToOne(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood", "Bob Tanner", "Carol Singh")
	scores := pageRank(st.View(false))

	require.Len(t, scores, 4)
	var sum float64
	for _, s := range scores {
		sum += s
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPageRankFavorsHighInDegree(t *testing.T) {
	st := store.New(registry.New(), nil)
	_, err := st.Ingest(types.Document{
		SourceID: "cited",
		Mentions: []types.Mention{
			{Text: "Origin Paper", TypeHint: types.EntityConcept},
			{Text: "Citation One", TypeHint: types.EntityConcept},
			{Text: "Citation Two", TypeHint: types.EntityConcept},
			{Text: "Citation Three", TypeHint: types.EntityConcept},
		},
		Relations: []types.RelationHint{
			{MentionA: "Citation One", MentionB: "Origin Paper", Type: types.RelationMentionedWith, Confidence: 1},
			{MentionA: "Citation Two", MentionB: "Origin Paper", Type: types.RelationMentionedWith, Confidence: 1},
			{MentionA: "Citation Three", MentionB: "Origin Paper", Type: types.RelationMentionedWith, Confidence: 1},
		},
	})
	require.NoError(t, err)

	scores := pageRank(st.View(false))
	origin, _ := st.Registry().Lookup("Origin Paper")
	for id, s := range scores {
		if id == origin {
			continue
		}
		assert.Greater(t, scores[origin], s)
	}
}

func TestPageRankEmptyView(t *testing.T) {
	st := store.New(registry.New(), nil)
	scores := pageRank(st.View(false))
	assert.Empty(t, scores)
}

func TestPageRankDeterministic(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood", "Bob Tanner")
	a := pageRank(st.View(false))
	b := pageRank(st.View(false))
	assert.Equal(t, a, b)
}

func TestDegreeCentrality(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood", "Bob Tanner", "Carol Singh")
	deg := degreeCentrality(st.View(false))

	hub, _ := st.Registry().Lookup("Acme")
	assert.InDelta(t, 1.0, deg[hub], 1e-9)
	alice, _ := st.Registry().Lookup("Alice Greenwood")
	assert.InDelta(t, 1.0/3.0, deg[alice], 1e-9)
}

func TestBetweennessPathGraph(t *testing.T) {
	// a -> b -> c: only b sits on a shortest path between distinct endpoints.
	st := store.New(registry.New(), nil)
	_, err := st.Ingest(types.Document{
		SourceID: "path",
		Mentions: []types.Mention{
			{Text: "Alpha Station", TypeHint: types.EntityLocation},
			{Text: "Bravo Station", TypeHint: types.EntityLocation},
			{Text: "Charlie Station", TypeHint: types.EntityLocation},
		},
		Relations: []types.RelationHint{
			{MentionA: "Alpha Station", MentionB: "Bravo Station", Type: types.RelationMentionedWith, Confidence: 1},
			{MentionA: "Bravo Station", MentionB: "Charlie Station", Type: types.RelationMentionedWith, Confidence: 1},
		},
	})
	require.NoError(t, err)

	scores, approx := betweenness(st.View(false))
	assert.False(t, approx)

	a, _ := st.Registry().Lookup("Alpha Station")
	b, _ := st.Registry().Lookup("Bravo Station")
	c, _ := st.Registry().Lookup("Charlie Station")
	assert.Equal(t, 0.0, scores[a])
	assert.Equal(t, 0.0, scores[c])
	// One path through b, normalized by (n-1)(n-2) = 2.
	assert.InDelta(t, 0.5, scores[b], 1e-9)
}

func TestBetweennessTinyGraphAllZero(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood")
	scores, approx := betweenness(st.View(false))
	assert.False(t, approx)
	for _, s := range scores {
		assert.Equal(t, 0.0, s)
	}
}

func TestCommunitiesTwoClusters(t *testing.T) {
	st := store.New(registry.New(), nil)
	_, err := st.Ingest(types.Document{
		SourceID: "clusters",
		Mentions: []types.Mention{
			{Text: "Tesla", TypeHint: types.EntityOrganization},
			{Text: "Elon Musk", TypeHint: types.EntityPerson},
			{Text: "SpaceX", TypeHint: types.EntityOrganization},
			{Text: "CERN", TypeHint: types.EntityOrganization},
			{Text: "Geneva", TypeHint: types.EntityLocation},
		},
		Relations: []types.RelationHint{
			{MentionA: "Tesla", MentionB: "Elon Musk", Type: types.RelationMentionedWith, Confidence: 3},
			{MentionA: "Elon Musk", MentionB: "SpaceX", Type: types.RelationMentionedWith, Confidence: 3},
			{MentionA: "Tesla", MentionB: "SpaceX", Type: types.RelationMentionedWith, Confidence: 2},
			{MentionA: "CERN", MentionB: "Geneva", Type: types.RelationMentionedWith, Confidence: 3},
		},
	})
	require.NoError(t, err)

	labels := communities(st.View(false))
	require.Len(t, labels, 5)

	tesla, _ := st.Registry().Lookup("Tesla")
	musk, _ := st.Registry().Lookup("Elon Musk")
	spacex, _ := st.Registry().Lookup("SpaceX")
	cern, _ := st.Registry().Lookup("CERN")
	geneva, _ := st.Registry().Lookup("Geneva")

	assert.Equal(t, labels[tesla], labels[musk])
	assert.Equal(t, labels[tesla], labels[spacex])
	assert.Equal(t, labels[cern], labels[geneva])
	assert.NotEqual(t, labels[tesla], labels[cern])

	// Labels are contiguous starting at 0.
	seen := make(map[int]bool)
	for _, l := range labels {
		seen[l] = true
	}
	for i := 0; i < len(seen); i++ {
		assert.True(t, seen[i], "label %d missing", i)
	}
}

func TestCommunitiesCoverIsolatedNodes(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood")
	b := st.Begin("lonely")
	_, err := b.AddEntityMention("Hermit Institute", types.EntityOrganization)
	require.NoError(t, err)
	_, err = b.Commit()
	require.NoError(t, err)

	labels := communities(st.View(false))
	assert.Len(t, labels, 3)
}

func TestCommunitiesDeterministic(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood", "Bob Tanner", "Carol Singh")
	a := communities(st.View(false))
	b := communities(st.View(false))
	assert.Equal(t, a, b)
}

func TestSnapshotTop(t *testing.T) {
	snap := &Snapshot{Importance: map[string]float64{
		"b": 0.5, "a": 0.3, "c": 0.2,
	}}
	top := snap.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Item)
	assert.Equal(t, "a", top[1].Item)

	all := snap.Top(10)
	assert.Len(t, all, 3)
}

func TestSnapshotTopTiesByID(t *testing.T) {
	snap := &Snapshot{Importance: map[string]float64{
		"z": 0.5, "a": 0.5, "m": 0.5,
	}}
	top := snap.Top(3)
	assert.Equal(t, []string{"a", "m", "z"}, []string{top[0].Item, top[1].Item, top[2].Item})
}

func TestSnapshotCommunities(t *testing.T) {
	snap := &Snapshot{Community: map[string]int{
		"c": 0, "a": 0, "b": 1,
	}}
	groups := snap.Communities()
	assert.Equal(t, []string{"a", "c"}, groups[0])
	assert.Equal(t, []string{"b"}, groups[1])
}

func TestEnsureRecomputesOnlyWhenStale(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood", "Bob Tanner")
	a := New(st, nil, nil)
	ctx := context.Background()

	assert.True(t, a.Stale())
	assert.Nil(t, a.Current())

	snap, err := a.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.Seq(), snap.Seq)
	assert.False(t, a.Stale())

	again, err := a.Ensure(ctx)
	require.NoError(t, err)
	assert.Same(t, snap, again)

	// New ingestion makes the snapshot stale.
	_, err = st.Ingest(types.Document{
		SourceID: "more",
		Mentions: []types.Mention{{Text: "Dana White", TypeHint: types.EntityPerson}},
	})
	require.NoError(t, err)
	assert.True(t, a.Stale())

	fresh, err := a.Ensure(ctx)
	require.NoError(t, err)
	assert.NotSame(t, snap, fresh)
	assert.Equal(t, st.Seq(), fresh.Seq)
}

func TestRecomputeWritesScoresBack(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood", "Bob Tanner")
	a := New(st, nil, nil)

	snap, err := a.Recompute(context.Background())
	require.NoError(t, err)

	hub, _ := st.Registry().Lookup("Acme")
	e, err := st.GetEntity(hub)
	require.NoError(t, err)
	assert.Equal(t, snap.Importance[hub], e.Importance)
	assert.Equal(t, snap.Seq, e.ScoresSeq)
}

func TestRecomputeCancelledContext(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood")
	a := New(st, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Recompute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecomputeExcludesArchived(t *testing.T) {
	st := buildStore(t, "Acme", "Alice Greenwood", "Bob Tanner")
	alice, _ := st.Registry().Lookup("Alice Greenwood")
	require.NoError(t, st.Archive(alice))

	a := New(st, nil, nil)
	snap, err := a.Recompute(context.Background())
	require.NoError(t, err)

	_, ok := snap.Importance[alice]
	assert.False(t, ok)
	assert.Len(t, snap.Importance, 2)
}

func TestSimilarTo(t *testing.T) {
	st := buildStore(t, "Acme", "Acme Robotics", "Zebra Groceries")
	a := New(st, nil, nil)

	hub, _ := st.Registry().Lookup("Acme")
	robotics, _ := st.Registry().Lookup("Acme Robotics")

	got, err := a.SimilarTo(context.Background(), hub, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Shared trigrams pull the lexically close name to the front.
	assert.Equal(t, robotics, got[0].Entity.ID)
	assert.Greater(t, got[0].Score, got[1].Score)

	_, err = a.SimilarTo(context.Background(), "missing", 2)
	assert.ErrorIs(t, err, types.ErrEntityNotFound)
}
