package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave/pkg/types"
)

func TestResolveExactAlias(t *testing.T) {
	r := New()

	txn := r.Begin()
	first, err := txn.Resolve("Tesla", types.EntityOrganization)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "Tesla", first.Name)

	second, err := txn.Resolve("tesla", types.EntityOrganization)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.EntityID, second.EntityID)
	txn.Commit()

	assert.Equal(t, 1, r.Len())
}

func TestResolveLooseNormalization(t *testing.T) {
	r := New()
	txn := r.Begin()

	first, err := txn.Resolve("Tesla's", types.EntityOrganization)
	require.NoError(t, err)

	tests := []struct {
		mention string
	}{
		{"tesla"},
		{"Tesla!"},
		{"  Tesla  "},
	}
	for _, tt := range tests {
		t.Run(tt.mention, func(t *testing.T) {
			res, err := txn.Resolve(tt.mention, types.EntityOrganization)
			require.NoError(t, err)
			assert.Equal(t, first.EntityID, res.EntityID)
			assert.False(t, res.Created)
		})
	}
	txn.Commit()
	assert.Equal(t, 1, r.Len())
}

func TestResolveFuzzyMatch(t *testing.T) {
	r := New()
	txn := r.Begin()

	first, err := txn.Resolve("Elon Musk Enterprises", types.EntityOrganization)
	require.NoError(t, err)
	txn.Commit()

	txn = r.Begin()
	// One trailing character difference keeps Jaccard above the threshold.
	res, err := txn.Resolve("Elon Musk Enterprise", types.EntityOrganization)
	require.NoError(t, err)
	assert.Equal(t, first.EntityID, res.EntityID)
	assert.False(t, res.Created)
	txn.Commit()
}

func TestResolveFuzzySkipsIncompatibleTypes(t *testing.T) {
	r := New()
	txn := r.Begin()

	org, err := txn.Resolve("Mercury Systems", types.EntityOrganization)
	require.NoError(t, err)

	person, err := txn.Resolve("Mercury System", types.EntityPerson)
	require.NoError(t, err)
	assert.NotEqual(t, org.EntityID, person.EntityID)
	assert.True(t, person.Created)
}

func TestResolveShortNamesNeverFuzzyMerge(t *testing.T) {
	r := New()
	txn := r.Begin()

	a, err := txn.Resolve("IBM", types.EntityOrganization)
	require.NoError(t, err)
	b, err := txn.Resolve("IBN", types.EntityOrganization)
	require.NoError(t, err)
	assert.NotEqual(t, a.EntityID, b.EntityID)
}

func TestResolveEmptyMention(t *testing.T) {
	r := New()
	txn := r.Begin()
	_, err := txn.Resolve("   ", types.EntityOther)
	assert.Error(t, err)
}

func TestResolveTypeUpgrade(t *testing.T) {
	r := New()
	txn := r.Begin()

	first, err := txn.Resolve("Ada Lovelace", types.EntityOther)
	require.NoError(t, err)
	assert.Equal(t, types.EntityOther, first.Type)

	second, err := txn.Resolve("Ada Lovelace", types.EntityPerson)
	require.NoError(t, err)
	assert.Equal(t, first.EntityID, second.EntityID)
	assert.True(t, second.TypeUpgraded)
	assert.Equal(t, types.EntityPerson, second.Type)
}

func TestResolveTypeConflictRecorded(t *testing.T) {
	r := New()
	txn := r.Begin()

	first, err := txn.Resolve("Amazon", types.EntityOrganization)
	require.NoError(t, err)

	second, err := txn.Resolve("Amazon", types.EntityLocation)
	require.NoError(t, err)
	assert.Equal(t, first.EntityID, second.EntityID)
	require.NotNil(t, second.Conflict)
	assert.Equal(t, types.IssueExtractionConflict, second.Conflict.Kind)
	// The conflicting mention still resolves to the fixed type.
	assert.Equal(t, types.EntityOrganization, second.Type)
}

func TestAbortLeavesNoTrace(t *testing.T) {
	r := New()

	txn := r.Begin()
	_, err := txn.Resolve("Ghost Corp", types.EntityOrganization)
	require.NoError(t, err)
	txn.Abort()

	assert.Equal(t, 0, r.Len())
	_, ok := r.Lookup("Ghost Corp")
	assert.False(t, ok)

	// A later batch mints a fresh id rather than reusing the aborted one.
	txn = r.Begin()
	res, err := txn.Resolve("Ghost Corp", types.EntityOrganization)
	require.NoError(t, err)
	assert.True(t, res.Created)
	txn.Commit()
	assert.Equal(t, 1, r.Len())
}

func TestClosedTxnRejectsResolve(t *testing.T) {
	r := New()
	txn := r.Begin()
	txn.Commit()
	_, err := txn.Resolve("Anything", types.EntityOther)
	assert.ErrorIs(t, err, types.ErrBatchClosed)
}

func TestLookup(t *testing.T) {
	r := New()
	txn := r.Begin()
	res, err := txn.Resolve("Marie Curie", types.EntityPerson)
	require.NoError(t, err)
	txn.Commit()

	id, ok := r.Lookup("marie curie")
	assert.True(t, ok)
	assert.Equal(t, res.EntityID, id)

	_, ok = r.Lookup("nobody")
	assert.False(t, ok)
}

func TestBestMatch(t *testing.T) {
	r := New()
	txn := r.Begin()
	curie, err := txn.Resolve("Marie Curie", types.EntityPerson)
	require.NoError(t, err)
	_, err = txn.Resolve("Pierre Curie", types.EntityPerson)
	require.NoError(t, err)
	txn.Commit()

	t.Run("exact scores 1", func(t *testing.T) {
		id, score, ok := r.BestMatch("Marie Curie")
		require.True(t, ok)
		assert.Equal(t, curie.EntityID, id)
		assert.Equal(t, 1.0, score)
	})

	t.Run("containment scores 0.75", func(t *testing.T) {
		id, score, ok := r.BestMatch("the physicist Marie Curie herself")
		require.True(t, ok)
		assert.Equal(t, curie.EntityID, id)
		assert.Equal(t, 0.75, score)
	})

	t.Run("shingle fallback", func(t *testing.T) {
		id, score, ok := r.BestMatch("maria curie")
		require.True(t, ok)
		assert.Equal(t, curie.EntityID, id)
		assert.GreaterOrEqual(t, score, SearchMatchThreshold)
		assert.Less(t, score, 1.0)
	})

	t.Run("no match", func(t *testing.T) {
		_, _, ok := r.BestMatch("zzzzqqqq")
		assert.False(t, ok)
	})
}

func TestRebuild(t *testing.T) {
	r := New()
	r.Rebuild([]*types.Entity{
		{ID: "e1", Name: "Tesla", Type: types.EntityOrganization, Aliases: []string{"tesla", "tesla inc"}},
		{ID: "e2", Name: "Elon Musk", Type: types.EntityPerson, Aliases: []string{"elon musk", "musk"}},
	})

	assert.Equal(t, 2, r.Len())

	id, ok := r.Lookup("tesla inc")
	require.True(t, ok)
	assert.Equal(t, "e1", id)

	id, ok = r.Lookup("Musk")
	require.True(t, ok)
	assert.Equal(t, "e2", id)
}

func TestNormalizeLoose(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tesla's Factory", "tesla factory"},
		{"  U.S.A.  ", "u s a"},
		{"Hello, World!", "hello world"},
		{"already plain", "already plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeLoose(tt.in), "input %q", tt.in)
	}
}

func TestJaccard(t *testing.T) {
	a := shingles("elon musk")
	assert.Equal(t, 1.0, jaccard(a, a))
	assert.Equal(t, 0.0, jaccard(a, nil))
	assert.Equal(t, 1.0, jaccard(nil, nil))

	b := shingles("elon musk enterprises")
	score := jaccard(a, b)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}
