package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave/pkg/types"
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := OpenSnapshotStore(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleGraph(seq uint64) *types.ExportedGraph {
	return &types.ExportedGraph{
		Seq: seq,
		Nodes: []types.ExportedNode{
			{ID: "a", Name: "Alpha", Type: types.EntityConcept},
			{ID: "b", Name: "Beta", Type: types.EntityConcept},
		},
		Edges: []types.ExportedEdge{
			{Source: "a", Target: "b", Type: types.RelationRelatedTo, Weight: 1},
		},
	}
}

func TestSaveAndLoadLatest(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(sampleGraph(1)))
	require.NoError(t, s.Save(sampleGraph(2)))

	g, err := s.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, uint64(2), g.Seq)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
}

func TestLoadLatestEmpty(t *testing.T) {
	s := openTestStore(t)
	g, err := s.LoadLatest()
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestLoadBySeq(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save(sampleGraph(1)))
	require.NoError(t, s.Save(sampleGraph(2)))

	g, err := s.Load(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g.Seq)

	_, err = s.Load(99)
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenSnapshotStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(sampleGraph(7)))
	require.NoError(t, s.Close())

	s, err = OpenSnapshotStore(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	g, err := s.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, uint64(7), g.Seq)
}
