// Package store owns the in-memory entity-relationship multigraph: the node
// arena, the edge adjacency lists, and the ingestion sequence counter.
//
// Concurrency follows a single-writer-multiple-reader discipline. An
// ingestion batch holds the write lock for the duration of one document's
// commit, so concurrent batches are serialized and a reader observes either
// the pre-batch or the fully committed post-batch state, never a partial one.
package store

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/graphweave/graphweave/pkg/registry"
	"github.com/graphweave/graphweave/pkg/types"
)

// Store is the weighted, typed, directed multigraph of entities and
// relations. All mutation flows through ingestion batches or Import.
type Store struct {
	mu  sync.RWMutex
	reg *registry.Registry

	entities map[string]*types.Entity
	edges    map[types.TripleKey]*types.Relation
	out      map[string][]types.TripleKey
	in       map[string][]types.TripleKey

	// seq increments once per committed batch and once per import.
	seq uint64

	// seenDocs maps source id to the content hash of its last committed
	// batch, so re-ingesting an identical document is a no-op.
	seenDocs map[string]string

	logger *slog.Logger
}

// New creates an empty store backed by the given registry.
func New(reg *registry.Registry, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		reg:      reg,
		entities: make(map[string]*types.Entity),
		edges:    make(map[types.TripleKey]*types.Relation),
		out:      make(map[string][]types.TripleKey),
		in:       make(map[string][]types.TripleKey),
		seenDocs: make(map[string]string),
		logger:   logger,
	}
}

// Registry returns the registry that mints ids for this store.
func (s *Store) Registry() *registry.Registry { return s.reg }

// Seq returns the current ingestion sequence number.
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// NodeCount returns the number of entities, archived included.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// EdgeCount returns the number of distinct (source, target, type) relations.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// GetEntity returns a copy of the entity with the given id.
func (s *Store) GetEntity(id string) (*types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("get entity %s: %w", id, types.ErrEntityNotFound)
	}
	return e.Clone(), nil
}

// GetRelation returns a copy of the relation for the given triple.
func (s *Store) GetRelation(source, target string, typ types.RelationType) (*types.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.edges[types.TripleKey{Source: source, Target: target, Type: typ}]
	if !ok {
		return nil, fmt.Errorf("relation %s-[%s]->%s: %w", source, typ, target, types.ErrRelationNotFound)
	}
	return r.Clone(), nil
}

// Neighbors returns copies of every relation incident to the entity,
// outgoing and incoming, optionally filtered by relation type.
func (s *Store) Neighbors(id string, filter ...types.RelationType) ([]*types.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.entities[id]; !ok {
		return nil, fmt.Errorf("neighbors of %s: %w", id, types.ErrEntityNotFound)
	}
	match := func(t types.RelationType) bool {
		if len(filter) == 0 {
			return true
		}
		for _, f := range filter {
			if f == t {
				return true
			}
		}
		return false
	}
	var rels []*types.Relation
	for _, k := range s.out[id] {
		if match(k.Type) {
			rels = append(rels, s.edges[k].Clone())
		}
	}
	for _, k := range s.in[id] {
		if match(k.Type) {
			rels = append(rels, s.edges[k].Clone())
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Weight != rels[j].Weight {
			return rels[i].Weight > rels[j].Weight
		}
		return rels[i].Key().Source+string(rels[i].Type)+rels[i].Key().Target <
			rels[j].Key().Source+string(rels[j].Type)+rels[j].Key().Target
	})
	return rels, nil
}

// Archive flags an entity as excluded from analytics and query answers.
// Its edges are preserved so referential integrity holds; deletion is not
// supported by design.
func (s *Store) Archive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("archive %s: %w", id, types.ErrEntityNotFound)
	}
	e.Archived = true
	s.logger.Info("entity archived", "entity_id", id, "name", e.Name)
	return nil
}

// Stats computes node/edge counts, directed density, and weakly connected
// component count in one pass over the graph.
func (s *Store) Stats() types.GraphStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.GraphStats{
		NodeCount:      len(s.entities),
		EdgeCount:      len(s.edges),
		Seq:            s.seq,
		EntitiesByType: make(map[types.EntityType]int),
	}
	for _, e := range s.entities {
		st.EntitiesByType[e.Type]++
		if e.Archived {
			st.ArchivedCount++
		}
	}
	if n := st.NodeCount; n > 1 {
		st.Density = float64(st.EdgeCount) / float64(n*(n-1))
	}
	st.Components = s.componentCountLocked()
	return st
}

// componentCountLocked counts weakly connected components via union-find.
func (s *Store) componentCountLocked() int {
	parent := make(map[string]string, len(s.entities))
	var find func(string) string
	find = func(x string) string {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for id := range s.entities {
		parent[id] = id
	}
	for k := range s.edges {
		a, b := find(k.Source), find(k.Target)
		if a != b {
			parent[a] = b
		}
	}
	roots := make(map[string]struct{})
	for id := range s.entities {
		roots[find(id)] = struct{}{}
	}
	return len(roots)
}

// View is a consistent read-only copy of the graph taken at one point in
// time, used by analytics so recomputation never blocks ingestion.
type View struct {
	Seq      uint64
	Entities map[string]*types.Entity
	// Order lists entity ids sorted ascending, the deterministic iteration
	// order every analytic algorithm uses.
	Order []string
	Edges []*types.Relation
	Out   map[string][]*types.Relation
	In    map[string][]*types.Relation
}

// View snapshots the graph. When includeArchived is false, archived entities
// and every edge touching them are excluded.
func (s *Store) View(includeArchived bool) *View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := &View{
		Seq:      s.seq,
		Entities: make(map[string]*types.Entity, len(s.entities)),
		Out:      make(map[string][]*types.Relation),
		In:       make(map[string][]*types.Relation),
	}
	for id, e := range s.entities {
		if e.Archived && !includeArchived {
			continue
		}
		v.Entities[id] = e.Clone()
		v.Order = append(v.Order, id)
	}
	sort.Strings(v.Order)
	for k, r := range s.edges {
		if _, ok := v.Entities[k.Source]; !ok {
			continue
		}
		if _, ok := v.Entities[k.Target]; !ok {
			continue
		}
		c := r.Clone()
		v.Edges = append(v.Edges, c)
		v.Out[k.Source] = append(v.Out[k.Source], c)
		v.In[k.Target] = append(v.In[k.Target], c)
	}
	sort.Slice(v.Edges, func(i, j int) bool {
		a, b := v.Edges[i].Key(), v.Edges[j].Key()
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Type < b.Type
	})
	return v
}

// SetScores writes cached analytic scores back onto the entities, tagged
// with the sequence they were computed against. Entities created after the
// snapshot are untouched.
func (s *Store) SetScores(importance map[string]float64, community map[string]int, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, score := range importance {
		if e, ok := s.entities[id]; ok {
			e.Importance = score
			e.ScoresSeq = seq
		}
	}
	for id, c := range community {
		if e, ok := s.entities[id]; ok {
			e.Community = c
		}
	}
}
