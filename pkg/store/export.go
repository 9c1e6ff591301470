package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/graphweave/graphweave/pkg/types"
)

func normalizedAlias(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Export serializes the full graph into the stable wire schema. Nodes and
// edges are emitted in sorted order so equal graphs export byte-identically.
func (s *Store) Export() types.ExportedGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := types.ExportedGraph{
		Seq:   s.seq,
		Nodes: make([]types.ExportedNode, 0, len(s.entities)),
		Edges: make([]types.ExportedEdge, 0, len(s.edges)),
	}
	for _, e := range s.entities {
		g.Nodes = append(g.Nodes, types.ExportedNode{
			ID:           e.ID,
			Name:         e.Name,
			Type:         e.Type,
			Importance:   e.Importance,
			Community:    e.Community,
			Aliases:      append([]string(nil), e.Aliases...),
			MentionCount: e.MentionCount,
			FirstSeen:    e.FirstSeen,
			LastSeen:     e.LastSeen,
			Archived:     e.Archived,
		})
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })

	for _, r := range s.edges {
		g.Edges = append(g.Edges, types.ExportedEdge{
			Source:        r.SourceID,
			Target:        r.TargetID,
			Type:          r.Type,
			Weight:        r.Weight,
			EvidenceCount: r.EvidenceCount,
			Evidence:      append([]string(nil), r.Evidence...),
		})
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Type < b.Type
	})
	return g
}

// Import replaces the graph contents with the snapshot. The whole snapshot
// is validated up front: a dangling edge, self-loop, or duplicate triple
// fails the import before anything is applied, leaving the previous graph
// untouched. The registry's alias index is rebuilt so id resolution stays
// consistent with the node arena.
func (s *Store) Import(g *types.ExportedGraph) error {
	nodeSet := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("import: node with empty id")
		}
		if _, dup := nodeSet[n.ID]; dup {
			return fmt.Errorf("import: duplicate node id %s", n.ID)
		}
		nodeSet[n.ID] = struct{}{}
	}
	edgeSet := make(map[types.TripleKey]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		if _, ok := nodeSet[e.Source]; !ok {
			return fmt.Errorf("import: edge source %s not in node set", e.Source)
		}
		if _, ok := nodeSet[e.Target]; !ok {
			return fmt.Errorf("import: edge target %s not in node set", e.Target)
		}
		if e.Source == e.Target {
			return fmt.Errorf("import: self-loop on %s", e.Source)
		}
		// Duplicate detection uses the same type normalization the apply
		// phase does, so two invalid-typed edges on one pair collide here.
		typ := e.Type
		if !typ.IsValid() {
			typ = types.RelationRelatedTo
		}
		key := types.TripleKey{Source: e.Source, Target: e.Target, Type: typ}
		if _, dup := edgeSet[key]; dup {
			return fmt.Errorf("import: duplicate edge %s-[%s]->%s", e.Source, typ, e.Target)
		}
		edgeSet[key] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = make(map[string]*types.Entity, len(g.Nodes))
	s.edges = make(map[types.TripleKey]*types.Relation, len(g.Edges))
	s.out = make(map[string][]types.TripleKey)
	s.in = make(map[string][]types.TripleKey)
	s.seenDocs = make(map[string]string)

	entities := make([]*types.Entity, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		typ := n.Type
		if !typ.IsValid() {
			typ = types.EntityOther
		}
		aliases := append([]string(nil), n.Aliases...)
		if len(aliases) == 0 {
			aliases = []string{normalizedAlias(n.Name)}
		}
		mc := n.MentionCount
		if mc == 0 {
			mc = 1
		}
		e := &types.Entity{
			ID:           n.ID,
			Name:         n.Name,
			Type:         typ,
			Aliases:      aliases,
			MentionCount: mc,
			FirstSeen:    n.FirstSeen,
			LastSeen:     n.LastSeen,
			Archived:     n.Archived,
			Importance:   n.Importance,
			Community:    n.Community,
		}
		s.entities[n.ID] = e
		entities = append(entities, e)
	}

	for _, ee := range g.Edges {
		typ := ee.Type
		if !typ.IsValid() {
			typ = types.RelationRelatedTo
		}
		key := types.TripleKey{Source: ee.Source, Target: ee.Target, Type: typ}
		ec := ee.EvidenceCount
		if ec == 0 {
			ec = 1
		}
		s.edges[key] = &types.Relation{
			SourceID:      ee.Source,
			TargetID:      ee.Target,
			Type:          typ,
			Weight:        ee.Weight,
			EvidenceCount: ec,
			Evidence:      append([]string(nil), ee.Evidence...),
		}
		s.out[ee.Source] = append(s.out[ee.Source], key)
		s.in[ee.Target] = append(s.in[ee.Target], key)
	}

	if g.Seq > 0 {
		s.seq = g.Seq
	} else {
		s.seq++
	}
	s.reg.Rebuild(entities)
	s.logger.Info("graph imported", "nodes", len(g.Nodes), "edges", len(g.Edges), "seq", s.seq)
	return nil
}

// ImportJSON decodes and imports a serialized snapshot. Slightly malformed
// payloads (trailing commas, single quotes, truncated output from upstream
// tooling) are passed through a JSON repair step before giving up.
func (s *Store) ImportJSON(data []byte) error {
	var g types.ExportedGraph
	if err := json.Unmarshal(data, &g); err != nil {
		repaired, repErr := jsonrepair.JSONRepair(string(data))
		if repErr != nil {
			return fmt.Errorf("import: undecodable snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &g); err != nil {
			return fmt.Errorf("import: undecodable snapshot after repair: %w", err)
		}
		s.logger.Warn("snapshot JSON required repair before import")
	}
	return s.Import(&g)
}
