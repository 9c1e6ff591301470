// Package subgraph extracts bounded neighborhoods around seed entities for
// focused rendering. Expansion is a greedy best-first walk: at every step
// the candidate most strongly connected to the nodes already included is
// admitted, so a tight node budget keeps the strongest context.
package subgraph

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"
)

const (
	// DefaultMaxDepth bounds how many hops from a seed the walk may reach.
	DefaultMaxDepth = 2
	// DefaultMaxNodes bounds the total node count of the extracted subgraph.
	DefaultMaxNodes = 50
)

// Options tunes one extraction. Zero values take the package defaults.
type Options struct {
	MaxDepth int
	MaxNodes int
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	return o
}

// Extractor extracts subgraphs from a store.
type Extractor struct {
	store *store.Store
}

// New creates an Extractor over the store.
func New(st *store.Store) *Extractor {
	return &Extractor{store: st}
}

// Extract returns the bounded neighborhood of the seed entities. Archived
// entities are never included. Every returned edge has both endpoints in
// the node set; Truncated is set when the node budget cut candidates that
// were still within depth range.
func (e *Extractor) Extract(seedIDs []string, opts Options) (*types.Subgraph, error) {
	opts = opts.withDefaults()
	v := e.store.View(false)

	included := mapset.NewThreadUnsafeSet[string]()
	depth := make(map[string]int)
	for _, id := range seedIDs {
		if _, ok := v.Entities[id]; !ok {
			return nil, fmt.Errorf("subgraph seed %s: %w", id, types.ErrEntityNotFound)
		}
		included.Add(id)
		depth[id] = 0
	}
	if included.Cardinality() == 0 {
		return nil, fmt.Errorf("subgraph: no seeds given")
	}

	truncated := false
	for included.Cardinality() < opts.MaxNodes {
		best, ok := e.bestCandidate(v, included, depth, opts.MaxDepth)
		if !ok {
			break
		}
		included.Add(best.id)
		depth[best.id] = best.depth
	}
	// One more scan: any candidate left within depth range means the budget
	// truncated the neighborhood.
	if _, ok := e.bestCandidate(v, included, depth, opts.MaxDepth); ok {
		truncated = true
	}

	return buildSubgraph(v, included, truncated), nil
}

type candidate struct {
	id         string
	depth      int
	attachment float64
	importance float64
}

// bestCandidate scores every excluded neighbor of the included set by total
// weight of its edges into the set, breaking ties by cached importance then
// id. Candidates past the depth bound are ignored.
func (e *Extractor) bestCandidate(v *store.View, included mapset.Set[string], depth map[string]int, maxDepth int) (candidate, bool) {
	cands := make(map[string]*candidate)

	consider := func(insideID, outsideID string, weight float64) {
		d := depth[insideID] + 1
		if d > maxDepth {
			return
		}
		c, ok := cands[outsideID]
		if !ok {
			c = &candidate{id: outsideID, depth: d, importance: v.Entities[outsideID].Importance}
			cands[outsideID] = c
		}
		c.attachment += weight
		if d < c.depth {
			c.depth = d
		}
	}

	for inside := range included.Iter() {
		for _, r := range v.Out[inside] {
			if !included.Contains(r.TargetID) {
				consider(inside, r.TargetID, r.Weight)
			}
		}
		for _, r := range v.In[inside] {
			if !included.Contains(r.SourceID) {
				consider(inside, r.SourceID, r.Weight)
			}
		}
	}
	if len(cands) == 0 {
		return candidate{}, false
	}

	var best *candidate
	for _, c := range cands {
		if best == nil {
			best = c
			continue
		}
		if c.attachment != best.attachment {
			if c.attachment > best.attachment {
				best = c
			}
			continue
		}
		if c.importance != best.importance {
			if c.importance > best.importance {
				best = c
			}
			continue
		}
		if c.id < best.id {
			best = c
		}
	}
	return *best, true
}

func buildSubgraph(v *store.View, included mapset.Set[string], truncated bool) *types.Subgraph {
	sg := &types.Subgraph{Truncated: truncated}

	ids := included.ToSlice()
	sort.Strings(ids)
	for _, id := range ids {
		e := v.Entities[id]
		sg.Nodes = append(sg.Nodes, types.ExportedNode{
			ID:           e.ID,
			Name:         e.Name,
			Type:         e.Type,
			Importance:   e.Importance,
			Community:    e.Community,
			MentionCount: e.MentionCount,
		})
	}
	for _, r := range v.Edges {
		if included.Contains(r.SourceID) && included.Contains(r.TargetID) {
			sg.Edges = append(sg.Edges, types.ExportedEdge{
				Source:        r.SourceID,
				Target:        r.TargetID,
				Type:          r.Type,
				Weight:        r.Weight,
				EvidenceCount: r.EvidenceCount,
			})
		}
	}
	return sg
}
