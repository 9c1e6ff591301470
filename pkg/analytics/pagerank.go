package analytics

import (
	"math"

	"github.com/graphweave/graphweave/pkg/store"
)

const (
	// PageRankDamping is the probability of following an edge rather than
	// teleporting to a uniformly random node.
	PageRankDamping = 0.85
	// PageRankTolerance is the L1 convergence threshold.
	PageRankTolerance = 1e-6
	// PageRankMaxIterations caps the power iteration regardless of
	// convergence.
	PageRankMaxIterations = 100
)

// pageRank computes edge-weighted PageRank over the view. A node's rank
// flows out along its edges in proportion to their weights; nodes without
// outgoing edges redistribute their rank uniformly. The returned scores sum
// to 1 for any non-empty view.
func pageRank(v *store.View) map[string]float64 {
	n := len(v.Order)
	if n == 0 {
		return map[string]float64{}
	}

	outWeight := make(map[string]float64, n)
	for id, rels := range v.Out {
		var sum float64
		for _, r := range rels {
			sum += r.Weight
		}
		outWeight[id] = sum
	}

	rank := make(map[string]float64, n)
	uniform := 1.0 / float64(n)
	for _, id := range v.Order {
		rank[id] = uniform
	}

	next := make(map[string]float64, n)
	for iter := 0; iter < PageRankMaxIterations; iter++ {
		var dangling float64
		for _, id := range v.Order {
			if outWeight[id] == 0 {
				dangling += rank[id]
			}
		}

		base := (1-PageRankDamping)*uniform + PageRankDamping*dangling*uniform
		for _, id := range v.Order {
			next[id] = base
		}
		for _, id := range v.Order {
			w := outWeight[id]
			if w == 0 {
				continue
			}
			share := PageRankDamping * rank[id] / w
			for _, r := range v.Out[id] {
				next[r.TargetID] += share * r.Weight
			}
		}

		var delta float64
		for _, id := range v.Order {
			delta += math.Abs(next[id] - rank[id])
			rank[id] = next[id]
		}
		if delta < PageRankTolerance {
			break
		}
	}
	return rank
}
