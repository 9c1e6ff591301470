package analytics

import (
	"github.com/graphweave/graphweave/pkg/store"
)

const (
	// betweennessExactLimit is the node count up to which betweenness is
	// computed exactly. Larger graphs use pivot sampling.
	betweennessExactLimit = 400
	// betweennessPivots is the number of source pivots sampled on large
	// graphs. Pivots are taken in sorted id order so results stay
	// deterministic.
	betweennessPivots = 64
)

// degreeCentrality returns per-node degree normalized by n-1, counting both
// edge directions.
func degreeCentrality(v *store.View) map[string]float64 {
	deg := make(map[string]float64, len(v.Order))
	for _, id := range v.Order {
		deg[id] = 0
	}
	for _, r := range v.Edges {
		deg[r.SourceID]++
		deg[r.TargetID]++
	}
	if n := len(v.Order); n > 1 {
		norm := 1.0 / float64(n-1)
		for id := range deg {
			deg[id] *= norm
		}
	}
	return deg
}

// betweenness computes Brandes betweenness centrality over the directed
// graph, treating every edge as unit length. Graphs over the exact limit are
// approximated from a fixed number of pivot sources and scaled up; the
// second return value reports whether the result is approximate.
func betweenness(v *store.View) (map[string]float64, bool) {
	n := len(v.Order)
	scores := make(map[string]float64, n)
	for _, id := range v.Order {
		scores[id] = 0
	}
	if n < 3 {
		return scores, false
	}

	sources := v.Order
	approximate := false
	if n > betweennessExactLimit {
		approximate = true
		step := n / betweennessPivots
		if step < 1 {
			step = 1
		}
		sources = make([]string, 0, betweennessPivots)
		for i := 0; i < n && len(sources) < betweennessPivots; i += step {
			sources = append(sources, v.Order[i])
		}
	}

	succ := make(map[string][]string, n)
	for id, rels := range v.Out {
		for _, r := range rels {
			succ[id] = append(succ[id], r.TargetID)
		}
	}

	for _, s := range sources {
		brandesAccumulate(v.Order, succ, s, scores)
	}

	// Directed normalization, plus scale-up when only pivots were sampled.
	scale := 1.0 / (float64(n-1) * float64(n-2))
	if approximate {
		scale *= float64(n) / float64(len(sources))
	}
	for id := range scores {
		scores[id] *= scale
	}
	return scores, approximate
}

// brandesAccumulate runs one Brandes single-source pass (BFS variant for
// unit-length edges) and adds the dependency contributions into scores.
func brandesAccumulate(order []string, succ map[string][]string, s string, scores map[string]float64) {
	sigma := map[string]float64{s: 1}
	dist := map[string]int{s: 0}
	pred := make(map[string][]string)
	var stack []string

	queue := []string{s}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		stack = append(stack, u)
		for _, w := range succ[u] {
			if _, seen := dist[w]; !seen {
				dist[w] = dist[u] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[u]+1 {
				sigma[w] += sigma[u]
				pred[w] = append(pred[w], u)
			}
		}
	}

	delta := make(map[string]float64)
	for i := len(stack) - 1; i >= 0; i-- {
		w := stack[i]
		for _, u := range pred[w] {
			delta[u] += sigma[u] / sigma[w] * (1 + delta[w])
		}
		if w != s {
			scores[w] += delta[w]
		}
	}
}
