package analytics

import (
	"sort"

	"github.com/graphweave/graphweave/pkg/store"
)

// communityMaxIterations caps label propagation; in practice the sweep
// converges in a handful of rounds.
const communityMaxIterations = 100

// communities partitions the view into communities via weighted label
// propagation. Every node starts in its own community; each round visits
// nodes in sorted id order and adopts the label with the highest total
// incident edge weight, ties broken by the smallest label. The process is
// fully deterministic. Final labels are renumbered 0..k-1 in order of each
// community's smallest member id, and every node (isolated ones included)
// receives a label.
func communities(v *store.View) map[string]int {
	labels := make(map[string]int, len(v.Order))
	for i, id := range v.Order {
		labels[id] = i
	}
	if len(v.Order) == 0 {
		return labels
	}

	// Undirected weighted adjacency. Edge direction carries no meaning for
	// community structure.
	type edge struct {
		to     string
		weight float64
	}
	adj := make(map[string][]edge, len(v.Order))
	for _, r := range v.Edges {
		adj[r.SourceID] = append(adj[r.SourceID], edge{to: r.TargetID, weight: r.Weight})
		adj[r.TargetID] = append(adj[r.TargetID], edge{to: r.SourceID, weight: r.Weight})
	}

	for iter := 0; iter < communityMaxIterations; iter++ {
		changed := false
		for _, id := range v.Order {
			neighbors := adj[id]
			if len(neighbors) == 0 {
				continue
			}
			tally := make(map[int]float64, len(neighbors))
			for _, e := range neighbors {
				tally[labels[e.to]] += e.weight
			}
			best := labels[id]
			bestWeight := tally[best]
			for label, w := range tally {
				if w > bestWeight || (w == bestWeight && label < best) {
					best = label
					bestWeight = w
				}
			}
			if best != labels[id] {
				labels[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return renumberCommunities(labels)
}

// renumberCommunities maps raw labels to 0..k-1, ordered by each
// community's smallest member id so the numbering is stable across runs.
func renumberCommunities(labels map[string]int) map[string]int {
	smallest := make(map[int]string)
	for id, label := range labels {
		if cur, ok := smallest[label]; !ok || id < cur {
			smallest[label] = id
		}
	}
	rawLabels := make([]int, 0, len(smallest))
	for label := range smallest {
		rawLabels = append(rawLabels, label)
	}
	sort.Slice(rawLabels, func(i, j int) bool {
		return smallest[rawLabels[i]] < smallest[rawLabels[j]]
	})
	remap := make(map[int]int, len(rawLabels))
	for i, label := range rawLabels {
		remap[label] = i
	}

	out := make(map[string]int, len(labels))
	for id, label := range labels {
		out[id] = remap[label]
	}
	return out
}
