// Package analytics computes graph-level scores over a consistent view of
// the store: PageRank importance, degree and betweenness centrality, and
// community labels. Results are published as immutable snapshots swapped in
// atomically, so readers never observe a half-computed result.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/graphweave/graphweave/pkg/embedder"
	"github.com/graphweave/graphweave/pkg/metrics"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"
)

// Snapshot is one immutable analytics result, tagged with the ingestion
// sequence it was computed against. A snapshot is stale once the graph's
// sequence moves past Seq.
type Snapshot struct {
	Seq        uint64
	ComputedAt time.Time

	// Importance holds PageRank scores summing to 1 over non-archived nodes.
	Importance map[string]float64
	Degree     map[string]float64

	Betweenness map[string]float64
	// BetweennessApproximate is set when betweenness was pivot-sampled
	// rather than computed exactly.
	BetweennessApproximate bool

	// Community maps node id to its community label, 0..k-1.
	Community map[string]int
}

// Communities groups node ids by community label, members sorted ascending.
func (s *Snapshot) Communities() map[int][]string {
	groups := make(map[int][]string)
	for id, label := range s.Community {
		groups[label] = append(groups[label], id)
	}
	for label := range groups {
		sort.Strings(groups[label])
	}
	return groups
}

// Top returns the k node ids with the highest importance, descending, ties
// broken by id ascending.
func (s *Snapshot) Top(k int) []ScoredItem[string] {
	ids := make([]string, 0, len(s.Importance))
	for id := range s.Importance {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.Importance[ids[i]], s.Importance[ids[j]]
		if a != b {
			return a > b
		}
		return ids[i] < ids[j]
	})
	if k > len(ids) {
		k = len(ids)
	}
	out := make([]ScoredItem[string], 0, k)
	for _, id := range ids[:k] {
		out = append(out, ScoredItem[string]{Item: id, Score: s.Importance[id]})
	}
	return out
}

// SimilarEntity is one result of a similarity query.
type SimilarEntity struct {
	Entity *types.Entity
	Score  float64
}

// Analytics owns snapshot computation and the lazy embedding cache.
type Analytics struct {
	store  *store.Store
	emb    embedder.Client
	logger *slog.Logger

	current atomic.Pointer[Snapshot]

	// recomputeMu serializes recomputation; concurrent callers behind Ensure
	// share one pass instead of racing.
	recomputeMu sync.Mutex

	// vectors caches embeddings by entity id across snapshots. Embeddings
	// depend on the entity name, which is stable once assigned.
	vecMu   sync.RWMutex
	vectors map[string][]float32
}

// New creates an Analytics engine over the store.
func New(st *store.Store, emb embedder.Client, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	if emb == nil {
		emb = embedder.NewLocalEmbedder(embedder.DefaultLocalDimensions)
	}
	return &Analytics{
		store:   st,
		emb:     emb,
		logger:  logger,
		vectors: make(map[string][]float32),
	}
}

// Current returns the latest snapshot, or nil if none has been computed.
func (a *Analytics) Current() *Snapshot {
	return a.current.Load()
}

// Stale reports whether the latest snapshot lags the graph sequence.
func (a *Analytics) Stale() bool {
	snap := a.current.Load()
	return snap == nil || snap.Seq != a.store.Seq()
}

// Ensure returns a snapshot current with the graph, recomputing first if the
// published one is stale.
func (a *Analytics) Ensure(ctx context.Context) (*Snapshot, error) {
	if snap := a.current.Load(); snap != nil && snap.Seq == a.store.Seq() {
		return snap, nil
	}
	return a.Recompute(ctx)
}

// Recompute takes a consistent view of the non-archived graph, runs every
// analytic over it, and atomically publishes the result. Scores are written
// back onto the store's entities as a cache. Documents ingested while a
// recomputation runs make the new snapshot stale on arrival; the next Ensure
// picks them up.
func (a *Analytics) Recompute(ctx context.Context) (*Snapshot, error) {
	a.recomputeMu.Lock()
	defer a.recomputeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analytics recompute: %w", err)
	}
	// Re-check under the lock: a concurrent caller may have just finished
	// the pass this caller was queued behind.
	if snap := a.current.Load(); snap != nil && snap.Seq == a.store.Seq() {
		return snap, nil
	}

	start := time.Now()
	v := a.store.View(false)

	snap := &Snapshot{
		Seq:        v.Seq,
		ComputedAt: start.UTC(),
		Importance: pageRank(v),
		Degree:     degreeCentrality(v),
		Community:  communities(v),
	}
	snap.Betweenness, snap.BetweennessApproximate = betweenness(v)

	a.current.Store(snap)
	a.store.SetScores(snap.Importance, snap.Community, snap.Seq)

	elapsed := time.Since(start)
	metrics.ObserveRecompute(elapsed)
	a.logger.Info("analytics snapshot computed",
		"seq", snap.Seq,
		"nodes", len(v.Order),
		"edges", len(v.Edges),
		"betweenness_approximate", snap.BetweennessApproximate,
		"elapsed", elapsed,
	)
	return snap, nil
}

// SimilarTo returns the k entities most similar to the given one by cosine
// similarity of their embeddings. Vectors are produced lazily on first use
// and cached; the query entity itself and archived entities are excluded.
func (a *Analytics) SimilarTo(ctx context.Context, id string, k int) ([]SimilarEntity, error) {
	seed, err := a.store.GetEntity(id)
	if err != nil {
		return nil, err
	}
	seedVec, err := a.vectorFor(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", seed.Name, err)
	}

	v := a.store.View(false)
	scored := make([]ScoredItem[*types.Entity], 0, len(v.Order))
	for _, cid := range v.Order {
		if cid == id {
			continue
		}
		cand := v.Entities[cid]
		vec, err := a.vectorFor(ctx, cand)
		if err != nil {
			return nil, fmt.Errorf("embed %q: %w", cand.Name, err)
		}
		scored = append(scored, ScoredItem[*types.Entity]{
			Item:  cand,
			Score: CosineSimilarity(seedVec, vec),
		})
	}

	top := TopKByScore(scored, k)
	out := make([]SimilarEntity, 0, len(top))
	for _, s := range top {
		out = append(out, SimilarEntity{Entity: s.Item, Score: s.Score})
	}
	return out, nil
}

// vectorFor returns the cached embedding for the entity, computing it on
// first use. Evidence snippets from incident edges give the provider
// disambiguation context.
func (a *Analytics) vectorFor(ctx context.Context, e *types.Entity) ([]float32, error) {
	a.vecMu.RLock()
	vec, ok := a.vectors[e.ID]
	a.vecMu.RUnlock()
	if ok {
		return vec, nil
	}

	var snippets []string
	if rels, err := a.store.Neighbors(e.ID); err == nil {
		for _, r := range rels {
			snippets = append(snippets, r.Evidence...)
			if len(snippets) >= types.MaxEvidenceSnippets {
				snippets = snippets[:types.MaxEvidenceSnippets]
				break
			}
		}
	}

	vec, err := a.emb.Embed(ctx, e.Name, snippets)
	if err != nil {
		return nil, err
	}
	a.vecMu.Lock()
	a.vectors[e.ID] = vec
	a.vecMu.Unlock()
	metrics.IncEmbeddings()
	return vec, nil
}
