// Package query answers natural-language questions over the graph. A
// question runs through an ordered table of intent templates; the first
// match dispatches to a typed handler, and questions nothing matches fall
// back to a keyword scan graded at low confidence.
package query

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/graphweave/graphweave/pkg/analytics"
	"github.com/graphweave/graphweave/pkg/metrics"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"
)

// topEntityCount is how many entities the importance, similarity, and
// fallback answers list. topCommunityCount bounds the communities named in
// the statistics answer.
const (
	topEntityCount    = 5
	topCommunityCount = 3
)

// paramCount is the number of capture groups each intent requires. A
// template matching with fewer groups (possible with custom templates) is
// demoted to the keyword fallback rather than dispatched half-formed.
var paramCount = map[Intent]int{
	IntentPath:           2,
	IntentSimilarity:     1,
	IntentNeighbors:      1,
	IntentEntitiesByType: 1,
	IntentEntityLookup:   1,
}

// Engine dispatches questions against the store and analytics layers.
type Engine struct {
	store     *store.Store
	analytics *analytics.Analytics
	logger    *slog.Logger
	templates []Template
}

// New creates a query engine. Custom templates, when given, are tried before
// the built-in table.
func New(st *store.Store, an *analytics.Analytics, logger *slog.Logger, custom ...Template) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     st,
		analytics: an,
		logger:    logger,
		templates: append(append([]Template(nil), custom...), builtinTemplates()...),
	}
}

// Query answers one natural-language question. Intents that read analytic
// scores force a synchronous recomputation when the published snapshot is
// stale, so an answer never reflects scores older than the graph it
// describes.
func (e *Engine) Query(ctx context.Context, question string) (*types.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("query: empty question")
	}

	if e.store.NodeCount() == 0 {
		return &types.Answer{
			Text:       "The graph is empty. Ingest some documents first.",
			Confidence: types.ConfidenceLow,
		}, nil
	}

	start := time.Now()
	m, ok := parse(e.templates, question)
	if !ok || len(m.Params) < paramCount[m.Intent] {
		m = Match{Intent: IntentFallback}
	}

	var (
		ans *types.Answer
		err error
	)
	switch m.Intent {
	case IntentStatistics:
		ans, err = e.answerStatistics(ctx)
	case IntentImportance:
		ans, err = e.answerImportance(ctx)
	case IntentPath:
		ans, err = e.answerPath(m.Params[0], m.Params[1])
	case IntentSimilarity:
		ans, err = e.answerSimilarity(ctx, m.Params[0])
	case IntentNeighbors:
		ans, err = e.answerNeighbors(m.Params[0])
	case IntentEntitiesByType:
		ans, err = e.answerEntitiesByType(m.Params[0])
	case IntentEntityLookup:
		ans, err = e.answerEntityLookup(m.Params[0])
	default:
		ans, err = e.answerFallback(ctx, question)
	}
	if err != nil {
		return nil, err
	}

	metrics.ObserveQuery(string(m.Intent), time.Since(start))
	e.logger.Debug("query answered", "intent", m.Intent, "confidence", ans.Confidence)
	return ans, nil
}

func (e *Engine) answerStatistics(ctx context.Context) (*types.Answer, error) {
	st := e.store.Stats()
	text := fmt.Sprintf("The graph holds %d entities and %d relations across %d component(s), density %.4f.",
		st.NodeCount, st.EdgeCount, st.Components, st.Density)
	if st.ArchivedCount > 0 {
		text += fmt.Sprintf(" %d entities are archived.", st.ArchivedCount)
	}

	snap, err := e.analytics.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	if summary := e.describeCommunities(snap); summary != "" {
		text += " Top communities: " + summary + "."
	}
	return &types.Answer{Text: text, Confidence: types.ConfidenceHigh}, nil
}

// describeCommunities names the largest communities, each by its size and
// most important member.
func (e *Engine) describeCommunities(snap *analytics.Snapshot) string {
	groups := snap.Communities()
	if len(groups) == 0 {
		return ""
	}
	labels := make([]int, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := groups[labels[i]], groups[labels[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return labels[i] < labels[j]
	})
	if len(labels) > topCommunityCount {
		labels = labels[:topCommunityCount]
	}

	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		members := groups[l]
		rep := members[0]
		for _, m := range members[1:] {
			if snap.Importance[m] > snap.Importance[rep] {
				rep = m
			}
		}
		name := rep
		if ent, err := e.store.GetEntity(rep); err == nil {
			name = ent.Name
		}
		parts = append(parts, fmt.Sprintf("%d member(s) around %s", len(members), name))
	}
	return strings.Join(parts, "; ")
}

func (e *Engine) answerImportance(ctx context.Context) (*types.Answer, error) {
	snap, err := e.analytics.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	top := snap.Top(topEntityCount)
	if len(top) == 0 {
		return &types.Answer{
			Text:       "No entities are available for ranking.",
			Confidence: types.ConfidenceLow,
		}, nil
	}

	var sb strings.Builder
	sb.WriteString("The most important entities are: ")
	ans := &types.Answer{Confidence: types.ConfidenceHigh}
	for i, item := range top {
		ent, err := e.store.GetEntity(item.Item)
		if err != nil {
			continue
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s (%.4f)", ent.Name, item.Score)
		ans.ReferencedNodes = append(ans.ReferencedNodes, ent.ID)
	}
	sb.WriteString(".")
	ans.Text = sb.String()
	return ans, nil
}

func (e *Engine) answerPath(fromText, toText string) (*types.Answer, error) {
	fromID, fromScore, ok := e.store.Registry().BestMatch(fromText)
	if !ok {
		return e.unknownEntity(fromText), nil
	}
	toID, toScore, ok := e.store.Registry().BestMatch(toText)
	if !ok {
		return e.unknownEntity(toText), nil
	}

	v := e.store.View(false)
	hops, ok := shortestPath(v, fromID, toID)
	if !ok {
		from, to := v.Entities[fromID], v.Entities[toID]
		if from == nil || to == nil {
			return e.unknownEntity(fromText), nil
		}
		return &types.Answer{
			Text:            fmt.Sprintf("No path connects %s and %s.", from.Name, to.Name),
			ReferencedNodes: []string{fromID, toID},
			Confidence:      types.ConfidenceHigh,
		}, nil
	}

	var sb strings.Builder
	ans := &types.Answer{Confidence: gradeMatch(fromScore, toScore)}
	sb.WriteString(v.Entities[fromID].Name)
	ans.ReferencedNodes = append(ans.ReferencedNodes, fromID)
	for _, h := range hops {
		fmt.Fprintf(&sb, " -[%s]-> %s", h.relType, v.Entities[h.to].Name)
		ans.ReferencedNodes = append(ans.ReferencedNodes, h.to)
		ans.ReferencedEdges = append(ans.ReferencedEdges, [2]string{h.relFrom, h.relTo})
	}
	ans.Text = sb.String()
	return ans, nil
}

func (e *Engine) answerSimilarity(ctx context.Context, text string) (*types.Answer, error) {
	id, score, ok := e.store.Registry().BestMatch(text)
	if !ok {
		return e.unknownEntity(text), nil
	}
	seed, err := e.store.GetEntity(id)
	if err != nil {
		return nil, err
	}
	similar, err := e.analytics.SimilarTo(ctx, id, topEntityCount)
	if err != nil {
		return nil, err
	}
	if len(similar) == 0 {
		return &types.Answer{
			Text:            fmt.Sprintf("No entities are similar to %s yet.", seed.Name),
			ReferencedNodes: []string{id},
			Confidence:      types.ConfidenceLow,
		}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Entities most similar to %s: ", seed.Name)
	ans := &types.Answer{ReferencedNodes: []string{id}, Confidence: gradeMatch(score)}
	for i, s := range similar {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s (%.3f)", s.Entity.Name, s.Score)
		ans.ReferencedNodes = append(ans.ReferencedNodes, s.Entity.ID)
	}
	sb.WriteString(".")
	ans.Text = sb.String()
	return ans, nil
}

func (e *Engine) answerNeighbors(text string) (*types.Answer, error) {
	id, score, ok := e.store.Registry().BestMatch(text)
	if !ok {
		return e.unknownEntity(text), nil
	}
	ent, err := e.store.GetEntity(id)
	if err != nil {
		return nil, err
	}
	rels, err := e.store.Neighbors(id)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return &types.Answer{
			Text:            fmt.Sprintf("%s has no recorded relations.", ent.Name),
			ReferencedNodes: []string{id},
			Confidence:      gradeMatch(score),
		}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s is connected to: ", ent.Name)
	ans := &types.Answer{ReferencedNodes: []string{id}, Confidence: gradeMatch(score)}
	for i, r := range rels {
		otherID := r.TargetID
		if otherID == id {
			otherID = r.SourceID
		}
		other, err := e.store.GetEntity(otherID)
		if err != nil {
			continue
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s (%s, weight %.1f)", other.Name, r.Type, r.Weight)
		ans.ReferencedNodes = append(ans.ReferencedNodes, otherID)
		ans.ReferencedEdges = append(ans.ReferencedEdges, [2]string{r.SourceID, r.TargetID})
	}
	sb.WriteString(".")
	ans.Text = sb.String()
	return ans, nil
}

func (e *Engine) answerEntitiesByType(surface string) (*types.Answer, error) {
	typ, ok := typeAliases[strings.ToLower(surface)]
	if !ok {
		return &types.Answer{
			Text:       fmt.Sprintf("I don't track a %q entity type.", surface),
			Confidence: types.ConfidenceLow,
		}, nil
	}

	v := e.store.View(false)
	ans := &types.Answer{Confidence: types.ConfidenceHigh}
	var names []string
	for _, id := range v.Order {
		if ent := v.Entities[id]; ent.Type == typ {
			names = append(names, ent.Name)
			ans.ReferencedNodes = append(ans.ReferencedNodes, id)
		}
	}
	if len(names) == 0 {
		ans.Text = fmt.Sprintf("The graph holds no %s entities.", typ)
		ans.Confidence = types.ConfidenceLow
		return ans, nil
	}
	sort.Strings(names)
	ans.Text = fmt.Sprintf("%s entities (%d): %s.", typ, len(names), strings.Join(names, ", "))
	return ans, nil
}

func (e *Engine) answerEntityLookup(text string) (*types.Answer, error) {
	id, score, ok := e.store.Registry().BestMatch(text)
	if !ok {
		return e.unknownEntity(text), nil
	}
	ent, err := e.store.GetEntity(id)
	if err != nil {
		return nil, err
	}
	rels, _ := e.store.Neighbors(id)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s is a %s mentioned %d time(s)", ent.Name, ent.Type, ent.MentionCount)
	ans := &types.Answer{ReferencedNodes: []string{id}, Confidence: gradeMatch(score)}
	if len(rels) > 0 {
		sb.WriteString(", connected to ")
		limit := len(rels)
		if limit > topEntityCount {
			limit = topEntityCount
		}
		for i := 0; i < limit; i++ {
			r := rels[i]
			otherID := r.TargetID
			if otherID == id {
				otherID = r.SourceID
			}
			other, err := e.store.GetEntity(otherID)
			if err != nil {
				continue
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(other.Name)
			ans.ReferencedNodes = append(ans.ReferencedNodes, otherID)
			ans.ReferencedEdges = append(ans.ReferencedEdges, [2]string{r.SourceID, r.TargetID})
		}
	}
	sb.WriteString(".")
	ans.Text = sb.String()
	return ans, nil
}

// answerFallback scans the question's keywords against entity aliases and
// lists the hits ranked by importance. Always graded low confidence.
func (e *Engine) answerFallback(ctx context.Context, question string) (*types.Answer, error) {
	snap, err := e.analytics.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	v := e.store.View(false)
	tokens := keywordTokens(question)
	var hits []analytics.ScoredItem[string]
	for _, id := range v.Order {
		ent := v.Entities[id]
		if matchesKeywords(ent, tokens) {
			hits = append(hits, analytics.ScoredItem[string]{Item: id, Score: snap.Importance[id]})
		}
	}
	if len(hits) == 0 {
		return &types.Answer{
			Text:       "I could not match that question to anything in the graph.",
			Confidence: types.ConfidenceLow,
		}, nil
	}

	top := analytics.TopKByScore(hits, topEntityCount)
	var sb strings.Builder
	sb.WriteString("I could not parse the question, but these entities match its keywords: ")
	ans := &types.Answer{Confidence: types.ConfidenceLow}
	for i, h := range top {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.Entities[h.Item].Name)
		ans.ReferencedNodes = append(ans.ReferencedNodes, h.Item)
	}
	sb.WriteString(".")
	ans.Text = sb.String()
	return ans, nil
}

func (e *Engine) unknownEntity(text string) *types.Answer {
	return &types.Answer{
		Text:       fmt.Sprintf("I don't know an entity matching %q.", text),
		Confidence: types.ConfidenceLow,
	}
}

// gradeMatch grades answer confidence from entity match scores: any fuzzy
// (sub-exact, sub-substring) resolution drops the grade to low.
func gradeMatch(scores ...float64) types.Confidence {
	for _, s := range scores {
		if s < 0.75 {
			return types.ConfidenceLow
		}
	}
	return types.ConfidenceHigh
}

// trimParam strips filler articles and punctuation from a captured entity
// parameter.
func trimParam(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'?.!,`)
	for _, prefix := range []string{"the ", "a ", "an "} {
		if len(s) > len(prefix) && strings.HasPrefix(strings.ToLower(s), prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(s)
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "what": true,
	"who": true, "how": true, "are": true, "was": true, "were": true,
	"does": true, "about": true, "tell": true, "show": true, "that": true,
	"this": true, "from": true, "into": true, "between": true,
}

func keywordTokens(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	var tokens []string
	for _, f := range fields {
		if len(f) > 2 && !stopwords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func matchesKeywords(ent *types.Entity, tokens []string) bool {
	for _, tok := range tokens {
		for _, alias := range ent.Aliases {
			if strings.Contains(alias, tok) {
				return true
			}
		}
	}
	return false
}

// pathHop is one step of a shortest path. from/to follow the traversal
// direction; relFrom/relTo keep the stored edge orientation so callers can
// reference the actual edge.
type pathHop struct {
	from    string
	to      string
	relFrom string
	relTo   string
	relType types.RelationType
}

type pqItem struct {
	id   string
	dist float64
}

type pathPQ []pqItem

func (p pathPQ) Len() int { return len(p) }
func (p pathPQ) Less(i, j int) bool {
	if p[i].dist != p[j].dist {
		return p[i].dist < p[j].dist
	}
	return p[i].id < p[j].id
}
func (p pathPQ) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p *pathPQ) Push(x any)   { *p = append(*p, x.(pqItem)) }
func (p *pathPQ) Pop() any     { old := *p; n := len(old); x := old[n-1]; *p = old[:n-1]; return x }

// shortestPath runs Dijkstra over the view treating edges as undirected with
// length 1/weight, so heavily evidenced relations are preferred. Returns the
// hop sequence from source to target.
func shortestPath(v *store.View, from, to string) ([]pathHop, bool) {
	if from == to {
		return nil, true
	}

	type link struct {
		to      string
		relFrom string
		relTo   string
		relType types.RelationType
		cost    float64
	}
	adj := make(map[string][]link)
	for _, r := range v.Edges {
		cost := 1.0
		if r.Weight > 0 {
			cost = 1.0 / r.Weight
		}
		adj[r.SourceID] = append(adj[r.SourceID], link{to: r.TargetID, relFrom: r.SourceID, relTo: r.TargetID, relType: r.Type, cost: cost})
		adj[r.TargetID] = append(adj[r.TargetID], link{to: r.SourceID, relFrom: r.SourceID, relTo: r.TargetID, relType: r.Type, cost: cost})
	}

	dist := map[string]float64{from: 0}
	prev := make(map[string]pathHop)
	visited := make(map[string]bool)
	pq := &pathPQ{{id: from, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == to {
			break
		}
		for _, l := range adj[cur.id] {
			nd := cur.dist + l.cost
			if d, seen := dist[l.to]; !seen || nd < d {
				dist[l.to] = nd
				prev[l.to] = pathHop{from: cur.id, to: l.to, relFrom: l.relFrom, relTo: l.relTo, relType: l.relType}
				heap.Push(pq, pqItem{id: l.to, dist: nd})
			}
		}
	}
	if !visited[to] {
		return nil, false
	}

	var hops []pathHop
	for at := to; at != from; {
		h := prev[at]
		hops = append(hops, h)
		at = h.from
	}
	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}
	return hops, true
}
