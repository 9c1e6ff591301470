package store

import (
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/pkg/registry"
	"github.com/graphweave/graphweave/pkg/types"
)

// Batch stages the mutations of one document. It holds the store's write
// lock from Begin until Commit or Abort, which is what serializes
// concurrent ingestion. Either every staged mutation is applied or none is:
// a fatal mid-batch error leaves the graph exactly as it was.
type Batch struct {
	store *Store
	rtx   *registry.Txn

	// pendingSeq is the sequence number this batch will commit as.
	pendingSeq uint64
	report     *types.BatchReport

	// Staged state. Existing entities and relations are updated on copies;
	// the originals are only replaced at commit time.
	newEntities map[string]*types.Entity
	touched     map[string]*types.Entity
	staged      map[types.TripleKey]*types.Relation
	docHash     string
	closed      bool
}

// Begin opens an ingestion batch for one document and takes exclusive write
// access. The batch must be finished with Commit or Abort.
func (s *Store) Begin(sourceID string) *Batch {
	s.mu.Lock()
	return &Batch{
		store:       s,
		rtx:         s.reg.Begin(),
		pendingSeq:  s.seq + 1,
		report:      &types.BatchReport{SourceID: sourceID, Seq: s.seq + 1},
		newEntities: make(map[string]*types.Entity),
		touched:     make(map[string]*types.Entity),
		staged:      make(map[types.TripleKey]*types.Relation),
	}
}

// AddEntityMention resolves a mention through the registry and stages the
// entity creation or update. Returns the stable entity id.
func (b *Batch) AddEntityMention(text string, hint types.EntityType) (string, error) {
	if b.closed {
		return "", types.ErrBatchClosed
	}
	res, err := b.rtx.Resolve(text, hint)
	if err != nil {
		return "", fmt.Errorf("add mention %q: %w", text, err)
	}

	if res.Conflict != nil {
		b.report.Issues = append(b.report.Issues, *res.Conflict)
	}

	e := b.stagedEntity(res.EntityID)
	if e == nil {
		e = &types.Entity{
			ID:        res.EntityID,
			Name:      res.Name,
			Type:      res.Type,
			FirstSeen: b.pendingSeq,
		}
		b.newEntities[res.EntityID] = e
		b.report.EntitiesCreated++
	}
	if res.TypeUpgraded {
		e.Type = res.Type
	}
	if res.AliasAdded != "" && !e.HasAlias(res.AliasAdded) {
		e.Aliases = append(e.Aliases, res.AliasAdded)
	}
	e.MentionCount++
	e.LastSeen = b.pendingSeq
	b.report.MentionsResolved++
	return res.EntityID, nil
}

// AddRelation stages an evidence event for the (source, target, type)
// triple. Repeat events increment weight and evidence count instead of
// creating parallel edges. Self-loops and unknown endpoints are rejected as
// no-ops with a recorded diagnostic.
func (b *Batch) AddRelation(sourceID, targetID string, typ types.RelationType, confidence float64, snippet string) error {
	if b.closed {
		return types.ErrBatchClosed
	}
	if sourceID == targetID {
		b.report.Record(types.IssueMalformedRelation, sourceID, "self-loop rejected")
		b.store.logger.Debug("self-loop rejected", "entity_id", sourceID)
		return nil
	}
	if b.stagedEntity(sourceID) == nil {
		b.report.Record(types.IssueMalformedRelation, sourceID, "source entity not present in graph")
		return nil
	}
	if b.stagedEntity(targetID) == nil {
		b.report.Record(types.IssueMalformedRelation, targetID, "target entity not present in graph")
		return nil
	}
	if !typ.IsValid() {
		typ = types.RelationRelatedTo
	}
	if confidence <= 0 {
		confidence = 1
	}

	key := types.TripleKey{Source: sourceID, Target: targetID, Type: typ}
	r, ok := b.staged[key]
	if !ok {
		if existing, found := b.store.edges[key]; found {
			r = existing.Clone()
			b.report.RelationsMerged++
		} else {
			r = &types.Relation{SourceID: sourceID, TargetID: targetID, Type: typ, FirstSeen: b.pendingSeq}
			b.report.RelationsAdded++
		}
		b.staged[key] = r
	}
	r.Weight += confidence
	r.EvidenceCount++
	r.LastSeen = b.pendingSeq
	r.AppendEvidence(strings.TrimSpace(snippet))
	return nil
}

// stagedEntity returns the batch's mutable copy of an entity, promoting a
// committed entity into the touched set on first access.
func (b *Batch) stagedEntity(id string) *types.Entity {
	if e, ok := b.newEntities[id]; ok {
		return e
	}
	if e, ok := b.touched[id]; ok {
		return e
	}
	if e, ok := b.store.entities[id]; ok {
		c := e.Clone()
		b.touched[id] = c
		return c
	}
	return nil
}

// Commit applies every staged mutation, bumps the sequence counter, and
// releases write access. The returned report accumulates all non-fatal
// per-item issues of the batch.
func (b *Batch) Commit() (*types.BatchReport, error) {
	if b.closed {
		return nil, types.ErrBatchClosed
	}
	b.closed = true
	defer b.store.mu.Unlock()

	s := b.store
	for id, e := range b.newEntities {
		s.entities[id] = e
	}
	for id, e := range b.touched {
		s.entities[id] = e
	}
	for key, r := range b.staged {
		if _, existed := s.edges[key]; !existed {
			s.out[key.Source] = append(s.out[key.Source], key)
			s.in[key.Target] = append(s.in[key.Target], key)
		}
		s.edges[key] = r
	}
	s.seq = b.pendingSeq
	if b.docHash != "" {
		s.seenDocs[b.report.SourceID] = b.docHash
	}
	b.rtx.Commit()

	s.logger.Info("batch committed",
		"source_id", b.report.SourceID,
		"seq", b.report.Seq,
		"mentions", b.report.MentionsResolved,
		"entities_created", b.report.EntitiesCreated,
		"relations_added", b.report.RelationsAdded,
		"issues", len(b.report.Issues))
	return b.report, nil
}

// Abort discards every staged mutation and releases write access. The graph
// is left exactly as before the batch began.
func (b *Batch) Abort() {
	if b.closed {
		return
	}
	b.closed = true
	b.rtx.Abort()
	b.store.logger.Debug("batch discarded", "source_id", b.report.SourceID)
	b.store.mu.Unlock()
}

// Ingest applies one document as an atomic batch: all of its mentions and
// relation hints commit together or not at all. Per-item problems are
// accumulated into the report; only a fatal error aborts the batch.
func (s *Store) Ingest(doc types.Document) (*types.BatchReport, error) {
	if len(doc.Mentions) == 0 {
		return nil, fmt.Errorf("ingest %q: %w", doc.SourceID, types.ErrEmptyDocument)
	}

	hash := doc.ContentHash()

	b := s.Begin(doc.SourceID)
	if doc.SourceID != "" && s.seenDocs[doc.SourceID] == hash {
		// Identical content already committed: merging again would double
		// every mention count and weight. Ingestion stays idempotent.
		b.Abort()
		s.logger.Info("duplicate document skipped", "source_id", doc.SourceID)
		return &types.BatchReport{SourceID: doc.SourceID, Seq: s.Seq(), Skipped: true}, nil
	}
	b.docHash = hash

	// First resolution per surface form wins; relation hints reference
	// mentions by surface form.
	bySurface := make(map[string]string, len(doc.Mentions))
	for _, m := range doc.Mentions {
		id, err := b.AddEntityMention(m.Text, m.TypeHint)
		if err != nil {
			b.Abort()
			return nil, fmt.Errorf("%w: %v", types.ErrBatchAborted, err)
		}
		key := strings.ToLower(strings.TrimSpace(m.Text))
		if _, seen := bySurface[key]; !seen {
			bySurface[key] = id
		}
	}

	for _, h := range doc.Relations {
		srcID, okA := bySurface[strings.ToLower(strings.TrimSpace(h.MentionA))]
		tgtID, okB := bySurface[strings.ToLower(strings.TrimSpace(h.MentionB))]
		if !okA || !okB {
			b.report.Record(types.IssueMalformedRelation, "",
				fmt.Sprintf("relation hint references unknown mention %q or %q", h.MentionA, h.MentionB))
			continue
		}
		if err := b.AddRelation(srcID, tgtID, h.Type, h.Confidence, h.Snippet); err != nil {
			b.Abort()
			return nil, fmt.Errorf("%w: %v", types.ErrBatchAborted, err)
		}
	}

	return b.Commit()
}
