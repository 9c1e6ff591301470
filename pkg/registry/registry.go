// Package registry canonicalizes entity mentions into stable entity
// identities. It is the only component that mints entity ids, which makes id
// stability a structural property rather than a convention.
//
// Matching policy, in order: exact case-insensitive alias hit, normalized hit
// (punctuation and possessives stripped, whitespace collapsed), fuzzy 3-gram
// Jaccard match above a fixed high threshold with compatible type hints, and
// finally minting a fresh id.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/graphweave/graphweave/pkg/types"
)

// Resolution describes the outcome of resolving one mention.
type Resolution struct {
	EntityID string
	// Name is the canonical display name of the resolved entity.
	Name string
	Type types.EntityType
	// Created is true when the mention minted a new entity id.
	Created bool
	// AliasAdded is the lowercased surface form newly appended to the
	// entity's alias set, or empty when it was already known.
	AliasAdded string
	// TypeUpgraded is true when a generic fixed type was replaced by the
	// mention's more specific hint.
	TypeUpgraded bool
	// Conflict is non-nil when the type hint disagrees with the entity's
	// fixed type. The mention still resolves; the conflict is recorded.
	Conflict *types.Issue
}

type entry struct {
	name string
	typ  types.EntityType
}

// Registry holds the committed alias index. All mutation flows through a
// Txn so that an aborted ingestion batch leaves no trace.
type Registry struct {
	mu       sync.RWMutex
	byAlias  map[string]string   // lowercased surface form -> entity id
	byLoose  map[string][]string // loosely normalized form -> entity ids
	shingled map[string][]string // entity id -> shingles of canonical name
	entities map[string]entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byAlias:  make(map[string]string),
		byLoose:  make(map[string][]string),
		shingled: make(map[string][]string),
		entities: make(map[string]entry),
	}
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Begin opens a transaction layered over the committed state. Dropping the
// transaction without Commit discards everything it resolved.
func (r *Registry) Begin() *Txn {
	return &Txn{
		reg:      r,
		byAlias:  make(map[string]string),
		byLoose:  make(map[string][]string),
		shingled: make(map[string][]string),
		entities: make(map[string]entry),
	}
}

// Txn is an uncommitted overlay of registry mutations for one ingestion
// batch. It is not safe for concurrent use; batches are serialized by the
// store's writer lock.
type Txn struct {
	reg      *Registry
	byAlias  map[string]string
	byLoose  map[string][]string
	shingled map[string][]string
	entities map[string]entry
	closed   bool
}

// Resolve maps a mention surface form to an entity id, minting a new id when
// no existing entity matches.
func (t *Txn) Resolve(mention string, hint types.EntityType) (Resolution, error) {
	if t.closed {
		return Resolution{}, types.ErrBatchClosed
	}
	surface := strings.TrimSpace(mention)
	if surface == "" {
		return Resolution{}, fmt.Errorf("resolve: empty mention text")
	}

	exact := normalizeExact(surface)
	loose := normalizeLoose(surface)

	t.reg.mu.RLock()
	defer t.reg.mu.RUnlock()

	// (a) exact case-insensitive alias match.
	if id, ok := t.lookupAlias(exact); ok {
		return t.matched(id, exact, hint), nil
	}

	// (b) normalized match.
	if id, ok := t.lookupLoose(loose, hint); ok {
		return t.matched(id, exact, hint), nil
	}

	// (c) fuzzy match, gated on entropy, threshold, and type compatibility.
	if eligibleForFuzzy(loose) {
		if id, ok := t.lookupFuzzy(loose, hint); ok {
			return t.matched(id, exact, hint), nil
		}
	}

	// (d) mint a new entity.
	typ := hint
	if !typ.IsValid() {
		typ = types.EntityOther
	}
	id := uuid.NewString()
	t.entities[id] = entry{name: surface, typ: typ}
	t.byAlias[exact] = id
	t.byLoose[loose] = append(t.byLoose[loose], id)
	t.shingled[id] = cachedShingles(loose)
	return Resolution{
		EntityID:   id,
		Name:       surface,
		Type:       typ,
		Created:    true,
		AliasAdded: exact,
	}, nil
}

// Commit merges the overlay into the committed registry state.
func (t *Txn) Commit() {
	if t.closed {
		return
	}
	t.closed = true
	t.reg.mu.Lock()
	defer t.reg.mu.Unlock()
	for k, v := range t.byAlias {
		t.reg.byAlias[k] = v
	}
	for k, ids := range t.byLoose {
		for _, id := range ids {
			if !containsString(t.reg.byLoose[k], id) {
				t.reg.byLoose[k] = append(t.reg.byLoose[k], id)
			}
		}
	}
	for id, sh := range t.shingled {
		t.reg.shingled[id] = sh
	}
	for id, e := range t.entities {
		t.reg.entities[id] = e
	}
}

// Abort discards the overlay.
func (t *Txn) Abort() {
	t.closed = true
}

// matched assembles the resolution for a hit on an existing entity,
// appending the surface form as a fresh alias and recording any type
// conflict. Caller holds reg.mu read lock; overlay writes stay in the txn.
func (t *Txn) matched(id, exact string, hint types.EntityType) Resolution {
	e, inOverlay := t.entities[id]
	if !inOverlay {
		e = t.reg.entities[id]
	}

	res := Resolution{EntityID: id, Name: e.name, Type: e.typ}

	if _, known := t.lookupAliasRaw(exact); !known {
		t.byAlias[exact] = id
		loose := normalizeLoose(exact)
		if !containsString(t.byLoose[loose], id) && !containsString(t.reg.byLoose[loose], id) {
			t.byLoose[loose] = append(t.byLoose[loose], id)
		}
		res.AliasAdded = exact
	}

	if hint.IsValid() && hint != e.typ {
		if e.typ.Generic() && !hint.Generic() {
			// A specific hint upgrades a generic fixed type.
			e.typ = hint
			t.entities[id] = e
			res.Type = hint
			res.TypeUpgraded = true
		} else if !hint.Generic() {
			res.Conflict = &types.Issue{
				Kind:     types.IssueExtractionConflict,
				EntityID: id,
				Detail:   fmt.Sprintf("mention %q hinted %s but entity %q is fixed as %s", exact, hint, e.name, e.typ),
			}
		}
	}
	return res
}

func (t *Txn) lookupAlias(exact string) (string, bool) {
	return t.lookupAliasRaw(exact)
}

func (t *Txn) lookupAliasRaw(exact string) (string, bool) {
	if id, ok := t.byAlias[exact]; ok {
		return id, true
	}
	id, ok := t.reg.byAlias[exact]
	return id, ok
}

func (t *Txn) lookupLoose(loose string, hint types.EntityType) (string, bool) {
	ids := append(append([]string(nil), t.reg.byLoose[loose]...), t.byLoose[loose]...)
	if len(ids) == 0 {
		return "", false
	}
	// Prefer a type-compatible candidate; fall back to the first id so the
	// mention still resolves and the conflict gets recorded.
	for _, id := range ids {
		if t.typeOf(id).compatible(hint) {
			return id, true
		}
	}
	return ids[0], true
}

// lookupFuzzy scans candidates for the best Jaccard score over 3-gram
// shingles. Only type-compatible candidates are considered: a fuzzy merge
// across incompatible types is worse than a duplicate entity.
func (t *Txn) lookupFuzzy(loose string, hint types.EntityType) (string, bool) {
	sh := cachedShingles(loose)
	bestID := ""
	bestScore := 0.0
	scan := func(id string, candidate []string) {
		if !t.typeOf(id).compatible(hint) {
			return
		}
		score := jaccard(sh, candidate)
		if score > bestScore || (score == bestScore && bestID != "" && id < bestID) {
			bestScore = score
			bestID = id
		}
	}
	for id, candidate := range t.reg.shingled {
		scan(id, candidate)
	}
	for id, candidate := range t.shingled {
		scan(id, candidate)
	}
	if bestID != "" && bestScore >= FuzzyJaccardThreshold {
		return bestID, true
	}
	return "", false
}

type registeredType types.EntityType

func (t *Txn) typeOf(id string) registeredType {
	if e, ok := t.entities[id]; ok {
		return registeredType(e.typ)
	}
	return registeredType(t.reg.entities[id].typ)
}

func (rt registeredType) compatible(hint types.EntityType) bool {
	et := types.EntityType(rt)
	return hint == et || hint.Generic() || et.Generic()
}

// Lookup resolves a name against committed state without mutating anything.
// Used by the query engine for entity parameters.
func (r *Registry) Lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byAlias[normalizeExact(name)]; ok {
		return id, true
	}
	if ids := r.byLoose[normalizeLoose(name)]; len(ids) > 0 {
		return ids[0], true
	}
	return "", false
}

// BestMatch finds the closest committed entity for free text: exact, then
// substring containment, then shingle similarity above SearchMatchThreshold.
// Returns the match score for confidence grading.
func (r *Registry) BestMatch(text string) (string, float64, bool) {
	if id, ok := r.Lookup(text); ok {
		return id, 1, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	loose := normalizeLoose(text)
	if loose == "" {
		return "", 0, false
	}

	// Substring containment against canonical names, longest name wins.
	ids := make([]string, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	subID, subLen := "", 0
	for _, id := range ids {
		name := normalizeLoose(r.entities[id].name)
		if name == "" {
			continue
		}
		if strings.Contains(loose, name) || strings.Contains(name, loose) {
			if len(name) > subLen {
				subID, subLen = id, len(name)
			}
		}
	}
	if subID != "" {
		return subID, 0.75, true
	}

	sh := cachedShingles(loose)
	bestID, bestScore := "", 0.0
	for _, id := range ids {
		score := jaccard(sh, r.shingled[id])
		if score > bestScore {
			bestID, bestScore = id, score
		}
	}
	if bestID != "" && bestScore >= SearchMatchThreshold {
		return bestID, bestScore, true
	}
	return "", 0, false
}

// Rebuild resets the registry from imported entities. Used by the store's
// Import so the alias index stays consistent with the node arena.
func (r *Registry) Rebuild(entities []*types.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAlias = make(map[string]string)
	r.byLoose = make(map[string][]string)
	r.shingled = make(map[string][]string)
	r.entities = make(map[string]entry)
	for _, e := range entities {
		r.entities[e.ID] = entry{name: e.Name, typ: e.Type}
		loose := normalizeLoose(e.Name)
		r.shingled[e.ID] = cachedShingles(loose)
		for _, alias := range e.Aliases {
			exact := normalizeExact(alias)
			if _, taken := r.byAlias[exact]; !taken {
				r.byAlias[exact] = e.ID
			}
			al := normalizeLoose(alias)
			if !containsString(r.byLoose[al], e.ID) {
				r.byLoose[al] = append(r.byLoose[al], e.ID)
			}
		}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
