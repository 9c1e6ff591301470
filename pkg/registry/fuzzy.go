package registry

import (
	"math"
	"regexp"
	"strings"
	"sync"
)

// Matching thresholds. FuzzyJaccardThreshold is deliberately high: a fuzzy
// hit merges two surface forms into one entity, and a false merge is much
// worse than a duplicate node.
const (
	FuzzyJaccardThreshold = 0.90
	SearchMatchThreshold  = 0.50
	nameEntropyThreshold  = 1.5
	minNameLength         = 6
	minTokenCount         = 2
)

var (
	wsRe         = regexp.MustCompile(`\s+`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9 ]`)
	possessiveRe = regexp.MustCompile(`['\x60]s\b`)
	shingleCache sync.Map
)

// normalizeExact lowercases a surface form and collapses whitespace so equal
// names map to the same key.
func normalizeExact(name string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(strings.ToLower(name), " "))
}

// normalizeLoose additionally strips possessives and punctuation, producing
// the key used for the second-stage match and for shingling.
func normalizeLoose(name string) string {
	n := normalizeExact(name)
	n = possessiveRe.ReplaceAllString(n, "")
	n = nonAlnumRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(wsRe.ReplaceAllString(n, " "))
}

// nameEntropy approximates text specificity with Shannon entropy over
// characters. Short or repetitive strings score low.
func nameEntropy(normalized string) float64 {
	text := strings.ReplaceAll(normalized, " ", "")
	if text == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, ch := range text {
		counts[ch]++
		total++
	}
	var entropy float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// eligibleForFuzzy filters out very short or low-entropy names that are
// unreliable for fuzzy matching.
func eligibleForFuzzy(normalized string) bool {
	if len(normalized) < minNameLength && len(strings.Fields(normalized)) < minTokenCount {
		return false
	}
	return nameEntropy(normalized) >= nameEntropyThreshold
}

// shingles builds 3-gram character shingles from a loosely normalized name.
func shingles(normalized string) []string {
	cleaned := strings.ReplaceAll(normalized, " ", "")
	if len(cleaned) < 3 {
		if cleaned == "" {
			return nil
		}
		return []string{cleaned}
	}
	out := make([]string, 0, len(cleaned)-2)
	for i := 0; i+3 <= len(cleaned); i++ {
		out = append(out, cleaned[i:i+3])
	}
	return out
}

// cachedShingles caches shingle sets per normalized name; the same surface
// forms recur on every document of a corpus.
func cachedShingles(normalized string) []string {
	if v, ok := shingleCache.Load(normalized); ok {
		return v.([]string)
	}
	s := shingles(normalized)
	shingleCache.Store(normalized, s)
	return s
}

// jaccard returns the Jaccard similarity of two shingle sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}
	inter := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
