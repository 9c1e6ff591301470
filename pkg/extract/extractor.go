// Package extract turns raw text into structured ingestion documents using
// the prose NLP toolkit: named entities where the model recognises them,
// proper-noun sequences as a fallback, and sentence-level co-occurrence as
// relation hints. The graph core consumes the resulting documents and never
// touches raw text itself.
package extract

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/graphweave/graphweave/pkg/types"
)

// maxSnippetLen bounds evidence snippets taken from sentences.
const maxSnippetLen = 160

// nerLabels maps prose NER labels onto the entity taxonomy.
var nerLabels = map[string]types.EntityType{
	"PERSON": types.EntityPerson,
	"GPE":    types.EntityLocation,
}

// Extractor produces ingestion documents from raw text.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract runs NER and co-occurrence analysis over the text and returns one
// ingestion document. Mentions are deduplicated by surface form; every pair
// of mentions sharing a sentence yields one MENTIONED_WITH hint carrying the
// sentence as evidence.
func (e *Extractor) Extract(sourceID, text string) (*types.Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("extract %s: %w", sourceID, types.ErrEmptyDocument)
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", sourceID, err)
	}

	out := &types.Document{SourceID: sourceID}
	seen := make(map[string]int) // lowercased surface -> mention index

	addMention := func(surface string, typ types.EntityType, start int) {
		surface = strings.TrimSpace(surface)
		if len(surface) < 2 {
			return
		}
		key := strings.ToLower(surface)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = len(out.Mentions)
		m := types.Mention{Text: surface, TypeHint: typ}
		// A joined proper-noun run may not appear verbatim in the text
		// (intervening whitespace); those mentions carry no span.
		if start >= 0 {
			m.Span = [2]int{start, start + len(surface)}
		}
		out.Mentions = append(out.Mentions, m)
	}

	// Model-recognised named entities first; they carry the stronger hints.
	for _, ent := range doc.Entities() {
		typ, ok := nerLabels[ent.Label]
		if !ok {
			typ = types.EntityOther
		}
		addMention(ent.Text, typ, strings.Index(text, ent.Text))
	}

	// Proper-noun runs the NER model missed become noun-phrase mentions.
	for _, run := range properNounRuns(doc.Tokens()) {
		addMention(run, types.EntityNounPhrase, strings.Index(text, run))
	}

	if len(out.Mentions) == 0 {
		return nil, fmt.Errorf("extract %s: %w", sourceID, types.ErrEmptyDocument)
	}

	// Sentence co-occurrence: every mention pair sharing a sentence is a
	// weak association, evidenced by the sentence itself.
	for _, sent := range doc.Sentences() {
		lowered := strings.ToLower(sent.Text)
		var present []string
		for key := range seen {
			if strings.Contains(lowered, key) {
				present = append(present, key)
			}
		}
		if len(present) < 2 {
			continue
		}
		// Deterministic pair order regardless of map iteration.
		sort.Strings(present)
		snippet := sent.Text
		if len(snippet) > maxSnippetLen {
			snippet = snippet[:maxSnippetLen]
		}
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				out.Relations = append(out.Relations, types.RelationHint{
					MentionA:   out.Mentions[seen[present[i]]].Text,
					MentionB:   out.Mentions[seen[present[j]]].Text,
					Type:       types.RelationMentionedWith,
					Confidence: 1.0,
					Snippet:    snippet,
				})
			}
		}
	}

	e.logger.Debug("document extracted",
		"source_id", sourceID,
		"mentions", len(out.Mentions),
		"relation_hints", len(out.Relations),
	)
	return out, nil
}

// properNounRuns joins consecutive NNP/NNPS tokens into candidate phrases.
func properNounRuns(tokens []prose.Token) []string {
	var runs []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			runs = append(runs, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, tok := range tokens {
		if tok.Tag == "NNP" || tok.Tag == "NNPS" {
			cur = append(cur, tok.Text)
			continue
		}
		flush()
	}
	flush()
	return runs
}
