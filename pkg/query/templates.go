package query

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/graphweave/graphweave/pkg/types"
)

// Intent names the recognized question families. The string values appear in
// metrics labels and API responses.
type Intent string

const (
	IntentStatistics     Intent = "statistics"
	IntentImportance     Intent = "importance"
	IntentPath           Intent = "path"
	IntentSimilarity     Intent = "similarity"
	IntentNeighbors      Intent = "neighbors"
	IntentEntitiesByType Intent = "entities_by_type"
	IntentEntityLookup   Intent = "entity_lookup"
	// IntentFallback marks answers produced by the keyword scan after no
	// template matched.
	IntentFallback Intent = "keyword_fallback"
)

// Template binds one compiled pattern to an intent. Capture groups carry the
// intent's parameters in order.
type Template struct {
	Intent  Intent
	Pattern *regexp.Regexp
}

// Match is the outcome of parsing one question.
type Match struct {
	Intent Intent
	// Params holds the pattern's capture groups, trimmed, in order.
	Params []string
}

// builtinTemplates is the ordered intent table. Order is part of the
// contract: the first matching template wins, so more specific patterns sit
// above the generic lookup catch-alls.
func builtinTemplates() []Template {
	mk := func(intent Intent, pattern string) Template {
		return Template{Intent: intent, Pattern: regexp.MustCompile(`(?i)` + pattern)}
	}
	return []Template{
		mk(IntentStatistics, `\b(?:statistics|stats|overview|how (?:big|large|many nodes|many entities|many edges|many relations))\b`),
		mk(IntentPath, `\b(?:path|connection|relationship|how (?:is|are) .+ (?:connected|related|linked))\b.*?\bbetween\s+(.+?)\s+and\s+(.+?)[?.!]?$`),
		mk(IntentPath, `\bhow (?:is|are)\s+(.+?)\s+(?:connected|related|linked)\s+to\s+(.+?)[?.!]?$`),
		mk(IntentImportance, `\b(?:most important|most central|most influential|top|key)\b.*\b(?:entities|nodes|concepts|people|topics)\b`),
		mk(IntentImportance, `\b(?:who|what)\s+(?:is|are)\s+(?:the\s+)?most\s+(?:important|central|influential)\b`),
		mk(IntentSimilarity, `\b(?:similar to|entities like|anything like|things like)\s+(.+?)[?.!]?$`),
		mk(IntentNeighbors, `\b(?:neighbors? of|who is connected to|what is connected to|what connects to|directly (?:connected|linked) to)\s+(.+?)[?.!]?$`),
		mk(IntentEntitiesByType, `\b(?:list|show|name)\b.*?\b(?:all\s+)?(people|persons|organi[sz]ations|companies|locations|places|technologies|dates|concepts)\b`),
		mk(IntentEntityLookup, `\b(?:who|what)\s+is\s+(.+?)[?.!]?$`),
		mk(IntentEntityLookup, `\btell me about\s+(.+?)[?.!]?$`),
	}
}

// typeAliases maps the surface forms of the entities-by-type intent onto the
// closed taxonomy.
var typeAliases = map[string]types.EntityType{
	"people":        types.EntityPerson,
	"persons":       types.EntityPerson,
	"organizations": types.EntityOrganization,
	"organisations": types.EntityOrganization,
	"companies":     types.EntityOrganization,
	"locations":     types.EntityLocation,
	"places":        types.EntityLocation,
	"technologies":  types.EntityTechnology,
	"dates":         types.EntityDate,
	"concepts":      types.EntityConcept,
}

// templateSpec is the YAML form of one custom template.
type templateSpec struct {
	Intent  string `yaml:"intent"`
	Pattern string `yaml:"pattern"`
}

// LoadCustomTemplates parses user-supplied templates from YAML. Custom
// templates are matched before the built-in table, letting deployments add
// domain phrasings without forking the engine.
func LoadCustomTemplates(data []byte) ([]Template, error) {
	var specs []templateSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse custom templates: %w", err)
	}
	valid := map[Intent]bool{
		IntentStatistics: true, IntentImportance: true, IntentPath: true,
		IntentSimilarity: true, IntentNeighbors: true,
		IntentEntitiesByType: true, IntentEntityLookup: true,
	}
	out := make([]Template, 0, len(specs))
	for i, spec := range specs {
		intent := Intent(spec.Intent)
		if !valid[intent] {
			return nil, fmt.Errorf("custom template %d: unknown intent %q", i, spec.Intent)
		}
		re, err := regexp.Compile(`(?i)` + spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("custom template %d: %w", i, err)
		}
		out = append(out, Template{Intent: intent, Pattern: re})
	}
	return out, nil
}

// parse runs the question through the ordered template table. The first
// match wins.
func parse(templates []Template, question string) (Match, bool) {
	for _, t := range templates {
		groups := t.Pattern.FindStringSubmatch(question)
		if groups == nil {
			continue
		}
		m := Match{Intent: t.Intent}
		for _, g := range groups[1:] {
			m.Params = append(m.Params, trimParam(g))
		}
		return m, true
	}
	return Match{}, false
}
