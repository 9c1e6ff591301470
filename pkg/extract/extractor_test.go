package extract

import (
	"strings"
	"testing"

	"github.com/jdkato/prose/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave/pkg/types"
)

func TestExtractEmptyText(t *testing.T) {
	e := New(nil)
	_, err := e.Extract("doc-1", "   \n\t  ")
	assert.ErrorIs(t, err, types.ErrEmptyDocument)
}

func TestExtractFindsMentions(t *testing.T) {
	e := New(nil)
	doc, err := e.Extract("doc-1", "Elon Musk founded Tesla in California. Tesla builds electric cars.")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", doc.SourceID)
	require.NotEmpty(t, doc.Mentions)

	surfaces := make(map[string]bool)
	for _, m := range doc.Mentions {
		surfaces[strings.ToLower(m.Text)] = true
	}
	assert.True(t, surfaces["tesla"], "mentions: %v", surfaces)
	assert.True(t, surfaces["elon musk"] || surfaces["elon"], "mentions: %v", surfaces)
}

func TestExtractDeduplicatesMentions(t *testing.T) {
	e := New(nil)
	doc, err := e.Extract("doc-1", "Tesla grew fast. Tesla hired engineers. Tesla expanded abroad.")
	require.NoError(t, err)

	count := 0
	for _, m := range doc.Mentions {
		if strings.EqualFold(m.Text, "Tesla") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractCooccurrenceHints(t *testing.T) {
	e := New(nil)
	doc, err := e.Extract("doc-1", "Elon Musk founded Tesla. Berlin is far away.")
	require.NoError(t, err)
	require.NotEmpty(t, doc.Relations)

	// Mentions sharing the first sentence are linked; Berlin sits alone in
	// its own sentence and gets no hint.
	for _, h := range doc.Relations {
		assert.Equal(t, types.RelationMentionedWith, h.Type)
		assert.Equal(t, 1.0, h.Confidence)
		assert.NotEmpty(t, h.Snippet)
		assert.NotContains(t, strings.ToLower(h.MentionA), "berlin")
		assert.NotContains(t, strings.ToLower(h.MentionB), "berlin")
	}
}

func TestExtractHintsReferenceMentions(t *testing.T) {
	e := New(nil)
	doc, err := e.Extract("doc-1", "Marie Curie worked with Pierre Curie in Paris.")
	require.NoError(t, err)

	surfaces := make(map[string]bool)
	for _, m := range doc.Mentions {
		surfaces[strings.ToLower(m.Text)] = true
	}
	for _, h := range doc.Relations {
		assert.True(t, surfaces[strings.ToLower(h.MentionA)], "hint endpoint %q not among mentions", h.MentionA)
		assert.True(t, surfaces[strings.ToLower(h.MentionB)], "hint endpoint %q not among mentions", h.MentionB)
	}
}

func TestExtractSnippetBounded(t *testing.T) {
	e := New(nil)
	long := "Tesla and SpaceX " + strings.Repeat("kept growing and growing ", 20) + "together."
	doc, err := e.Extract("doc-1", long)
	require.NoError(t, err)
	for _, h := range doc.Relations {
		assert.LessOrEqual(t, len(h.Snippet), maxSnippetLen)
	}
}

func TestExtractSpansStayInBounds(t *testing.T) {
	e := New(nil)
	// The line break splits "Elon Musk" so the joined run never appears
	// verbatim in the text; its mention carries an empty span instead of a
	// negative one.
	text := "Elon\nMusk founded Tesla. Tesla builds cars."
	doc, err := e.Extract("doc-1", text)
	require.NoError(t, err)

	for _, m := range doc.Mentions {
		assert.GreaterOrEqual(t, m.Span[0], 0, "mention %q", m.Text)
		assert.GreaterOrEqual(t, m.Span[1], m.Span[0], "mention %q", m.Text)
		assert.LessOrEqual(t, m.Span[1], len(text), "mention %q", m.Text)
	}
}

func TestProperNounRuns(t *testing.T) {
	runs := properNounRuns([]prose.Token{
		{Text: "Elon", Tag: "NNP"},
		{Text: "Musk", Tag: "NNP"},
		{Text: "founded", Tag: "VBD"},
		{Text: "Tesla", Tag: "NNP"},
		{Text: ".", Tag: "."},
	})
	assert.Equal(t, []string{"Elon Musk", "Tesla"}, runs)
}
