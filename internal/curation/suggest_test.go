package curation

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/answerd/internal/knowledge"
)

func newTestSuggester() *Suggester {
	return NewSuggester(slices.Values([]knowledge.Entry{
		{ID: "a", Answer: "A cloud is condensed water vapor.", Variants: []string{"what is a cloud", "define cloud"}},
		{ID: "b", Answer: "Rain falls from clouds when droplets grow heavy.", Variants: []string{"what is rain"}},
		{ID: "c", Answer: "Rust forms when iron meets water.", Variants: []string{"what is rust", "define rust"}},
	}), 0.8)
}

func TestSuggest_ByTopic(t *testing.T) {
	s := newTestSuggester()

	got := s.Suggest("rust", 0)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].EntryID)
	assert.Equal(t, "what is rust", got[0].Question)
	assert.Equal(t, "rust", got[0].Topic)
	assert.Equal(t, "Rust forms when iron meets water.", got[0].Preview)
}

func TestSuggest_CloseSpellings(t *testing.T) {
	s := newTestSuggester()

	// "clouds" reaches the "cloud" entry by edit similarity and the rain
	// entry by its own word.
	got := s.Suggest("clouds", 0)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].EntryID)
	assert.Equal(t, "cloud", got[0].Topic)
	assert.Equal(t, "b", got[1].EntryID)
	assert.Equal(t, "clouds", got[1].Topic)

	assert.Len(t, s.Suggest("clouds", 1), 1)
}

func TestSuggest_MoreMatchesRankFirst(t *testing.T) {
	s := newTestSuggester()
	got := s.Suggest("iron water", 0)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].EntryID)
	assert.Equal(t, "a", got[1].EntryID)
}

func TestSuggest_NothingToMatch(t *testing.T) {
	s := newTestSuggester()
	assert.Empty(t, s.Suggest("", 5))
	assert.Empty(t, s.Suggest("what is", 5))
	assert.Empty(t, s.Suggest("volcano", 5))
}

func TestTopics(t *testing.T) {
	s := newTestSuggester()
	assert.Equal(t, []Topic{{Word: "water", Entries: 2}, {Word: "when", Entries: 2}}, s.Topics(2))
	assert.NotContains(t, s.Topics(0), Topic{Word: "what", Entries: 3})
}

func TestPreview_Truncates(t *testing.T) {
	long := strings.Repeat("é", 150)
	p := preview(long)
	assert.Equal(t, previewRunes+3, utf8.RuneCountInString(p))
	assert.True(t, strings.HasSuffix(p, "..."))
}
