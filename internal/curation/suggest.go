package curation

import (
	"cmp"
	"iter"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/matcher"
	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

const (
	minTopicRunes = 4
	previewRunes  = 100
)

// wordSimilarity compares single words by edit similarity alone. With the
// matcher's default weights two different words never pass 0.8.
var wordSimilarity = matcher.Config{EditWeight: 1}

// Suggestion is a question the store can already answer.
type Suggestion struct {
	EntryID  string
	Question string
	// Topic is the indexed word that matched.
	Topic   string
	Preview string
}

// Topic is an indexed word and the number of entries that mention it.
type Topic struct {
	Word    string
	Entries int
}

// Suggester indexes entries by the content words of their answers and
// questions.
type Suggester struct {
	entries   []knowledge.Entry
	index     map[string][]int
	threshold float64
}

// NewSuggester builds the topic index over a snapshot of entries. Words
// whose edit similarity to the requested topic reaches threshold count as
// matches.
func NewSuggester(entries iter.Seq[knowledge.Entry], threshold float64) *Suggester {
	s := &Suggester{index: map[string][]int{}, threshold: threshold}
	for e := range entries {
		if len(e.Variants) == 0 {
			continue
		}
		idx := len(s.entries)
		s.entries = append(s.entries, e)
		for w := range topicWords(e) {
			s.index[w] = append(s.index[w], idx)
		}
	}
	return s
}

func topicWords(e knowledge.Entry) map[string]struct{} {
	words := map[string]struct{}{}
	add := func(text string) {
		for _, t := range textnorm.Tokens(text) {
			if utf8.RuneCountInString(t) >= minTopicRunes && !textnorm.IsFrameWord(t) {
				words[t] = struct{}{}
			}
		}
	}
	add(e.Answer)
	for _, v := range e.Variants {
		add(v)
	}
	return words
}

// Suggest returns up to limit canonical questions of entries related to
// topic. Entries matching more topic words rank first, then entries in
// store order. A non-positive limit means no limit.
func (s *Suggester) Suggest(topic string, limit int) []Suggestion {
	terms := textnorm.Tokens(topic)
	if len(terms) == 0 {
		return nil
	}

	hits := map[int]int{}
	matched := map[int]string{}
	for word, idxs := range s.index {
		if !s.related(word, terms) {
			continue
		}
		for _, i := range idxs {
			hits[i]++
			if prev, ok := matched[i]; !ok || word < prev {
				matched[i] = word
			}
		}
	}

	ranked := make([]int, 0, len(hits))
	for i := range hits {
		ranked = append(ranked, i)
	}
	slices.SortFunc(ranked, func(a, b int) int {
		if c := cmp.Compare(hits[b], hits[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]Suggestion, 0, len(ranked))
	for _, i := range ranked {
		e := s.entries[i]
		out = append(out, Suggestion{
			EntryID:  e.ID,
			Question: e.Question(),
			Topic:    matched[i],
			Preview:  preview(e.Answer),
		})
	}
	return out
}

func (s *Suggester) related(word string, terms []string) bool {
	for _, t := range terms {
		if textnorm.IsFrameWord(t) {
			continue
		}
		if strings.Contains(word, t) && utf8.RuneCountInString(t) >= 3 {
			return true
		}
		if wordSimilarity.Similarity([]string{t}, []string{word}) >= s.threshold {
			return true
		}
	}
	return false
}

// Topics returns the n words mentioned by the most entries, ties broken
// alphabetically. A non-positive n returns every word.
func (s *Suggester) Topics(n int) []Topic {
	out := make([]Topic, 0, len(s.index))
	for w, idxs := range s.index {
		out = append(out, Topic{Word: w, Entries: len(idxs)})
	}
	slices.SortFunc(out, func(a, b Topic) int {
		if c := cmp.Compare(b.Entries, a.Entries); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func preview(answer string) string {
	answer = strings.TrimSpace(answer)
	if utf8.RuneCountInString(answer) <= previewRunes {
		return answer
	}
	r := []rune(answer)
	return string(r[:previewRunes]) + "..."
}
