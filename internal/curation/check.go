// Package curation reviews the knowledge store offline: a quality report
// for whoever maintains the answers and a topic index for suggesting
// questions the store can already answer.
package curation

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/matcher"
	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

// Kind names one class of finding.
type Kind string

const (
	KindEmptyAnswer   Kind = "empty_answer"
	KindShortAnswer   Kind = "short_answer"
	KindLongAnswer    Kind = "long_answer"
	KindPlaceholder   Kind = "placeholder"
	KindShortVariant  Kind = "short_variant"
	KindSingleVariant Kind = "single_variant"
	KindNearDuplicate Kind = "near_duplicate"
)

// Severity orders kinds for display. Higher is worse.
func (k Kind) Severity() int {
	switch k {
	case KindEmptyAnswer, KindNearDuplicate:
		return 3
	case KindShortAnswer, KindShortVariant, KindPlaceholder:
		return 2
	case KindLongAnswer:
		return 1
	default:
		return 0
	}
}

// Issue is one finding about one entry.
type Issue struct {
	EntryID string
	Kind    Kind
	Detail  string
	// OtherID is the second entry of a near duplicate.
	OtherID string
}

// Report is the result of Check.
type Report struct {
	Entries  int
	Variants int
	Issues   []Issue
	// Score is 100 minus weighted deductions for the share of entries with
	// duplicates, invalid content and quality problems. Never below 0.
	Score float64
}

// Count returns the number of issues of kind k.
func (r Report) Count(k Kind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == k {
			n++
		}
	}
	return n
}

// CheckConfig holds the report thresholds.
type CheckConfig struct {
	MinAnswerRunes  int
	MaxAnswerRunes  int
	MinVariantRunes int
	// DuplicateThreshold is the similarity at which variants of two
	// different entries are reported as near duplicates.
	DuplicateThreshold float64
	Matcher            matcher.Config
}

// DefaultCheckConfig uses the matcher's fuzzy threshold for duplicates, so
// every reported pair is one a fuzzy lookup could confuse.
func DefaultCheckConfig(mc matcher.Config) CheckConfig {
	return CheckConfig{
		MinAnswerRunes:     10,
		MaxAnswerRunes:     500,
		MinVariantRunes:    3,
		DuplicateThreshold: mc.FuzzyThreshold,
		Matcher:            mc,
	}
}

var placeholderWords = map[string]struct{}{"todo": {}, "tbd": {}, "xxx": {}, "fixme": {}}

type variantRef struct {
	entry   string
	variant string
	tokens  []string
}

// Check inspects every entry and returns the findings ordered by severity,
// then by entry order.
func Check(entries iter.Seq[knowledge.Entry], cfg CheckConfig) Report {
	var (
		r     Report
		order = map[string]int{}
		refs  []variantRef
	)

	for e := range entries {
		order[e.ID] = r.Entries
		r.Entries++
		r.Variants += len(e.Variants)
		r.Issues = append(r.Issues, checkAnswer(e, cfg)...)

		if len(e.Variants) == 1 {
			r.Issues = append(r.Issues, Issue{EntryID: e.ID, Kind: KindSingleVariant, Detail: fmt.Sprintf("only %q reaches this answer", e.Variants[0])})
		}
		for _, v := range e.Variants {
			if utf8.RuneCountInString(strings.TrimSpace(v)) < cfg.MinVariantRunes {
				r.Issues = append(r.Issues, Issue{EntryID: e.ID, Kind: KindShortVariant, Detail: fmt.Sprintf("question %q is too short", v)})
			}
			refs = append(refs, variantRef{entry: e.ID, variant: v, tokens: textnorm.ContentTokens(textnorm.Tokens(v))})
		}
	}

	r.Issues = append(r.Issues, nearDuplicates(refs, cfg)...)

	slices.SortStableFunc(r.Issues, func(a, b Issue) int {
		if c := cmp.Compare(b.Kind.Severity(), a.Kind.Severity()); c != 0 {
			return c
		}
		return cmp.Compare(order[a.EntryID], order[b.EntryID])
	})
	r.Score = score(r)
	return r
}

func checkAnswer(e knowledge.Entry, cfg CheckConfig) []Issue {
	answer := strings.TrimSpace(e.Answer)
	n := utf8.RuneCountInString(answer)
	if n == 0 {
		return []Issue{{EntryID: e.ID, Kind: KindEmptyAnswer, Detail: "answer is empty"}}
	}

	var out []Issue
	switch {
	case n < cfg.MinAnswerRunes:
		out = append(out, Issue{EntryID: e.ID, Kind: KindShortAnswer, Detail: fmt.Sprintf("answer has %d characters", n)})
	case cfg.MaxAnswerRunes > 0 && n > cfg.MaxAnswerRunes:
		out = append(out, Issue{EntryID: e.ID, Kind: KindLongAnswer, Detail: fmt.Sprintf("answer has %d characters", n)})
	}

	if strings.Contains(answer, "???") {
		out = append(out, Issue{EntryID: e.ID, Kind: KindPlaceholder, Detail: `answer contains "???"`})
	} else {
		for _, t := range textnorm.Tokens(answer) {
			if _, ok := placeholderWords[t]; ok {
				out = append(out, Issue{EntryID: e.ID, Kind: KindPlaceholder, Detail: fmt.Sprintf("answer contains %q", t)})
				break
			}
		}
	}
	return out
}

// nearDuplicates compares every pair of variants that belong to different
// entries. One issue is reported per entry pair, for the closest variants.
func nearDuplicates(refs []variantRef, cfg CheckConfig) []Issue {
	type pair struct{ a, b string }
	type found struct {
		issue Issue
		score float64
	}
	best := map[pair]found{}
	var seen []pair

	for i := range refs {
		for j := i + 1; j < len(refs); j++ {
			a, b := refs[i], refs[j]
			if a.entry == b.entry {
				continue
			}
			s := cfg.Matcher.Similarity(a.tokens, b.tokens)
			if s < cfg.DuplicateThreshold {
				continue
			}
			p := pair{a.entry, b.entry}
			prev, ok := best[p]
			if !ok {
				seen = append(seen, p)
			} else if prev.score >= s {
				continue
			}
			best[p] = found{
				issue: Issue{
					EntryID: a.entry,
					OtherID: b.entry,
					Kind:    KindNearDuplicate,
					Detail:  fmt.Sprintf("%q and %q score %.2f", a.variant, b.variant, s),
				},
				score: s,
			}
		}
	}

	out := make([]Issue, 0, len(seen))
	for _, p := range seen {
		out = append(out, best[p].issue)
	}
	return out
}

// score deducts up to 20 points for entries in near duplicates, 30 for
// invalid entries and 15 for answer quality problems, each scaled by the
// share of affected entries.
func score(r Report) float64 {
	if r.Entries == 0 {
		return 100
	}
	dup, invalid, quality := map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, i := range r.Issues {
		switch i.Kind {
		case KindNearDuplicate:
			dup[i.EntryID] = true
			dup[i.OtherID] = true
		case KindEmptyAnswer, KindShortAnswer, KindShortVariant:
			invalid[i.EntryID] = true
		case KindLongAnswer, KindPlaceholder:
			quality[i.EntryID] = true
		}
	}
	n := float64(r.Entries)
	s := 100 - float64(len(dup))/n*20 - float64(len(invalid))/n*30 - float64(len(quality))/n*15
	return max(s, 0)
}
