// Package textnorm turns free-form utterances into the normalized form used
// as the knowledge index key, and into the token sets the fuzzy matcher
// compares.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// frameWords are the words of question frames ("what is X", "tell me about
// X", "X definition") that carry no topic. They are ignored when comparing
// content so that two framings of the same topic score alike.
var frameWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"what": {}, "whats": {}, "is": {}, "are": {}, "was": {},
	"tell": {}, "me": {}, "about": {}, "more": {},
	"explain": {}, "define": {}, "definition": {}, "describe": {}, "meaning": {},
	"please": {}, "can": {}, "could": {}, "you": {}, "do": {}, "does": {},
	"know": {}, "of": {}, "give": {}, "some": {}, "info": {}, "information": {}, "on": {},
}

// foldMarks decomposes characters and drops combining marks: "café" -> "cafe".
func foldMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lowercases s, folds accents, removes punctuation, and collapses
// whitespace. Apostrophes are dropped rather than split on, so "what's"
// becomes "whats".
func Normalize(s string) string {
	s = foldMarks(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r == '\'' || r == '’' || r == '`':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		default:
			space = true
		}
	}
	return b.String()
}

// Tokens returns the words of the normalized form of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// ContentTokens drops frame words from tokens. If nothing would remain, the
// input is returned unchanged so that "what is it" still has something to
// compare.
func ContentTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := frameWords[t]; !ok {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return tokens
	}
	return out
}

// IsFrameWord reports whether w is a question-frame word.
func IsFrameWord(w string) bool {
	_, ok := frameWords[w]
	return ok
}

// TitleName trims and collapses whitespace in a personal name and title-cases
// each word: "  aDA   lovelace " -> "Ada Lovelace".
func TitleName(s string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(s), " "))
}
