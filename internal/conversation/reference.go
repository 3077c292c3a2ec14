package conversation

import (
	"slices"
	"strings"

	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

// referents stand in for a topic mentioned earlier.
var referents = map[string]struct{}{
	"it": {}, "that": {}, "this": {}, "those": {}, "these": {},
	"them": {}, "they": {}, "one": {},
}

// maxFollowUpTokens bounds how long a referential follow-up can be. Longer
// utterances carry their own topic.
const maxFollowUpTokens = 8

// IsFollowUp reports whether the utterance names no topic of its own and
// points back at one instead: "what about that", "tell me more about it".
func IsFollowUp(utterance string) bool {
	tokens := textnorm.Tokens(utterance)
	if len(tokens) == 0 || len(tokens) > maxFollowUpTokens {
		return false
	}
	found := false
	for _, t := range tokens {
		if _, ok := referents[t]; ok {
			found = true
			continue
		}
		if !textnorm.IsFrameWord(t) {
			return false
		}
	}
	return found
}

// Topic returns the content words of an utterance, or nil when it has none
// of its own.
func Topic(utterance string) []string {
	if IsFollowUp(utterance) {
		return nil
	}
	var topic []string
	for _, t := range textnorm.Tokens(utterance) {
		if _, ok := referents[t]; ok || textnorm.IsFrameWord(t) {
			continue
		}
		topic = append(topic, t)
	}
	return topic
}

// ResolveReference rewrites a referential follow-up with the topic of the
// most recent turn that had one, returning the normalized rewrite. It
// returns false when the utterance is not a follow-up or no earlier turn
// names a topic.
func (c *Context) ResolveReference(utterance string) (string, bool) {
	if !IsFollowUp(utterance) {
		return "", false
	}
	turns := c.Recent()
	var topic []string
	for _, t := range slices.Backward(turns) {
		if topic = Topic(t.Utterance); len(topic) > 0 {
			break
		}
	}
	if len(topic) == 0 {
		return "", false
	}

	tokens := textnorm.Tokens(utterance)
	out := make([]string, 0, len(tokens)+len(topic))
	replaced := false
	for _, t := range tokens {
		if _, ok := referents[t]; ok {
			if !replaced {
				out = append(out, topic...)
				replaced = true
			}
			continue
		}
		out = append(out, t)
	}
	return strings.Join(out, " "), true
}
