// Package static is the last-resort fallback: canned replies chosen by
// keyword from a TOML pattern file. It never fails and its reply depends
// only on the utterance.
package static

import (
	_ "embed"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

//go:embed patterns.toml
var defaultPatterns []byte

// ErrInvalidPatterns is returned for a pattern file that does not decode or
// has no discourse replies.
var ErrInvalidPatterns = errors.New("invalid static patterns")

// lastResort is returned if a pattern set somehow has nothing to say.
const lastResort = "I'm not sure how to respond to that yet."

// Group maps trigger phrases to alternative replies.
type Group struct {
	Keys    []string `toml:"keys"`
	Replies []string `toml:"replies"`
}

// Patterns is the decoded pattern file.
type Patterns struct {
	Predefined []Group  `toml:"predefined"`
	Emotional  []Group  `toml:"emotional"`
	Discourse  []string `toml:"discourse"`
	Generic    []string `toml:"generic"`
}

// Responder answers any utterance.
type Responder interface {
	Respond(utterance string) string
}

// Patterns implements Responder.
var _ Responder = (*Patterns)(nil)

// Default returns the embedded pattern set.
func Default() *Patterns {
	p, err := Parse(defaultPatterns)
	if err != nil {
		panic(fmt.Sprintf("embedded static patterns: %v", err))
	}
	return p
}

// Load reads a pattern file. An empty path returns Default.
func Load(path string) (*Patterns, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading static patterns: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a pattern file.
func Parse(data []byte) (*Patterns, error) {
	var p Patterns
	md, err := toml.Decode(string(data), &p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatterns, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidPatterns, undecoded)
	}
	if len(p.Discourse) == 0 {
		return nil, fmt.Errorf("%w: at least one discourse reply is required", ErrInvalidPatterns)
	}
	for _, groups := range [][]Group{p.Predefined, p.Emotional} {
		for i := range groups {
			if len(groups[i].Replies) == 0 {
				return nil, fmt.Errorf("%w: group %v has no replies", ErrInvalidPatterns, groups[i].Keys)
			}
			for j, k := range groups[i].Keys {
				groups[i].Keys[j] = textnorm.Normalize(k)
			}
		}
	}
	return &p, nil
}

// Respond picks a reply. Predefined phrases are tried first, then
// emotional triggers, then the discourse replies.
func (p *Patterns) Respond(utterance string) string {
	normalized := textnorm.Normalize(utterance)
	padded := " " + normalized + " "

	for _, groups := range [][]Group{p.Predefined, p.Emotional} {
		for _, g := range groups {
			for _, k := range g.Keys {
				if k != "" && strings.Contains(padded, " "+k+" ") {
					return pick(g.Replies, normalized)
				}
			}
		}
	}
	if len(p.Discourse) == 0 {
		return lastResort
	}
	return pick(p.Discourse, normalized)
}

// IsGeneric reports whether answer is one of the "no answer" replies.
func (p *Patterns) IsGeneric(answer string) bool {
	n := textnorm.Normalize(answer)
	for _, g := range p.Generic {
		if textnorm.Normalize(g) == n {
			return true
		}
	}
	return false
}

// pick chooses deterministically among alternatives by hashing the key.
func pick(options []string, key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return options[h.Sum32()%uint32(len(options))]
}
