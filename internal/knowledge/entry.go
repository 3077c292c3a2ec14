package knowledge

import (
	"slices"
	"time"
)

// Source records how an entry came to exist.
type Source string

const (
	SourceAuthored Source = "authored"
	SourceLearned  Source = "learned"
	SourceImported Source = "imported"
)

// Entry is one authoritative answer and the question phrasings that lead to
// it. Variants[0] is the canonical question used for display.
//
// Entries handed out by a Store are snapshots; modifying them has no effect
// on the store, and Variants must be treated as read-only.
type Entry struct {
	ID        string
	Answer    string
	Variants  []string
	Source    Source
	CreatedAt time.Time
}

// Question returns the canonical question of the entry.
func (e *Entry) Question() string {
	if len(e.Variants) == 0 {
		return ""
	}
	return e.Variants[0]
}

// HasVariant reports whether v is one of the entry's variants, compared
// textually (not normalized).
func (e *Entry) HasVariant(v string) bool {
	return slices.Contains(e.Variants, v)
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Variants = slices.Clone(e.Variants)
	return &c
}
