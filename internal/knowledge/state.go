package knowledge

import (
	"slices"

	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

// state is one immutable generation of the store's contents. Mutations work
// on a copy (see fork) and replace the generation only after the copy has
// been persisted, so a failed write leaves the live state untouched.
type state struct {
	entries []*Entry
	byID    map[string]*Entry
	index   map[string]*Entry // normalized variant -> owner
}

func newState() *state {
	return &state{
		byID:  make(map[string]*Entry),
		index: make(map[string]*Entry),
	}
}

// fork returns a shallow copy. Entries are shared until editable is called.
func (s *state) fork() *state {
	f := &state{
		entries: slices.Clone(s.entries),
		byID:    make(map[string]*Entry, len(s.byID)),
		index:   make(map[string]*Entry, len(s.index)),
	}
	for k, v := range s.byID {
		f.byID[k] = v
	}
	for k, v := range s.index {
		f.index[k] = v
	}
	return f
}

func (s *state) owner(variant string) *Entry {
	return s.index[textnorm.Normalize(variant)]
}

// editable swaps e for a private copy that may be modified freely.
func (s *state) editable(e *Entry) *Entry {
	c := e.clone()
	if i := slices.Index(s.entries, e); i >= 0 {
		s.entries[i] = c
	}
	s.byID[c.ID] = c
	for _, v := range c.Variants {
		s.index[textnorm.Normalize(v)] = c
	}
	return c
}

func (s *state) add(e *Entry) {
	s.entries = append(s.entries, e)
	s.byID[e.ID] = e
	for _, v := range e.Variants {
		s.index[textnorm.Normalize(v)] = e
	}
}

// attach appends variant to an editable entry and indexes it.
func (s *state) attach(e *Entry, variant string) {
	e.Variants = append(e.Variants, variant)
	s.index[textnorm.Normalize(variant)] = e
}

// detach removes every variant of e that normalizes to key. An entry left
// without variants is dropped from the store.
func (s *state) detach(e *Entry, key string) {
	e = s.editable(e)
	e.Variants = slices.DeleteFunc(e.Variants, func(v string) bool {
		return textnorm.Normalize(v) == key
	})
	if s.index[key] == e {
		delete(s.index, key)
	}
	if len(e.Variants) == 0 {
		s.entries = slices.DeleteFunc(s.entries, func(x *Entry) bool { return x == e })
		delete(s.byID, e.ID)
	}
}

func (s *state) variantCount() int {
	n := 0
	for _, e := range s.entries {
		n += len(e.Variants)
	}
	return n
}
