// Package knowledge owns the question/answer knowledge file: an in-memory
// exact index keyed by normalized variant, plus atomic whole-file
// persistence on every mutation.
package knowledge

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/answerd/internal/textnorm"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the knowledge store. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	path     string
	st       *state
	degraded bool
	lastSum  [sha256.Size]byte

	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func newStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		st:     newState(),
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the knowledge file at path. A missing file yields an empty
// store that creates the file on first write. An unreadable or undecodable
// file yields a *StoreIOError; the caller is expected to continue with
// NewMemoryStore.
func Open(path string, opts ...Option) (*Store, error) {
	s := newStore(path, opts...)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemoryStore returns a store that never touches disk.
func NewMemoryStore(opts ...Option) *Store {
	s := newStore("", opts...)
	s.publish()
	return s
}

// Reload replaces the in-memory contents with the file's. It is a no-op for
// a memory store.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = nil, nil
	}
	if err != nil {
		return &StoreIOError{Op: "read", Path: s.path, Err: err}
	}

	recs, err := decode(data)
	if err != nil {
		return &StoreIOError{Op: "decode", Path: s.path, Err: fmt.Errorf("%w: %v", ErrCorrupted, err)}
	}
	st := s.build(recs)

	s.mu.Lock()
	s.st = st
	s.lastSum = sha256.Sum256(data)
	s.mu.Unlock()

	s.publish()
	s.logger.Debug("knowledge loaded",
		zap.String("path", s.path),
		zap.Int("entries", len(st.entries)),
		zap.Int("variants", st.variantCount()))
	return nil
}

// build indexes decoded records. A variant claimed by several records goes
// to the last one, matching a hand-edited file read top to bottom.
func (s *Store) build(recs []record) *state {
	st := newState()
	for i, r := range recs {
		answer := strings.TrimSpace(string(r.Answer))
		variants := cleanVariants(r.Question)
		if answer == "" || len(variants) == 0 {
			s.logger.Warn("skipping knowledge record without answer or question", zap.Int("record", i))
			continue
		}

		e := &Entry{
			ID:       r.ID,
			Answer:   answer,
			Variants: variants,
			Source:   r.Source,
		}
		if e.ID == "" || st.byID[e.ID] != nil {
			e.ID = s.newID()
		}
		if e.Source == "" {
			e.Source = SourceAuthored
		}
		if r.CreatedAt != nil {
			e.CreatedAt = *r.CreatedAt
		}

		for _, v := range variants {
			key := textnorm.Normalize(v)
			if prev := st.index[key]; prev != nil {
				s.logger.Warn("duplicate knowledge variant; later record wins",
					zap.String("variant", v),
					zap.String("previous_entry", prev.ID))
				st.detach(prev, key)
			}
		}
		st.add(e)
	}
	return st
}

// cleanVariants trims variants and drops empty ones and exact repeats.
func cleanVariants(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || textnorm.Normalize(v) == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// LookupExact returns the entry owning the normalized query, or nil.
func (s *Store) LookupExact(normalized string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.st.index[normalized]; e != nil {
		c := *e
		return &c
	}
	return nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.st.byID[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// All iterates a snapshot of the entries in file order. The sequence may be
// ranged over any number of times; each pass sees the snapshot taken when
// All was called.
func (s *Store) All() iter.Seq[Entry] {
	s.mu.RLock()
	entries := s.st.entries
	s.mu.RUnlock()

	return func(yield func(Entry) bool) {
		for _, e := range entries {
			if !yield(*e) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.entries)
}

// TeachOption adjusts a Teach or Reteach call.
type TeachOption func(*Entry)

// WithSource sets the Source of a newly created entry.
func WithSource(src Source) TeachOption {
	return func(e *Entry) { e.Source = src }
}

// Teach creates an entry for answer reachable by variants.
//
// If any variant already belongs to an entry with a different answer, Teach
// fails with a *DuplicateVariantError. Variants that already belong to an
// entry with the same answer are left in place and the remaining variants
// are added to that entry, so teaching the same pair twice changes nothing.
func (s *Store) Teach(answer string, variants []string, opts ...TeachOption) (*Entry, error) {
	answer = strings.TrimSpace(answer)
	variants = cleanVariants(variants)
	if answer == "" || len(variants) == 0 {
		return nil, fmt.Errorf("%w: answer and at least one question are required", ErrInvalidEntry)
	}

	var result *Entry
	err := s.mutate(func(st *state) (bool, error) {
		var target *Entry
		var fresh []string
		for _, v := range variants {
			owner := st.owner(v)
			switch {
			case owner == nil:
				fresh = append(fresh, v)
			case owner.Answer != answer:
				return false, &DuplicateVariantError{Variant: v, OwnerID: owner.ID}
			case target == nil:
				target = owner
			}
		}

		if target == nil {
			e := &Entry{
				ID:        s.newID(),
				Answer:    answer,
				Variants:  fresh,
				Source:    SourceAuthored,
				CreatedAt: s.now().UTC(),
			}
			for _, opt := range opts {
				opt(e)
			}
			st.add(e)
			result = e
			return true, nil
		}

		if len(fresh) == 0 {
			result = target
			return false, nil
		}
		target = st.editable(target)
		for _, v := range fresh {
			st.attach(target, v)
		}
		result = target
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result.clone(), nil
}

// Reteach binds variants to answer, overriding whatever they were bound to
// before. The entry owning the first already-known variant receives the new
// answer; variants owned by other entries move to it. With no known variant
// this is the same as Teach.
func (s *Store) Reteach(answer string, variants []string, opts ...TeachOption) (*Entry, error) {
	answer = strings.TrimSpace(answer)
	variants = cleanVariants(variants)
	if answer == "" || len(variants) == 0 {
		return nil, fmt.Errorf("%w: answer and at least one question are required", ErrInvalidEntry)
	}

	var result *Entry
	err := s.mutate(func(st *state) (bool, error) {
		var target *Entry
		for _, v := range variants {
			if owner := st.owner(v); owner != nil {
				target = st.editable(owner)
				break
			}
		}
		if target == nil {
			target = &Entry{
				ID:        s.newID(),
				Source:    SourceAuthored,
				CreatedAt: s.now().UTC(),
			}
			for _, opt := range opts {
				opt(target)
			}
			st.add(target)
		}
		target.Answer = answer

		for _, v := range variants {
			key := textnorm.Normalize(v)
			owner := st.index[key]
			if owner != nil && owner != target {
				st.detach(owner, key)
			}
			if !target.HasVariant(v) {
				st.attach(target, v)
			}
		}
		result = target
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result.clone(), nil
}

// TeachOrDegrade runs Teach, or Reteach when replace is set. If the
// knowledge file cannot be written, the store is degraded to memory-only
// and the teach is repeated there; degraded reports that case and err is
// nil when the in-memory teach succeeds.
func (s *Store) TeachOrDegrade(replace bool, answer string, variants []string, opts ...TeachOption) (e *Entry, degraded bool, err error) {
	teach := s.Teach
	if replace {
		teach = s.Reteach
	}
	e, err = teach(answer, variants, opts...)
	if !IsIOError(err) {
		return e, false, err
	}
	s.logger.Warn("knowledge file write failed; continuing in memory", zap.Error(err))
	s.Degrade()
	e, err = teach(answer, variants, opts...)
	return e, true, err
}

// AddVariant adds a phrasing to an existing entry. It returns false without
// writing when the entry already has that exact phrasing. A variant that
// normalizes to a key owned by another entry is refused.
func (s *Store) AddVariant(id, variant string) (bool, error) {
	variant = strings.TrimSpace(variant)
	if variant == "" || textnorm.Normalize(variant) == "" {
		return false, fmt.Errorf("%w: empty variant", ErrInvalidEntry)
	}

	added := false
	err := s.mutate(func(st *state) (bool, error) {
		e, ok := st.byID[id]
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		if owner := st.owner(variant); owner != nil && owner.ID != id {
			return false, &DuplicateVariantError{Variant: variant, OwnerID: owner.ID}
		}
		if e.HasVariant(variant) {
			return false, nil
		}
		st.attach(st.editable(e), variant)
		added = true
		return true, nil
	})
	return added, err
}

// mutate runs fn against a fork of the current state. When fn reports a
// change, the fork is persisted and only then published.
func (s *Store) mutate(fn func(*state) (bool, error)) error {
	s.mu.Lock()
	next := s.st.fork()
	changed, err := fn(next)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}

	if s.path != "" && !s.degraded {
		sum, err := s.persist(next)
		if err != nil {
			s.mu.Unlock()
			writesTotal.WithLabelValues("error").Inc()
			return err
		}
		s.lastSum = sum
		writesTotal.WithLabelValues("ok").Inc()
	}
	s.st = next
	s.mu.Unlock()

	s.publish()
	return nil
}

// Degrade switches the store to memory-only for the rest of the process.
// Callers do this after a *StoreIOError so the session can continue.
func (s *Store) Degrade() {
	s.mu.Lock()
	already := s.degraded
	s.degraded = true
	s.mu.Unlock()
	if !already {
		s.logger.Warn("knowledge store degraded to memory-only; changes will not be saved",
			zap.String("path", s.path))
	}
	s.publish()
}

// Degraded reports whether Degrade has been called.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Path returns the backing file path, empty for a memory store.
func (s *Store) Path() string {
	return s.path
}

// Stats describes the store's contents.
type Stats struct {
	Entries    int    `json:"entries"`
	Variants   int    `json:"variants"`
	Path       string `json:"path,omitempty"`
	Persistent bool   `json:"persistent"`
	Degraded   bool   `json:"degraded"`
}

// Stats returns current counts and persistence mode.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Entries:    len(s.st.entries),
		Variants:   s.st.variantCount(),
		Path:       s.path,
		Persistent: s.path != "" && !s.degraded,
		Degraded:   s.degraded,
	}
}
