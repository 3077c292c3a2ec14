// Package learning decides whether an answer produced by a fallback should
// be remembered, and writes it to the knowledge store.
//
// Only generative answers are candidates. Stored answers are never
// rewritten through this path and static replies are generic by
// construction.
package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/secrets"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

// Decision is what the writer did with a candidate answer.
type Decision string

const (
	// Skipped: not a candidate (strategy other than GENERATIVE, empty
	// input, or cancelled context).
	Skipped Decision = "skipped"
	// AlreadyKnown: an entry already owns the utterance verbatim.
	AlreadyKnown Decision = "already_known"
	// VariantAdded: an entry owns the normalized utterance; the new
	// phrasing was appended to it.
	VariantAdded Decision = "variant_added"
	// Taught: a new entry was created.
	Taught Decision = "taught"
	// Rejected: the utterance or answer contains a secret, or the store
	// refused the write.
	Rejected Decision = "rejected"
)

// Outcome reports a persistence decision.
type Outcome struct {
	Decision Decision `json:"decision"`
	EntryID  string   `json:"entry_id,omitempty"`
	// Degraded is set when the knowledge file could not be written and the
	// store switched to memory-only. The answer is still remembered for
	// the rest of the session.
	Degraded bool `json:"degraded,omitempty"`
}

// Persisted reports whether the store now holds something new.
func (o Outcome) Persisted() bool {
	return o.Decision == Taught || o.Decision == VariantAdded
}

// Store is the part of the knowledge store the writer uses.
type Store interface {
	LookupExact(normalized string) *knowledge.Entry
	AddVariant(id, variant string) (bool, error)
	Teach(answer string, variants []string, opts ...knowledge.TeachOption) (*knowledge.Entry, error)
	Degrade()
}

// Writer is the learning writer.
type Writer struct {
	store    Store
	scrubber secrets.Scrubber
	logger   *logging.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithScrubber rejects candidates containing secrets.
func WithScrubber(s secrets.Scrubber) Option {
	return func(w *Writer) {
		if s != nil {
			w.scrubber = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// New returns a Writer for store.
func New(store Store, opts ...Option) *Writer {
	w := &Writer{
		store:    store,
		scrubber: secrets.NoopScrubber{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// MaybePersist offers an answer for learning.
//
// The exact index is consulted again right before writing. If an entry
// already owns the normalized utterance, no entry is created; the
// utterance is appended as a variant only when it differs textually from
// every known variant. Otherwise a new entry seeded with the utterance is
// taught.
//
// A knowledge file write failure degrades the store to memory-only and the
// write is repeated in memory; the returned Outcome has Degraded set and the
// error is nil.
func (w *Writer) MaybePersist(ctx context.Context, utterance, answer string, s strategy.Strategy) (Outcome, error) {
	if s != strategy.Generative {
		return Outcome{Decision: Skipped}, nil
	}
	utterance = strings.TrimSpace(utterance)
	answer = strings.TrimSpace(answer)
	normalized := textnorm.Normalize(utterance)
	if normalized == "" || answer == "" {
		return Outcome{Decision: Skipped}, nil
	}
	if err := ctx.Err(); err != nil {
		return Outcome{Decision: Skipped}, err
	}

	if w.containsSecret(utterance) || w.containsSecret(answer) {
		w.logger.Warn(ctx, "not learning answer containing sensitive data")
		return Outcome{Decision: Rejected}, nil
	}

	out, err := w.write(normalized, utterance, answer)
	if knowledge.IsIOError(err) {
		w.logger.Warn(ctx, "knowledge file write failed; continuing in memory", zap.Error(err))
		w.store.Degrade()
		out, err = w.write(normalized, utterance, answer)
		out.Degraded = true
	}
	if err != nil {
		out.Decision = Rejected
		return out, fmt.Errorf("learning %q: %w", normalized, err)
	}

	w.logger.Info(ctx, "learning decision",
		zap.String("decision", string(out.Decision)),
		zap.String("entry_id", out.EntryID),
		logging.Utterance(utterance))
	return out, nil
}

func (w *Writer) write(normalized, utterance, answer string) (Outcome, error) {
	if e := w.store.LookupExact(normalized); e != nil {
		if e.HasVariant(utterance) {
			return Outcome{Decision: AlreadyKnown, EntryID: e.ID}, nil
		}
		added, err := w.store.AddVariant(e.ID, utterance)
		if err != nil {
			return Outcome{EntryID: e.ID}, err
		}
		if !added {
			return Outcome{Decision: AlreadyKnown, EntryID: e.ID}, nil
		}
		return Outcome{Decision: VariantAdded, EntryID: e.ID}, nil
	}

	e, err := w.store.Teach(answer, []string{utterance}, knowledge.WithSource(knowledge.SourceLearned))
	if err != nil {
		var dup *knowledge.DuplicateVariantError
		if errors.As(err, &dup) {
			return Outcome{EntryID: dup.OwnerID}, err
		}
		return Outcome{}, err
	}
	return Outcome{Decision: Taught, EntryID: e.ID}, nil
}

func (w *Writer) containsSecret(s string) bool {
	return w.scrubber.Check(s).AtLeast(secrets.SeverityMedium)
}
