// Package matcher finds the knowledge entry that best answers a query,
// first by exact normalized lookup and then by fuzzy scoring against every
// stored variant.
package matcher

import (
	"iter"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/conversation"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

// Scores closer than this are treated as tied.
const tieEpsilon = 1e-9

// Config is the fuzzy matching policy.
type Config struct {
	// FuzzyThreshold is the minimum score for a FUZZY match. Values from
	// 0.80 to 0.88 are reasonable; 0.80 is the default.
	FuzzyThreshold float64
	OverlapWeight  float64
	EditWeight     float64
}

// DefaultConfig returns the default policy: threshold 0.80, weighted 0.6
// token overlap and 0.4 edit similarity.
func DefaultConfig() Config {
	return Config{FuzzyThreshold: 0.80, OverlapWeight: 0.6, EditWeight: 0.4}
}

// FromSettings converts the matcher section of the configuration file.
func FromSettings(s config.MatcherConfig) Config {
	return Config{
		FuzzyThreshold: s.FuzzyThreshold,
		OverlapWeight:  s.OverlapWeight,
		EditWeight:     s.EditWeight,
	}
}

// Store is the read side of the knowledge store the matcher needs.
type Store interface {
	LookupExact(normalized string) *knowledge.Entry
	All() iter.Seq[knowledge.Entry]
}

// Result is the outcome of a match. Strategy is NONE when nothing scored
// above the threshold; that is a normal result, not an error.
type Result struct {
	Entry          *knowledge.Entry
	MatchedVariant string
	Score          float64
	Strategy       strategy.Strategy

	// Query is the normalized text that was matched. It differs from the
	// normalized input when a follow-up was rewritten from history.
	Query string
}

// Found reports whether an entry was matched.
func (r Result) Found() bool {
	return r.Entry != nil && r.Strategy.Stored()
}

// Matcher matches queries against a Store.
type Matcher struct {
	store  Store
	cfg    Config
	logger *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// New returns a Matcher.
func New(store Store, cfg Config, opts ...Option) *Matcher {
	m := &Matcher{store: store, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the matcher's policy.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Match finds the best entry for query. hist may be nil.
//
// An exact normalized match always wins with score 1.0. Otherwise the
// highest fuzzy score at or above the threshold wins. If nothing matches and
// the query is a referential follow-up ("what about that"), the topic of the
// previous turn is substituted and matching is retried once.
func (m *Matcher) Match(query string, hist *conversation.Context) Result {
	normalized := textnorm.Normalize(query)
	res := m.match(normalized, hist)
	if res.Found() {
		return res
	}

	if rewritten, ok := hist.ResolveReference(query); ok && rewritten != normalized {
		if r := m.match(rewritten, hist); r.Found() {
			m.logger.Debug("follow-up resolved from history",
				zap.String("query", normalized),
				zap.String("rewritten", rewritten))
			return r
		}
	}
	return res
}

func (m *Matcher) match(normalized string, hist *conversation.Context) Result {
	none := Result{Strategy: strategy.None, Query: normalized}
	if normalized == "" {
		return none
	}

	if e := m.store.LookupExact(normalized); e != nil {
		variant := e.Question()
		for _, v := range e.Variants {
			if textnorm.Normalize(v) == normalized {
				variant = v
				break
			}
		}
		return Result{
			Entry:          e,
			MatchedVariant: variant,
			Score:          1.0,
			Strategy:       strategy.Exact,
			Query:          normalized,
		}
	}

	query := textnorm.ContentTokens(strings.Fields(normalized))
	var (
		best      candidate
		haveBest  bool
		evaluated int
	)
	for e := range m.store.All() {
		for _, v := range e.Variants {
			evaluated++
			floor := m.cfg.FuzzyThreshold
			if haveBest {
				floor = math.Max(floor, best.score-tieEpsilon)
			}
			s := m.cfg.score(query, textnorm.ContentTokens(textnorm.Tokens(v)), floor)
			if s < m.cfg.FuzzyThreshold {
				continue
			}
			c := candidate{entry: e, variant: v, score: s}
			if !haveBest || c.beats(best, hist) {
				best, haveBest = c, true
			}
		}
	}

	if !haveBest {
		m.logger.Debug("no fuzzy match",
			zap.String("query", normalized),
			zap.Int("variants", evaluated))
		return none
	}

	entry := best.entry
	m.logger.Debug("fuzzy match",
		zap.String("query", normalized),
		zap.String("variant", best.variant),
		zap.Float64("score", best.score))
	return Result{
		Entry:          &entry,
		MatchedVariant: best.variant,
		Score:          best.score,
		Strategy:       strategy.Fuzzy,
		Query:          normalized,
	}
}

type candidate struct {
	entry   knowledge.Entry
	variant string
	score   float64
}

// beats orders candidates: higher score, then the answer served most
// recently in hist, then the shorter variant, then lexical order.
func (c candidate) beats(o candidate, hist *conversation.Context) bool {
	if math.Abs(c.score-o.score) > tieEpsilon {
		return c.score > o.score
	}

	cr, or := hist.AnswerRecency(c.entry.Answer), hist.AnswerRecency(o.entry.Answer)
	switch {
	case cr >= 0 && (or < 0 || cr < or):
		return true
	case or >= 0 && (cr < 0 || or < cr):
		return false
	}

	cl, ol := utf8.RuneCountInString(c.variant), utf8.RuneCountInString(o.variant)
	if cl != ol {
		return cl < ol
	}
	return c.variant < o.variant
}
