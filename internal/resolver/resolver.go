// Package resolver runs the fallback chain that turns an utterance into
// exactly one answer: stored knowledge first, then the generative backend,
// then a static reply. Generative answers are offered to the learning
// writer once the answer is final.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/conversation"
	"github.com/fyrsmithlabs/answerd/internal/generative"
	"github.com/fyrsmithlabs/answerd/internal/learning"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/matcher"
	"github.com/fyrsmithlabs/answerd/internal/profile"
	"github.com/fyrsmithlabs/answerd/internal/secrets"
	"github.com/fyrsmithlabs/answerd/internal/static"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

var (
	// ErrCollaboratorTimeout marks a generative call that exceeded
	// GenerativeTimeout. It is logged, never returned from Resolve.
	ErrCollaboratorTimeout = errors.New("generative collaborator timed out")

	// ErrCollaboratorPanic marks a generative call that panicked.
	ErrCollaboratorPanic = errors.New("generative collaborator panicked")

	// ErrDegenerateAnswer marks a generative answer that says nothing.
	ErrDegenerateAnswer = errors.New("generative answer is degenerate")
)

// Normalized prefixes of answers that decline to answer.
var declines = []string{
	"i dont know",
	"i do not know",
	"im not sure",
	"i am not sure",
	"sorry i dont know",
	"i have no idea",
}

// Matcher finds stored answers.
type Matcher interface {
	Match(query string, hist *conversation.Context) matcher.Result
}

// Learner is offered every final answer.
type Learner interface {
	MaybePersist(ctx context.Context, utterance, answer string, s strategy.Strategy) (learning.Outcome, error)
}

// Result is the final answer for one utterance.
type Result struct {
	Answer     string            `json:"answer"`
	Strategy   strategy.Strategy `json:"strategy"`
	Confidence float64           `json:"confidence"`
	Learning   learning.Outcome  `json:"learning"`

	// Match is the matcher's result, kept for diagnostics even when a
	// fallback won.
	Match matcher.Result `json:"-"`
}

// Persisted reports whether resolving this utterance grew the store.
func (r Result) Persisted() bool {
	return r.Learning.Persisted()
}

// Coordinator is the fallback chain coordinator. It holds no per-utterance
// state and is safe for concurrent use if its collaborators are.
type Coordinator struct {
	matcher   Matcher
	generator generative.Generator
	static    static.Responder
	learner   Learner
	scrubber  secrets.Scrubber
	cfg       Config

	logger  *logging.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLearner sets the learning writer. Without one nothing is learned.
func WithLearner(l Learner) Option {
	return func(c *Coordinator) { c.learner = l }
}

// WithScrubber redacts secrets from utterances before they reach the
// generative backend.
func WithScrubber(s secrets.Scrubber) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.scrubber = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMeter records OpenTelemetry metrics on meter.
func WithMeter(meter metric.Meter) Option {
	return func(c *Coordinator) {
		if m, err := NewMetrics(meter); err == nil {
			c.metrics = m
		}
	}
}

// WithTracer sets the tracer. Default is the global provider's.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New returns a Coordinator. gen may be nil, in which case the generative
// step is always skipped.
func New(m Matcher, gen generative.Generator, st static.Responder, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		matcher:   m,
		generator: gen,
		static:    st,
		scrubber:  secrets.NoopScrubber{},
		cfg:       cfg,
		logger:    logging.NewNop(),
		tracer:    Tracer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics, _ = NewMetrics(nil)
	}
	return c
}

// Resolve produces exactly one answer for utterance.
//
// The strategies are tried strictly in order EXACT/FUZZY, GENERATIVE,
// STATIC; the first to produce an answer wins. Collaborator failures fall
// through to the next strategy and are never returned. The only error is
// the context's, when ctx ends before the answer is final; in that case
// nothing is learned.
func (c *Coordinator) Resolve(ctx context.Context, utterance string, hist *conversation.Context, p profile.Profile) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "resolver.Resolve")
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := c.resolve(ctx, utterance, hist, p)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return Result{}, err
	}

	if c.learner != nil {
		out, err := c.learner.MaybePersist(ctx, utterance, res.Answer, res.Strategy)
		if err != nil {
			c.logger.Warn(ctx, "learning failed", zap.Error(err))
		}
		res.Learning = out
		if out.Decision != "" {
			c.metrics.RecordLearning(ctx, string(out.Decision))
		}
	}

	span.SetAttributes(
		attribute.String("resolver.strategy", res.Strategy.String()),
		attribute.Float64("resolver.confidence", res.Confidence),
		attribute.String("resolver.learning", string(res.Learning.Decision)),
	)
	c.metrics.RecordResolution(ctx, res.Strategy, time.Since(start))
	c.logger.Info(ctx, "utterance resolved",
		zap.String("strategy", res.Strategy.String()),
		zap.Float64("confidence", res.Confidence),
		logging.Utterance(utterance))
	return res, nil
}

func (c *Coordinator) resolve(ctx context.Context, utterance string, hist *conversation.Context, p profile.Profile) Result {
	m := c.matcher.Match(utterance, hist)
	if m.Found() {
		return Result{
			Answer:     m.Entry.Answer,
			Strategy:   m.Strategy,
			Confidence: m.Score,
			Match:      m,
		}
	}

	answer, err := c.generate(ctx, utterance, hist, p)
	if err == nil {
		return Result{
			Answer:     answer,
			Strategy:   strategy.Generative,
			Confidence: c.cfg.GenerativeConfidence,
			Match:      m,
		}
	}
	c.metrics.RecordGenerativeFailure(ctx, failureReason(err))
	if !errors.Is(err, generative.ErrUnavailable) {
		c.logger.Warn(ctx, "generative fallback produced no answer", zap.Error(err))
	}

	return Result{
		Answer:     c.static.Respond(utterance),
		Strategy:   strategy.Static,
		Confidence: c.cfg.StaticConfidence,
		Match:      m,
	}
}

// generate asks the backend under GenerativeTimeout. The call runs in its
// own goroutine so that a backend ignoring ctx still cannot hold up the
// answer.
func (c *Coordinator) generate(ctx context.Context, utterance string, hist *conversation.Context, p profile.Profile) (string, error) {
	if c.generator == nil {
		return "", generative.ErrUnavailable
	}

	ctx, span := c.tracer.Start(ctx, "resolver.generate")
	defer span.End()

	gctx, cancel := context.WithTimeout(ctx, c.cfg.GenerativeTimeout)
	defer cancel()

	prompt := generative.BuildPrompt(c.promptInput(utterance, hist, p))

	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("%w: %v", ErrCollaboratorPanic, r)}
			}
		}()
		text, err := c.generator.Generate(gctx, prompt)
		ch <- reply{text: text, err: err}
	}()

	var r reply
	select {
	case r = <-ch:
	case <-gctx.Done():
		if ctx.Err() != nil {
			r.err = ctx.Err()
		} else {
			r.err = fmt.Errorf("%w after %s", ErrCollaboratorTimeout, c.cfg.GenerativeTimeout)
		}
	}
	if r.err == nil && errors.Is(gctx.Err(), context.DeadlineExceeded) {
		r.err = fmt.Errorf("%w after %s", ErrCollaboratorTimeout, c.cfg.GenerativeTimeout)
	}
	if r.err == nil && c.degenerate(r.text) {
		r.err = ErrDegenerateAnswer
	}
	if r.err != nil {
		span.RecordError(r.err)
		span.SetStatus(codes.Error, failureReason(r.err))
		return "", r.err
	}
	return strings.TrimSpace(r.text), nil
}

func (c *Coordinator) promptInput(utterance string, hist *conversation.Context, p profile.Profile) generative.PromptInput {
	in := generative.PromptInput{Utterance: c.scrub(utterance)}
	if p.HasName() {
		in.UserName = p.Name
	}
	if c.cfg.HistoryTurns > 0 {
		for _, t := range hist.Last(c.cfg.HistoryTurns) {
			t.Utterance = c.scrub(t.Utterance)
			t.Answer = c.scrub(t.Answer)
			in.History = append(in.History, t)
		}
	}
	return in
}

func (c *Coordinator) scrub(s string) string {
	return c.scrubber.Scrub(s).Scrubbed
}

// degenerate reports whether a generative answer says nothing useful.
func (c *Coordinator) degenerate(answer string) bool {
	n := textnorm.Normalize(answer)
	if n == "" {
		return true
	}
	for _, d := range declines {
		if n == d || strings.HasPrefix(n, d+" ") {
			return true
		}
	}
	if g, ok := c.static.(interface{ IsGeneric(string) bool }); ok && g.IsGeneric(answer) {
		return true
	}
	return false
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrCollaboratorTimeout):
		return "timeout"
	case errors.Is(err, ErrCollaboratorPanic):
		return "panic"
	case errors.Is(err, ErrDegenerateAnswer):
		return "degenerate"
	case errors.Is(err, generative.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
