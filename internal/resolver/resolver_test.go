package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/answerd/internal/conversation"
	"github.com/fyrsmithlabs/answerd/internal/generative"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/learning"
	"github.com/fyrsmithlabs/answerd/internal/matcher"
	"github.com/fyrsmithlabs/answerd/internal/profile"
	"github.com/fyrsmithlabs/answerd/internal/secrets"
	"github.com/fyrsmithlabs/answerd/internal/static"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
	"github.com/fyrsmithlabs/answerd/internal/telemetry"
)

const (
	cloudAnswer      = "A cloud is condensed water vapor."
	blockchainAnswer = "Blockchain is a distributed ledger shared across many computers."
)

// fakeGenerator records prompts and answers with a fixed reply.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	panics  bool
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.panics {
		panic("backend exploded")
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, g.err
}

func (g *fakeGenerator) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// stubbornGenerator ignores its context entirely.
type stubbornGenerator struct{ release chan struct{} }

func (g stubbornGenerator) Generate(context.Context, string) (string, error) {
	<-g.release
	return "too late", nil
}

type fixture struct {
	store *knowledge.Store
	coord *Coordinator
}

func newFixture(t *testing.T, gen generative.Generator, opts ...Option) *fixture {
	t.Helper()
	store, err := knowledge.Open(t.TempDir() + "/knowledge.json")
	require.NoError(t, err)
	_, err = store.Teach(cloudAnswer, []string{"what is a cloud", "what is a cloud?"})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.GenerativeTimeout = 200 * time.Millisecond

	f := &fixture{store: store}
	all := append([]Option{WithLearner(learning.New(store))}, opts...)
	f.coord = New(matcher.New(store, matcher.DefaultConfig()), gen, static.Default(), cfg, all...)
	return f
}

func TestResolve_ExactSkipsFallbacks(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be used"}
	f := newFixture(t, gen)

	res, err := f.coord.Resolve(context.Background(), "What is a cloud?", nil, profile.Profile{})
	require.NoError(t, err)
	assert.Equal(t, strategy.Exact, res.Strategy)
	assert.Equal(t, cloudAnswer, res.Answer)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, learning.Skipped, res.Learning.Decision)
	assert.Empty(t, gen.calls())
}

func TestResolve_FuzzyCloudScenario(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be used"}
	f := newFixture(t, gen)

	res, err := f.coord.Resolve(context.Background(), "tell me about a cloud", nil, profile.Profile{})
	require.NoError(t, err)
	assert.Equal(t, strategy.Fuzzy, res.Strategy)
	assert.Equal(t, cloudAnswer, res.Answer)
	assert.GreaterOrEqual(t, res.Confidence, 0.80)
	assert.Empty(t, gen.calls())
	assert.Equal(t, 1, f.store.Len(), "fuzzy answers are not learned")
}

func TestResolve_GenerativeThenExact(t *testing.T) {
	gen := &fakeGenerator{reply: blockchainAnswer}
	f := newFixture(t, gen)
	ctx := context.Background()

	res, err := f.coord.Resolve(ctx, "what is blockchain", nil, profile.Profile{})
	require.NoError(t, err)
	assert.Equal(t, strategy.Generative, res.Strategy)
	assert.Equal(t, blockchainAnswer, res.Answer)
	assert.Equal(t, 0.6, res.Confidence)
	assert.Equal(t, learning.Taught, res.Learning.Decision)
	assert.True(t, res.Persisted())

	res, err = f.coord.Resolve(ctx, "what is blockchain", nil, profile.Profile{})
	require.NoError(t, err)
	assert.Equal(t, strategy.Exact, res.Strategy)
	assert.Equal(t, blockchainAnswer, res.Answer)
	assert.Len(t, gen.calls(), 1)

	reopened, err := knowledge.Open(f.store.Path())
	require.NoError(t, err)
	assert.NotNil(t, reopened.LookupExact("what is blockchain"), "learned answer is on disk")
}

func TestResolve_TimeoutFallsBackToStatic(t *testing.T) {
	gen := &fakeGenerator{reply: blockchainAnswer, delay: 5 * time.Second}
	f := newFixture(t, gen)

	start := time.Now()
	res, err := f.coord.Resolve(context.Background(), "what is blockchain", nil, profile.Profile{})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, strategy.Static, res.Strategy)
	assert.Equal(t, static.Default().Respond("what is blockchain"), res.Answer)
	assert.Equal(t, 0.1, res.Confidence)
	assert.Equal(t, learning.Skipped, res.Learning.Decision)
	assert.Equal(t, 1, f.store.Len(), "nothing written")
}

func TestResolve_IgnoredContextStillTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	f := newFixture(t, stubbornGenerator{release: release})

	res, err := f.coord.Resolve(context.Background(), "what is blockchain", nil, profile.Profile{})
	require.NoError(t, err)
	assert.Equal(t, strategy.Static, res.Strategy)
	assert.Equal(t, 1, f.store.Len())
}

func TestResolve_GeneratorFailuresFallBackToStatic(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"error", &fakeGenerator{err: errors.New("boom")}},
		{"unavailable", &fakeGenerator{err: generative.ErrUnavailable}},
		{"panic", &fakeGenerator{panics: true}},
		{"empty", &fakeGenerator{reply: "   "}},
		{"declines", &fakeGenerator{reply: "I don't know."}},
		{"not sure", &fakeGenerator{reply: "I'm not sure about that, sorry."}},
		{"generic", &fakeGenerator{reply: "I'm not sure how to respond to that yet."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.gen)
			res, err := f.coord.Resolve(context.Background(), "what is blockchain", nil, profile.Profile{})
			require.NoError(t, err)
			assert.Equal(t, strategy.Static, res.Strategy)
			assert.NotEmpty(t, res.Answer)
			assert.Equal(t, 1, f.store.Len())
		})
	}
}

func TestResolve_NilGenerator(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.coord.Resolve(context.Background(), "what is blockchain", nil, profile.Profile{})
	require.NoError(t, err)
	assert.Equal(t, strategy.Static, res.Strategy)
}

func TestResolve_CancelledContextCommitsNothing(t *testing.T) {
	gen := &fakeGenerator{reply: blockchainAnswer}
	f := newFixture(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.coord.Resolve(ctx, "what is blockchain", nil, profile.Profile{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.store.Len())
	assert.Empty(t, gen.calls())
}

func TestResolve_CancelledDuringGeneration(t *testing.T) {
	gen := &fakeGenerator{reply: blockchainAnswer, delay: 5 * time.Second}
	f := newFixture(t, gen)
	f.coord.cfg.GenerativeTimeout = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.coord.Resolve(ctx, "what is blockchain", nil, profile.Profile{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.store.Len())
}

func TestResolve_PromptCarriesNameAndScrubbedHistory(t *testing.T) {
	gen := &fakeGenerator{reply: blockchainAnswer}
	f := newFixture(t, gen, WithScrubber(secrets.MustNew(nil)))

	hist := conversation.New(8)
	hist.Add(conversation.Turn{Utterance: "my password is hunter22x", Answer: "Noted.", Strategy: strategy.Static})
	hist.Add(conversation.Turn{Utterance: "what is a cloud", Answer: cloudAnswer, Strategy: strategy.Exact})

	_, err := f.coord.Resolve(context.Background(), "what is blockchain", hist, profile.Profile{Name: "Ada", Interactions: 3})
	require.NoError(t, err)

	calls := gen.calls()
	require.Len(t, calls, 1)
	prompt := calls[0]
	assert.Contains(t, prompt, "You are talking with Ada.")
	assert.Contains(t, prompt, cloudAnswer)
	assert.Contains(t, prompt, `"what is blockchain"`)
	assert.NotContains(t, prompt, "hunter22x")
}

func TestResolve_PromptOmitsPlaceholderName(t *testing.T) {
	gen := &fakeGenerator{reply: blockchainAnswer}
	f := newFixture(t, gen)

	_, err := f.coord.Resolve(context.Background(), "what is blockchain", nil, profile.Profile{Name: "unknown"})
	require.NoError(t, err)
	require.Len(t, gen.calls(), 1)
	assert.False(t, strings.Contains(gen.calls()[0], "talking with"))
}

func TestResolve_RecordsTelemetry(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	gen := &fakeGenerator{err: errors.New("boom")}
	f := newFixture(t, gen,
		WithMeter(tt.Meter(InstrumentationName)),
		WithTracer(tt.Tracer(InstrumentationName)))

	_, err := f.coord.Resolve(context.Background(), "what is a cloud", nil, profile.Profile{})
	require.NoError(t, err)
	_, err = f.coord.Resolve(context.Background(), "what is blockchain", nil, profile.Profile{})
	require.NoError(t, err)

	tt.AssertSpanExists(t, "resolver.Resolve")
	tt.AssertSpanExists(t, "resolver.generate")
	assert.Equal(t, int64(1), tt.CounterValue(t, "resolver.resolutions.total", attribute.String("strategy", "EXACT")))
	assert.Equal(t, int64(1), tt.CounterValue(t, "resolver.resolutions.total", attribute.String("strategy", "STATIC")))
	assert.Equal(t, int64(1), tt.CounterValue(t, "resolver.generative.failures.total", attribute.String("reason", "error")))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate(0.80))

	cfg := DefaultConfig()
	cfg.GenerativeConfidence = 0.85
	assert.Error(t, cfg.Validate(0.80))

	cfg = DefaultConfig()
	cfg.StaticConfidence = 0.7
	assert.Error(t, cfg.Validate(0.80))

	cfg = DefaultConfig()
	cfg.GenerativeTimeout = 0
	assert.Error(t, cfg.Validate(0.80))
}
