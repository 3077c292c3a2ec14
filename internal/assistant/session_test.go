package assistant

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/answerd/internal/annotate"
	"github.com/fyrsmithlabs/answerd/internal/conversation"
	"github.com/fyrsmithlabs/answerd/internal/hooks"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/learning"
	"github.com/fyrsmithlabs/answerd/internal/matcher"
	"github.com/fyrsmithlabs/answerd/internal/profile"
	"github.com/fyrsmithlabs/answerd/internal/resolver"
	"github.com/fyrsmithlabs/answerd/internal/static"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

// echoResolver answers every utterance with a fixed result and records calls.
type echoResolver struct {
	mu     sync.Mutex
	result resolver.Result
	err    error
	calls  []string
	names  []string
}

func (r *echoResolver) Resolve(_ context.Context, utterance string, _ *conversation.Context, p profile.Profile) (resolver.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, utterance)
	r.names = append(r.names, p.Name)
	return r.result, r.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func profilePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "user_profile.json")
}

func writeProfile(t *testing.T, path string, p profile.Profile) {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func newSession(t *testing.T, path string, res Resolver, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewSession(res, profile.NewStore(path, nil), DefaultConfig(), opts...)
}

func TestSession_NewUserFlow(t *testing.T) {
	path := profilePath(t)
	res := &echoResolver{result: resolver.Result{Answer: "A cloud is condensed water vapor.", Strategy: strategy.Exact, Confidence: 1}}
	s := newSession(t, path, res)
	ctx := context.Background()
	require.Equal(t, profile.Unknown, s.State())

	r, err := s.Handle(ctx, "what is a cloud")
	require.NoError(t, err)
	assert.Equal(t, NamePrompt, r.Text)
	assert.Equal(t, profile.NameCollection, r.State)
	assert.Empty(t, res.calls, "the triggering utterance is not resolved")

	r, err = s.Handle(ctx, "my name is ada lovelace")
	require.NoError(t, err)
	assert.Equal(t, "I'll remember you now, Ada Lovelace. How may I assist you?", r.Text)
	assert.Equal(t, profile.Identified, r.State)

	saved := profile.NewStore(path, nil).Load()
	assert.Equal(t, "Ada Lovelace", saved.Name)
	assert.Equal(t, 1, saved.Interactions)
	require.NotNil(t, saved.LastSeen)
	assert.True(t, fixedNow.Equal(*saved.LastSeen))
	assert.Equal(t, profile.Identified, newSession(t, path, &echoResolver{}).State(),
		"the naming turn counts toward min_interactions")

	r, err = s.Handle(ctx, "what is a cloud")
	require.NoError(t, err)
	assert.Equal(t, "A cloud is condensed water vapor.", r.Text)
	assert.Equal(t, strategy.Exact, r.Strategy)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, []string{"what is a cloud"}, res.calls)
	assert.Equal(t, []string{"Ada Lovelace"}, res.names)

	assert.Equal(t, 2, profile.NewStore(path, nil).Load().Interactions)
	require.Len(t, s.History(), 1)
	assert.Equal(t, strategy.Exact, s.History()[0].Strategy)
}

func TestSession_EmptyNameReprompts(t *testing.T) {
	s := newSession(t, profilePath(t), &echoResolver{})
	ctx := context.Background()

	s.Start(ctx)
	require.Equal(t, profile.NameCollection, s.State())

	for _, u := range []string{"my name is", "!!!", "guest"} {
		r, err := s.Handle(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, NameReprompt, r.Text, u)
		assert.Equal(t, profile.NameCollection, s.State(), u)
	}
}

func TestSession_ReturningUser(t *testing.T) {
	path := profilePath(t)
	writeProfile(t, path, profile.Profile{Name: "Ada", Interactions: 4})
	res := &echoResolver{result: resolver.Result{Answer: "ok", Strategy: strategy.Static}}
	s := newSession(t, path, res)

	assert.Equal(t, profile.Identified, s.State())
	r := s.Start(context.Background())
	assert.Equal(t, "Welcome back, Ada! How may I assist you today?", r.Text)

	_, err := s.Handle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, res.calls)
	assert.Equal(t, 5, s.Profile().Interactions)
}

func TestSession_ReturningUserWithoutGreeting(t *testing.T) {
	path := profilePath(t)
	writeProfile(t, path, profile.Profile{Name: "Ada", Interactions: 4})
	hm := hooks.NewHookManager(&hooks.Config{GreetReturning: false})
	s := newSession(t, path, &echoResolver{}, WithHooks(hm))

	assert.Equal(t, "How may I assist you today?", s.Start(context.Background()).Text)
}

func TestSession_CorruptProfileStartsUnknown(t *testing.T) {
	path := profilePath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := newSession(t, path, &echoResolver{})
	assert.Equal(t, profile.Unknown, s.State())
	assert.Equal(t, NamePrompt, s.Start(context.Background()).Text)
}

func TestSession_Farewell(t *testing.T) {
	path := profilePath(t)
	writeProfile(t, path, profile.Profile{Name: "Ada", Interactions: 2})
	res := &echoResolver{}
	var ended bool
	hm := hooks.NewHookManager(nil)
	hm.RegisterHandler(hooks.HookSessionEnd, func(context.Context, map[string]any) error {
		ended = true
		return nil
	})
	s := newSession(t, path, res, WithHooks(hm))

	r, err := s.Handle(context.Background(), "Goodbye!")
	require.NoError(t, err)
	assert.Equal(t, Farewell, r.Text)
	assert.True(t, r.End)
	assert.True(t, s.Ended())
	assert.True(t, ended)
	assert.Empty(t, res.calls)
}

func TestIsFarewell(t *testing.T) {
	for _, u := range []string{"bye", "Bye bye", "see you later", "EXIT", "quit", "goodbye ari", "shut down"} {
		assert.True(t, IsFarewell(u), u)
	}
	for _, u := range []string{"how do i exit vim", "what is goodbye in french", "", "byelaw"} {
		assert.False(t, IsFarewell(u), u)
	}
}

func TestSession_BlankUtterance(t *testing.T) {
	path := profilePath(t)
	writeProfile(t, path, profile.Profile{Name: "Ada", Interactions: 2})
	res := &echoResolver{}
	s := newSession(t, path, res)

	r, err := s.Handle(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, NotHeard, r.Text)
	assert.Empty(t, res.calls)
	assert.Equal(t, 2, s.Profile().Interactions)
}

func TestSession_ResolverErrorRecordsNothing(t *testing.T) {
	path := profilePath(t)
	writeProfile(t, path, profile.Profile{Name: "Ada", Interactions: 2})
	s := newSession(t, path, &echoResolver{err: context.Canceled})

	_, err := s.Handle(context.Background(), "what is a cloud")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, s.Profile().Interactions)
	assert.Empty(t, s.History())
}

func TestSession_AnnotationsAndLearnedHook(t *testing.T) {
	path := profilePath(t)
	writeProfile(t, path, profile.Profile{Name: "Ada", Interactions: 2})
	res := &echoResolver{result: resolver.Result{
		Answer:   "Blockchain is a ledger.",
		Strategy: strategy.Generative,
		Learning: learning.Outcome{Decision: learning.Taught, EntryID: "e1"},
	}}

	var learned map[string]any
	hm := hooks.NewHookManager(nil)
	hm.RegisterHandler(hooks.HookLearned, func(_ context.Context, data map[string]any) error {
		learned = data
		return nil
	})
	chain := annotate.NewChain(nil, annotate.LearningNotice{})
	s := newSession(t, path, res, WithHooks(hm), WithAnnotations(chain))

	r, err := s.Handle(context.Background(), "what is blockchain")
	require.NoError(t, err)
	assert.Equal(t, "Blockchain is a ledger. I'll remember that.", r.Text)
	assert.True(t, r.Persisted)
	require.NotNil(t, learned)
	assert.Equal(t, "e1", learned["entry_id"])
	assert.Equal(t, s.ID(), learned["session_id"])

	// History keeps the bare answer so stored entries can be recognized.
	assert.Equal(t, "Blockchain is a ledger.", s.History()[0].Answer)
}

type ledgerGenerator struct{}

func (ledgerGenerator) Generate(context.Context, string) (string, error) {
	return "Blockchain is a distributed ledger.", nil
}

func TestSession_LearnsAcrossTurns(t *testing.T) {
	path := profilePath(t)
	writeProfile(t, path, profile.Profile{Name: "Ada", Interactions: 2})

	store := knowledge.NewMemoryStore()
	coord := resolver.New(
		matcher.New(store, matcher.DefaultConfig()),
		ledgerGenerator{},
		static.Default(),
		resolver.DefaultConfig(),
		resolver.WithLearner(learning.New(store)),
	)
	s := newSession(t, path, coord)
	ctx := context.Background()

	r, err := s.Handle(ctx, "what is blockchain")
	require.NoError(t, err)
	assert.Equal(t, strategy.Generative, r.Strategy)
	assert.True(t, r.Persisted)

	r, err = s.Handle(ctx, "what is blockchain")
	require.NoError(t, err)
	assert.Equal(t, strategy.Exact, r.Strategy)
	assert.Equal(t, "Blockchain is a distributed ledger.", r.Text)
	assert.False(t, r.Persisted)
}

func TestSession_SerializesHandle(t *testing.T) {
	path := profilePath(t)
	writeProfile(t, path, profile.Profile{Name: "Ada", Interactions: 1})
	res := &echoResolver{result: resolver.Result{Answer: "ok", Strategy: strategy.Static}}
	s := newSession(t, path, res)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Handle(context.Background(), "hello there")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 11, s.Profile().Interactions)
	assert.Len(t, s.History(), 8)
}
