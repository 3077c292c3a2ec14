package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/hooks"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/services"
)

type cannedGenerator struct{}

func (cannedGenerator) Generate(context.Context, string) (string, error) {
	return "Blockchain is a distributed ledger.", nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Knowledge.Path = filepath.Join(dir, "knowledge.json")
	cfg.Knowledge.Watch = false
	cfg.Profile.Path = filepath.Join(dir, "user_profile.json")
	cfg.Secrets.AllowlistPath = ""
	cfg.Hooks.Path = ""
	cfg.Generative.Provider = "disabled"
	require.NoError(t, os.WriteFile(cfg.Profile.Path, []byte(`{"name":"Ada","interactions":3}`), 0o600))

	reg, err := services.Build(context.Background(), cfg, services.BuildOptions{Generator: cannedGenerator{}})
	require.NoError(t, err)

	s, err := NewServer(nil, reg)
	require.NoError(t, err)
	return s
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.Error(t, err)

	_, err = NewServer(nil, services.NewRegistry(services.Options{}))
	require.Error(t, err)

	s := newTestServer(t)
	assert.NotNil(t, s.mcp)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "answerd", cfg.Name)
	assert.NotNil(t, cfg.Logger)
}

func TestHandleAsk(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, out, err := s.handleAsk(ctx, nil, askInput{Utterance: "what is blockchain"})
	require.NoError(t, err)
	assert.Equal(t, "GENERATIVE", out.Strategy)
	assert.True(t, out.Persisted)
	assert.Equal(t, "IDENTIFIED", out.State)
	require.Len(t, res.Content, 1)

	_, out, err = s.handleAsk(ctx, nil, askInput{Utterance: "what is blockchain"})
	require.NoError(t, err)
	assert.Equal(t, "EXACT", out.Strategy)
	assert.Equal(t, 1.0, out.Confidence)

	_, _, err = s.handleAsk(ctx, nil, askInput{Utterance: "   "})
	require.Error(t, err)
	assert.Equal(t, "validation_error", categorizeError(err))
}

func TestHandleTeachAndLookup(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleTeach(ctx, nil, teachInput{
		Answer:   "A cloud is condensed water vapor.",
		Variants: []string{"what is a cloud", "what are clouds"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, string(knowledge.SourceAuthored), out.Source)

	_, _, err = s.handleTeach(ctx, nil, teachInput{Answer: "Fluffy.", Variants: []string{"What is a cloud?"}})
	require.ErrorIs(t, err, knowledge.ErrDuplicateVariant)
	assert.Equal(t, "conflict", categorizeError(err))

	_, _, err = s.handleTeach(ctx, nil, teachInput{Answer: "Fluffy.", Variants: []string{"What is a cloud?"}, Replace: true})
	require.NoError(t, err)

	_, found, err := s.handleLookup(ctx, nil, lookupInput{Query: "what is a cloud"})
	require.NoError(t, err)
	assert.True(t, found.Found)
	assert.Equal(t, "Fluffy.", found.Answer)
	assert.Equal(t, "EXACT", found.Strategy)
	assert.Equal(t, 1.0, found.Confidence)

	_, fuzzy, err := s.handleLookup(ctx, nil, lookupInput{Query: "tell me about a cloud"})
	require.NoError(t, err)
	assert.True(t, fuzzy.Found)
	assert.Equal(t, "FUZZY", fuzzy.Strategy)
	assert.Equal(t, "Fluffy.", fuzzy.Answer)

	_, missing, err := s.handleLookup(ctx, nil, lookupInput{Query: "what is rain"})
	require.NoError(t, err)
	assert.False(t, missing.Found)
	assert.Equal(t, "NONE", missing.Strategy)
	assert.Equal(t, 2, s.services.Knowledge().Len(), "lookup never learns")

	_, _, err = s.handleLookup(ctx, nil, lookupInput{Query: "?!"})
	require.Error(t, err)
}

func TestHandleLookup_ScrubsSecrets(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.services.Knowledge().Teach("the admin password is hunter22x", []string{"what is the admin password"})
	require.NoError(t, err)

	_, out, err := s.handleLookup(ctx, nil, lookupInput{Query: "what is the admin password"})
	require.NoError(t, err)
	assert.NotContains(t, out.Answer, "hunter22x")
}

func TestHandleTeach_WriteFailureKeepsAnswerInMemory(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	store := s.services.Knowledge()

	var degradedEvents int
	s.services.Hooks().RegisterHandler(hooks.HookStoreDegraded, func(context.Context, map[string]any) error {
		degradedEvents++
		return nil
	})

	require.NoError(t, os.MkdirAll(filepath.Join(store.Path(), "blocker"), 0o700))

	res, out, err := s.handleTeach(ctx, nil, teachInput{
		Answer:   "Rust is a systems programming language.",
		Variants: []string{"what is rust"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Warning)
	assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, "kept in memory only")
	assert.True(t, store.Degraded())
	assert.NotNil(t, store.LookupExact("what is rust"))
	assert.Equal(t, 1, degradedEvents)
}

func TestHandleStats(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, err := s.services.Knowledge().Teach("x", []string{"a", "b"})
	require.NoError(t, err)

	_, out, err := s.handleStats(ctx, nil, statsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Entries)
	assert.Equal(t, 2, out.Variants)
	assert.True(t, out.Persistent)
}

func TestHandleSuggest(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, out, err := s.handleSuggest(ctx, nil, suggestInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Suggestions)
	assert.Empty(t, out.Topics)
	assert.Equal(t, "knowledge store is empty", res.Content[0].(*mcp.TextContent).Text)

	store := s.services.Knowledge()
	_, err = store.Teach("A cloud is condensed water vapor.", []string{"what is a cloud", "define cloud"})
	require.NoError(t, err)
	_, err = store.Teach("Rust forms when iron meets water.", []string{"what is rust"})
	require.NoError(t, err)

	_, out, err = s.handleSuggest(ctx, nil, suggestInput{Topic: "clouds"})
	require.NoError(t, err)
	require.Len(t, out.Suggestions, 1)
	assert.Equal(t, "what is a cloud", out.Suggestions[0].Question)
	assert.Equal(t, "cloud", out.Suggestions[0].Topic)
	assert.Empty(t, out.Topics)

	_, out, err = s.handleSuggest(ctx, nil, suggestInput{Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, out.Suggestions)
	assert.Equal(t, []topicCount{{Word: "water", Entries: 2}}, out.Topics)

	_, _, err = s.handleSuggest(ctx, nil, suggestInput{Topic: "cloud", Limit: -1})
	require.Error(t, err)
}
