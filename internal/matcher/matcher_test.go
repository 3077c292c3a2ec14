package matcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/conversation"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

const cloudAnswer = "A cloud is condensed water vapor."

func newStore(t *testing.T) *knowledge.Store {
	t.Helper()
	s := knowledge.NewMemoryStore()
	_, err := s.Teach(cloudAnswer, []string{"what is a cloud", "what is a cloud?"})
	require.NoError(t, err)
	_, err = s.Teach("Rain is liquid water falling from clouds.", []string{"what is rain", "define rain"})
	require.NoError(t, err)
	_, err = s.Teach("A black hole is a region of spacetime nothing escapes.", []string{"what is a black hole"})
	require.NoError(t, err)
	return s
}

func TestMatch_Exact(t *testing.T) {
	m := New(newStore(t), DefaultConfig())

	res := m.Match("  What is a CLOUD?! ", nil)
	assert.Equal(t, strategy.Exact, res.Strategy)
	assert.Equal(t, 1.0, res.Score)
	require.NotNil(t, res.Entry)
	assert.Equal(t, cloudAnswer, res.Entry.Answer)
	assert.Equal(t, "what is a cloud", res.MatchedVariant)
	assert.True(t, res.Found())
}

func TestMatch_ExactIgnoresFuzzyConfig(t *testing.T) {
	configs := []Config{
		DefaultConfig(),
		{FuzzyThreshold: 1.0, OverlapWeight: 1, EditWeight: 0},
		{FuzzyThreshold: 0.0, OverlapWeight: 0, EditWeight: 1},
	}
	for i, cfg := range configs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			res := New(newStore(t), cfg).Match("define rain", nil)
			assert.Equal(t, strategy.Exact, res.Strategy)
			assert.Equal(t, 1.0, res.Score)
		})
	}
}

func TestMatch_FuzzyCloudScenario(t *testing.T) {
	m := New(newStore(t), DefaultConfig())

	res := m.Match("tell me about a cloud", nil)
	assert.Equal(t, strategy.Fuzzy, res.Strategy)
	require.NotNil(t, res.Entry)
	assert.Equal(t, cloudAnswer, res.Entry.Answer)
	assert.GreaterOrEqual(t, res.Score, 0.80)
	assert.LessOrEqual(t, res.Score, 1.0)
}

func TestMatch_None(t *testing.T) {
	m := New(newStore(t), DefaultConfig())

	for _, q := range []string{"what is blockchain", "", "?!", "how tall is mount everest"} {
		res := m.Match(q, nil)
		assert.Equal(t, strategy.None, res.Strategy, q)
		assert.Nil(t, res.Entry, q)
		assert.False(t, res.Found(), q)
	}
}

func TestMatch_ThresholdMonotonic(t *testing.T) {
	store := newStore(t)
	queries := []string{
		"tell me about a cloud",
		"what are clouds",
		"what is the rain",
		"rainfall",
		"describe black holes",
		"black hole",
		"what is blockchain",
		"clowd",
		"is it going to rain today",
	}
	thresholds := []float64{0.95, 0.9, 0.88, 0.85, 0.8, 0.7, 0.6, 0.5, 0.3}

	var prev map[string]bool
	for _, th := range thresholds {
		cfg := DefaultConfig()
		cfg.FuzzyThreshold = th
		m := New(store, cfg)

		matched := map[string]bool{}
		for _, q := range queries {
			if m.Match(q, nil).Strategy == strategy.Fuzzy {
				matched[q] = true
			}
		}
		for q := range prev {
			assert.True(t, matched[q], "lowering threshold to %v lost FUZZY match for %q", th, q)
		}
		prev = matched
	}
}

func tieStore(t *testing.T) *knowledge.Store {
	t.Helper()
	s := knowledge.NewMemoryStore()
	_, err := s.Teach("alpha", []string{"what is a cloud"})
	require.NoError(t, err)
	_, err = s.Teach("beta", []string{"define cloud"})
	require.NoError(t, err)
	return s
}

func TestMatch_TieBreakShortestVariant(t *testing.T) {
	m := New(tieStore(t), DefaultConfig())

	res := m.Match("what is cloud", nil)
	require.Equal(t, strategy.Fuzzy, res.Strategy)
	assert.Equal(t, "beta", res.Entry.Answer)
	assert.Equal(t, "define cloud", res.MatchedVariant)
}

func TestMatch_TieBreakRecentAnswer(t *testing.T) {
	m := New(tieStore(t), DefaultConfig())
	hist := conversation.New(4)
	hist.Add(conversation.Turn{Utterance: "what is a cloud", Answer: "alpha", Strategy: strategy.Exact})
	hist.Add(conversation.Turn{Utterance: "hello", Answer: "hi", Strategy: strategy.Static})

	res := m.Match("what is cloud", hist)
	require.Equal(t, strategy.Fuzzy, res.Strategy)
	assert.Equal(t, "alpha", res.Entry.Answer)
}

func TestMatch_TieBreakLexical(t *testing.T) {
	s := knowledge.NewMemoryStore()
	_, err := s.Teach("second", []string{"what cloud"})
	require.NoError(t, err)
	_, err = s.Teach("first", []string{"tell cloud"})
	require.NoError(t, err)

	res := New(s, DefaultConfig()).Match("cloud please", nil)
	require.Equal(t, strategy.Fuzzy, res.Strategy)
	assert.Equal(t, "tell cloud", res.MatchedVariant)
}

func TestMatch_FollowUpUsesHistory(t *testing.T) {
	m := New(newStore(t), DefaultConfig())
	hist := conversation.New(4)
	hist.Add(conversation.Turn{Utterance: "what is a black hole", Strategy: strategy.Exact})

	res := m.Match("tell me more about it", hist)
	assert.Equal(t, strategy.Fuzzy, res.Strategy)
	require.NotNil(t, res.Entry)
	assert.Contains(t, res.Entry.Answer, "black hole")
	assert.Equal(t, "tell me more about black hole", res.Query)

	res = m.Match("tell me more about it", nil)
	assert.Equal(t, strategy.None, res.Strategy)
}

func TestFromSettings(t *testing.T) {
	assert.Equal(t, DefaultConfig(), FromSettings(config.Default().Matcher))
}
