package chatui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/answerd/internal/assistant"
	"github.com/fyrsmithlabs/answerd/internal/profile"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

type fakeSession struct {
	reply assistant.Reply
	err   error
	got   []string
}

func (f *fakeSession) Start(context.Context) assistant.Reply {
	return assistant.Reply{Text: assistant.NamePrompt, State: profile.NameCollection}
}

func (f *fakeSession) Handle(_ context.Context, u string) (assistant.Reply, error) {
	f.got = append(f.got, u)
	return f.reply, f.err
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(Model)
	}
	return m
}

func TestModel_Init(t *testing.T) {
	m := NewModel(&fakeSession{})
	assert.NotNil(t, m.Init())
}

func TestModel_GreetingIsShown(t *testing.T) {
	s := &fakeSession{}
	m := NewModel(s)

	updated, cmd := m.Update(start(s)())
	m = updated.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, []string{assistant.NamePrompt}, m.Transcript())
	assert.Contains(t, m.View(), assistant.NamePrompt)
	assert.Empty(t, m.confidence, "greeting has no confidence")
}

func TestModel_EnterSendsUtterance(t *testing.T) {
	s := &fakeSession{reply: assistant.Reply{
		Text:       "A cloud is condensed water vapor.",
		Strategy:   strategy.Fuzzy,
		Confidence: 0.86,
		State:      profile.Identified,
	}}
	m := typeText(NewModel(s), "tell me about a cloud")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	// Enter while busy is ignored.
	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	assert.Nil(t, cmd)

	updated, _ = m.Update(handle(s, "tell me about a cloud")())
	m = updated.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, []string{"tell me about a cloud", "A cloud is condensed water vapor."}, m.Transcript())
	assert.Equal(t, []float64{0.86}, m.confidence)
	assert.Contains(t, m.View(), "FUZZY")
	assert.Contains(t, m.View(), "0.86")
}

func TestModel_PersistedRepliesAreCounted(t *testing.T) {
	m := NewModel(&fakeSession{})
	updated, _ := m.Update(replyMsg{Text: "x", Strategy: strategy.Generative, Confidence: 0.6, Persisted: true})
	m = updated.(Model)
	assert.Equal(t, 1, m.learned)
}

func TestModel_EndQuits(t *testing.T) {
	m := NewModel(&fakeSession{})
	updated, cmd := m.Update(replyMsg{Text: assistant.Farewell, End: true})
	m = updated.(Model)
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
	assert.Equal(t, assistant.Farewell+"\n", m.View())
}

func TestModel_ErrorIsShown(t *testing.T) {
	m := NewModel(&fakeSession{})
	m.busy = true
	updated, _ := m.Update(errMsg(errors.New("context deadline exceeded")))
	m = updated.(Model)
	assert.False(t, m.busy)
	assert.Contains(t, m.View(), "context deadline exceeded")
}

func TestModel_EscQuits(t *testing.T) {
	m := NewModel(&fakeSession{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, updated.(Model).quitting)
	assert.NotNil(t, cmd)
}

func TestAppendToHistory(t *testing.T) {
	var h []float64
	for i := 0; i < historySize+5; i++ {
		h = appendToHistory(h, float64(i))
	}
	assert.Len(t, h, historySize)
	assert.Equal(t, float64(5), h[0])
}

func TestCreateSparkline_Empty(t *testing.T) {
	assert.Contains(t, createSparkline(nil), "no data")
}
