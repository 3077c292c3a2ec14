// Package chatui is the terminal chat front end for a conversation session.
package chatui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/answerd/internal/assistant"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	transcriptLines = 12
	handleTimeout   = 30 * time.Second
)

// Session is the conversation the UI drives.
type Session interface {
	Start(ctx context.Context) assistant.Reply
	Handle(ctx context.Context, utterance string) (assistant.Reply, error)
}

type speaker int

const (
	speakerAssistant speaker = iota
	speakerUser
)

type line struct {
	who  speaker
	text string
}

// Model is the bubbletea chat model.
type Model struct {
	session Session
	input   textinput.Model
	meter   progress.Model

	transcript []line
	last       assistant.Reply
	confidence []float64
	learned    int
	busy       bool
	err        error
	quitting   bool
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a chat model over s.
func NewModel(s Session) Model {
	in := textinput.New()
	in.Placeholder = "Ask me anything"
	in.CharLimit = 2000
	in.Width = 60
	in.Focus()

	return Model{
		session: s,
		input:   in,
		meter: progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(30),
		),
		confidence: make([]float64, 0, historySize),
	}
}

type replyMsg assistant.Reply
type errMsg error

// Init greets the user.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, start(m.session))
}

func start(s Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		return replyMsg(s.Start(ctx))
	}
}

func handle(s Session, utterance string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		r, err := s.Handle(ctx, utterance)
		if err != nil {
			return errMsg(err)
		}
		return replyMsg(r)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			text := m.input.Value()
			m.input.SetValue("")
			m.transcript = appendLine(m.transcript, line{who: speakerUser, text: text})
			m.busy = true
			m.err = nil
			return m, handle(m.session, text)
		}

	case replyMsg:
		r := assistant.Reply(msg)
		m.busy = false
		m.last = r
		m.transcript = appendLine(m.transcript, line{who: speakerAssistant, text: r.Text})
		if answered(r.Strategy) {
			m.confidence = appendToHistory(m.confidence, r.Confidence)
		}
		if r.Persisted {
			m.learned++
		}
		if r.End {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case errMsg:
		m.busy = false
		m.err = error(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat
func (m Model) View() string {
	if m.quitting {
		if n := len(m.transcript); n > 0 && m.transcript[n-1].who == speakerAssistant {
			return m.transcript[n-1].text + "\n"
		}
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(" answerd ") + "\n\n")

	for _, l := range m.transcript {
		switch l.who {
		case speakerUser:
			b.WriteString(userStyle.Render("you: ") + l.text + "\n")
		default:
			b.WriteString(labelStyle.Render("bot: ") + l.text + "\n")
		}
	}
	if m.busy {
		b.WriteString(dimStyle.Render("thinking...") + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}

	b.WriteString("\n" + m.renderStatus() + "\n\n")
	b.WriteString(m.input.View() + "\n")

	footer := footerKeyStyle.Render("[enter]") + footerStyle.Render(" send  ") +
		footerKeyStyle.Render("[esc]") + footerStyle.Render(" quit  ") +
		footerStyle.Render("say goodbye to end the session")
	b.WriteString(footer)

	return containerStyle.Render(b.String())
}

func (m Model) renderStatus() string {
	state := dimStyle.Render("state: ") + labelStyle.Render(m.last.State.String())
	learned := dimStyle.Render("learned: ") + labelStyle.Render(fmt.Sprintf("%d", m.learned))
	if !answered(m.last.Strategy) {
		return state + "   " + learned
	}
	return state + "   " + learned + "\n" +
		StrategyBadge(m.last.Strategy) + " " +
		m.meter.ViewAs(clamp(m.last.Confidence)) + " " +
		dimStyle.Render(FormatConfidence(m.last.Confidence)) + "   " +
		createSparkline(m.confidence)
}

// createSparkline creates a sparkline chart from the confidence history
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()

	return sparklineStyle.Render(spark.View())
}

// answered reports whether a reply came from the fallback chain rather
// than the greeting or name collection.
func answered(s strategy.Strategy) bool {
	return s.String() != strategy.None.String()
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

func appendLine(lines []line, l line) []line {
	lines = append(lines, l)
	if len(lines) > transcriptLines {
		lines = lines[len(lines)-transcriptLines:]
	}
	return lines
}

// Transcript returns the visible lines as plain text, oldest first.
func (m Model) Transcript() []string {
	out := make([]string, len(m.transcript))
	for i, l := range m.transcript {
		out[i] = l.text
	}
	return out
}
