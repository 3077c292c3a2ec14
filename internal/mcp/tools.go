package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/curation"
	"github.com/fyrsmithlabs/answerd/internal/hooks"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

type askInput struct {
	Utterance string `json:"utterance" jsonschema:"required,What the user said"`
}

type askOutput struct {
	Answer     string  `json:"answer" jsonschema:"The reply"`
	Strategy   string  `json:"strategy" jsonschema:"Which stage produced the reply: EXACT FUZZY GENERATIVE STATIC or NONE"`
	Confidence float64 `json:"confidence" jsonschema:"Confidence in [0,1]"`
	State      string  `json:"state" jsonschema:"Session state after the reply"`
	Persisted  bool    `json:"persisted" jsonschema:"Whether the answer was learned"`
	End        bool    `json:"end" jsonschema:"Whether the session ended"`
}

type teachInput struct {
	Answer   string   `json:"answer" jsonschema:"required,The answer to store"`
	Variants []string `json:"variants" jsonschema:"required,Questions that should return this answer"`
	Replace  bool     `json:"replace,omitempty" jsonschema:"Rebind questions already bound to another answer"`
}

type teachOutput struct {
	ID       string   `json:"id" jsonschema:"Entry ID"`
	Variants []string `json:"variants" jsonschema:"All questions of the entry"`
	Source   string   `json:"source" jsonschema:"authored learned or imported"`
	Warning  string   `json:"warning,omitempty" jsonschema:"Set when the answer is kept in memory only"`
}

type lookupInput struct {
	Query string `json:"query" jsonschema:"required,Question to match against stored answers"`
}

type lookupOutput struct {
	Found      bool     `json:"found" jsonschema:"Whether a stored answer matched"`
	ID         string   `json:"id,omitempty" jsonschema:"Entry ID"`
	Answer     string   `json:"answer,omitempty" jsonschema:"Stored answer"`
	Variants   []string `json:"variants,omitempty" jsonschema:"All questions of the entry"`
	Strategy   string   `json:"strategy" jsonschema:"EXACT FUZZY or NONE"`
	Confidence float64  `json:"confidence,omitempty" jsonschema:"Match score in [0,1]"`
}

type suggestInput struct {
	Topic string `json:"topic,omitempty" jsonschema:"Topic to find answerable questions about; empty lists popular topics"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 5)"`
}

type suggestion struct {
	ID       string `json:"id" jsonschema:"Entry ID"`
	Question string `json:"question" jsonschema:"A question with a stored answer"`
	Topic    string `json:"topic" jsonschema:"Indexed word that matched"`
	Preview  string `json:"preview" jsonschema:"Start of the stored answer"`
}

type topicCount struct {
	Word    string `json:"word"`
	Entries int    `json:"entries"`
}

type suggestOutput struct {
	Suggestions []suggestion `json:"suggestions,omitempty" jsonschema:"Questions related to the topic"`
	Topics      []topicCount `json:"topics,omitempty" jsonschema:"Most mentioned topics, when no topic was given or nothing matched"`
}

type statsInput struct{}

type statsOutput struct {
	Entries    int    `json:"entries" jsonschema:"Number of entries"`
	Variants   int    `json:"variants" jsonschema:"Number of questions across entries"`
	Persistent bool   `json:"persistent" jsonschema:"Whether writes reach the knowledge file"`
	Path       string `json:"path,omitempty" jsonschema:"Knowledge file"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask",
		Description: "Answer an utterance. Stored answers win; otherwise a generated answer is given and remembered, or a static reply.",
	}, s.handleAsk)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "teach",
		Description: "Store an answer reachable by one or more questions",
	}, s.handleTeach)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "lookup",
		Description: "Match a question against stored answers, exactly or fuzzily, without generating or learning anything",
	}, s.handleLookup)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "suggest",
		Description: "Suggest questions the knowledge store can already answer, by topic",
	}, s.handleSuggest)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "knowledge_stats",
		Description: "Show knowledge store counts and persistence mode",
	}, s.handleStats)
}

// instrument records one invocation of tool. Use as
// defer s.instrument(ctx, "ask", time.Now(), &err)().
func (s *Server) instrument(ctx context.Context, tool string, start time.Time, errp *error) func() {
	s.metrics.IncrementActive(ctx, tool)
	return func() {
		s.metrics.DecrementActive(ctx, tool)
		s.metrics.RecordInvocation(ctx, tool, time.Since(start), *errp)
	}
}

func (s *Server) handleAsk(ctx context.Context, req *mcp.CallToolRequest, args askInput) (_ *mcp.CallToolResult, _ askOutput, toolErr error) {
	defer s.instrument(ctx, "ask", time.Now(), &toolErr)()

	if strings.TrimSpace(args.Utterance) == "" {
		toolErr = errors.New("invalid input: utterance is required")
		return nil, askOutput{}, toolErr
	}

	r, err := s.services.Session().Handle(ctx, args.Utterance)
	if err != nil {
		toolErr = fmt.Errorf("ask failed: %w", err)
		return nil, askOutput{}, toolErr
	}

	out := askOutput{
		Answer:     s.scrub(r.Text),
		Strategy:   r.Strategy.String(),
		Confidence: r.Confidence,
		State:      r.State.String(),
		Persisted:  r.Persisted,
		End:        r.End,
	}
	s.metrics.RecordAnswer(ctx, "ask", r.Strategy)
	return textResult(out.Answer), out, nil
}

func (s *Server) handleTeach(ctx context.Context, req *mcp.CallToolRequest, args teachInput) (_ *mcp.CallToolResult, _ teachOutput, toolErr error) {
	defer s.instrument(ctx, "teach", time.Now(), &toolErr)()

	e, degraded, err := s.services.Knowledge().TeachOrDegrade(args.Replace, args.Answer, args.Variants)
	if err != nil {
		var dup *knowledge.DuplicateVariantError
		if errors.As(err, &dup) {
			toolErr = fmt.Errorf("invalid input: %w; set replace to rebind it", err)
		} else {
			toolErr = fmt.Errorf("teach failed: %w", err)
		}
		return nil, teachOutput{}, toolErr
	}

	out := teachOutput{ID: e.ID, Variants: e.Variants, Source: string(e.Source)}
	msg := fmt.Sprintf("Stored %s with %d question(s)", e.ID, len(e.Variants))
	if degraded {
		out.Warning = "knowledge file not writable, kept in memory only"
		msg += "; " + out.Warning
		s.logger.Warn("knowledge store degraded to memory-only", zap.String("entry_id", e.ID))
		if err := s.services.Hooks().Execute(ctx, hooks.HookStoreDegraded, map[string]any{"entry_id": e.ID}); err != nil {
			s.logger.Warn("store_degraded hook failed", zap.Error(err))
		}
	}
	return textResult(msg), out, nil
}

func (s *Server) handleLookup(ctx context.Context, req *mcp.CallToolRequest, args lookupInput) (_ *mcp.CallToolResult, _ lookupOutput, toolErr error) {
	defer s.instrument(ctx, "lookup", time.Now(), &toolErr)()

	if textnorm.Normalize(args.Query) == "" {
		toolErr = errors.New("invalid input: query is required")
		return nil, lookupOutput{}, toolErr
	}
	m := s.services.Matcher().Match(args.Query, nil)
	if !m.Found() {
		return textResult("not found"), lookupOutput{Strategy: m.Strategy.String()}, nil
	}
	out := lookupOutput{
		Found:      true,
		ID:         m.Entry.ID,
		Answer:     s.scrub(m.Entry.Answer),
		Variants:   m.Entry.Variants,
		Strategy:   m.Strategy.String(),
		Confidence: m.Score,
	}
	s.metrics.RecordAnswer(ctx, "lookup", m.Strategy)
	return textResult(out.Answer), out, nil
}

const defaultSuggestLimit = 5

func (s *Server) handleSuggest(ctx context.Context, req *mcp.CallToolRequest, args suggestInput) (_ *mcp.CallToolResult, _ suggestOutput, toolErr error) {
	defer s.instrument(ctx, "suggest", time.Now(), &toolErr)()

	if args.Limit < 0 {
		toolErr = errors.New("invalid input: limit must not be negative")
		return nil, suggestOutput{}, toolErr
	}
	limit := args.Limit
	if limit == 0 {
		limit = defaultSuggestLimit
	}

	sg := curation.NewSuggester(s.services.Knowledge().All(), s.services.Matcher().Config().FuzzyThreshold)
	var out suggestOutput
	var lines []string
	for _, sug := range sg.Suggest(args.Topic, limit) {
		out.Suggestions = append(out.Suggestions, suggestion{
			ID:       sug.EntryID,
			Question: sug.Question,
			Topic:    sug.Topic,
			Preview:  s.scrub(sug.Preview),
		})
		lines = append(lines, sug.Question)
	}
	if len(out.Suggestions) == 0 {
		for _, t := range sg.Topics(limit) {
			out.Topics = append(out.Topics, topicCount{Word: t.Word, Entries: t.Entries})
			lines = append(lines, fmt.Sprintf("%s (%d)", t.Word, t.Entries))
		}
	}
	if len(lines) == 0 {
		return textResult("knowledge store is empty"), out, nil
	}
	return textResult(strings.Join(lines, "\n")), out, nil
}

func (s *Server) handleStats(ctx context.Context, req *mcp.CallToolRequest, _ statsInput) (_ *mcp.CallToolResult, _ statsOutput, toolErr error) {
	defer s.instrument(ctx, "knowledge_stats", time.Now(), &toolErr)()

	st := s.services.Knowledge().Stats()
	out := statsOutput{
		Entries:    st.Entries,
		Variants:   st.Variants,
		Persistent: st.Persistent,
		Path:       st.Path,
	}
	return textResult(fmt.Sprintf("%d entries, %d questions", st.Entries, st.Variants)), out, nil
}

func (s *Server) scrub(text string) string {
	return s.services.Scrubber().Scrub(text).Scrubbed
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
