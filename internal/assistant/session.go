package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/annotate"
	"github.com/fyrsmithlabs/answerd/internal/conversation"
	"github.com/fyrsmithlabs/answerd/internal/hooks"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/profile"
	"github.com/fyrsmithlabs/answerd/internal/resolver"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

// Fixed replies of the greeting state machine.
const (
	NamePrompt   = "Hello, may I ask your name so I can remember you?"
	NameReprompt = "Sorry, I didn't catch your name. What should I call you?"
	Farewell     = "Goodbye! Have a great day!"
	NotHeard     = "I didn't quite catch that. Could you say it again?"

	acknowledgeFormat = "I'll remember you now, %s. How may I assist you?"
	welcomeFormat     = "Welcome back, %s! How may I assist you today?"
	readyReply        = "How may I assist you today?"
)

// Resolver answers identified utterances.
type Resolver interface {
	Resolve(ctx context.Context, utterance string, hist *conversation.Context, p profile.Profile) (resolver.Result, error)
}

// Reply is the session's response to one utterance.
type Reply struct {
	Text       string            `json:"answer"`
	Strategy   strategy.Strategy `json:"strategy"`
	Confidence float64           `json:"confidence"`
	State      profile.State     `json:"state"`
	Persisted  bool              `json:"persisted"`
	End        bool              `json:"end"`
}

// Config sizes a session.
type Config struct {
	// MinInteractions is how many recorded interactions a named user needs
	// to skip the name prompt.
	MinInteractions int
	HistorySize     int
}

// DefaultConfig returns MinInteractions 1 and an eight-turn history.
func DefaultConfig() Config {
	return Config{MinInteractions: 1, HistorySize: conversation.DefaultCapacity}
}

// Session is one conversation.
type Session struct {
	mu sync.Mutex

	id       string
	resolver Resolver
	profiles *profile.Store
	prof     profile.Profile
	state    profile.State
	hist     *conversation.Context
	turns    int
	ended    bool

	chain  *annotate.Chain
	hooks  *hooks.HookManager
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithAnnotations runs chain over every resolved answer.
func WithAnnotations(chain *annotate.Chain) Option {
	return func(s *Session) { s.chain = chain }
}

// WithHooks fires lifecycle events on hm.
func WithHooks(hm *hooks.HookManager) Option {
	return func(s *Session) { s.hooks = hm }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now for LastSeen stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession loads the profile and picks the initial state.
func NewSession(res Resolver, profiles *profile.Store, cfg Config, opts ...Option) *Session {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = conversation.DefaultCapacity
	}
	s := &Session{
		id:       uuid.NewString(),
		resolver: res,
		profiles: profiles,
		hist:     conversation.New(cfg.HistorySize),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.prof = profiles.Load()
	s.state = profile.InitialState(s.prof, cfg.MinInteractions)
	return s
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() profile.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Profile returns a copy of the user profile.
func (s *Session) Profile() profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prof
}

// History returns the conversation turns, oldest first.
func (s *Session) History() []conversation.Turn {
	return s.hist.Recent()
}

// Ended reports whether the user has said goodbye.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Start returns the opening line. A known user is welcomed back by name; a
// new user is asked for their name.
func (s *Session) Start(ctx context.Context) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = s.withSession(ctx)
	s.fire(ctx, hooks.HookSessionStart)

	switch s.state {
	case profile.Identified:
		if s.hooks.Config().GreetReturning {
			return s.reply(fmt.Sprintf(welcomeFormat, s.prof.Name))
		}
		return s.reply(readyReply)
	case profile.Unknown:
		s.state = profile.NameCollection
		return s.reply(NamePrompt)
	default:
		return s.reply(NamePrompt)
	}
}

// Handle processes one utterance. The only error is the context's; when
// it is returned nothing about the utterance was recorded.
func (s *Session) Handle(ctx context.Context, utterance string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = s.withSession(ctx)
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	if IsFarewell(utterance) {
		return s.farewell(ctx), nil
	}
	if strings.TrimSpace(utterance) == "" {
		return s.reply(NotHeard), nil
	}

	switch s.state {
	case profile.Unknown:
		// The triggering utterance is not answered.
		s.state = profile.NameCollection
		return s.reply(NamePrompt), nil
	case profile.NameCollection:
		return s.collectName(ctx, utterance), nil
	default:
		return s.answer(ctx, utterance)
	}
}

func (s *Session) collectName(ctx context.Context, utterance string) Reply {
	name := profile.ParseName(utterance)
	if name == "" {
		return s.reply(NameReprompt)
	}

	s.prof.Name = name
	// Counted so that a user who gave a name and left is not asked again
	// with the default min_interactions of 1.
	s.prof.Interactions++
	s.save(ctx)
	s.state = profile.Identified
	s.logger.Info(ctx, "user identified", zap.String("name", name))
	s.fire(ctx, hooks.HookIdentified)
	return s.reply(fmt.Sprintf(acknowledgeFormat, name))
}

func (s *Session) answer(ctx context.Context, utterance string) (Reply, error) {
	ctx = logging.WithTurn(ctx, s.turns+1)
	res, err := s.resolver.Resolve(ctx, utterance, s.hist, s.prof)
	if err != nil {
		return Reply{}, err
	}

	s.turns++
	s.prof.Interactions++
	s.save(ctx)
	s.hist.Add(conversation.Turn{
		Utterance: utterance,
		Answer:    res.Answer,
		Strategy:  res.Strategy,
	})

	if res.Persisted() {
		s.fire(ctx, hooks.HookLearned, "entry_id", res.Learning.EntryID)
	}
	if res.Learning.Degraded {
		s.fire(ctx, hooks.HookStoreDegraded)
	}

	text := s.chain.Apply(ctx, annotate.Annotation{
		Utterance:  utterance,
		Answer:     res.Answer,
		Strategy:   res.Strategy,
		Confidence: res.Confidence,
		UserName:   s.prof.Name,
		Turn:       s.turns,
		Learned:    res.Persisted(),
	})
	return Reply{
		Text:       text,
		Strategy:   res.Strategy,
		Confidence: res.Confidence,
		State:      s.state,
		Persisted:  res.Persisted(),
	}, nil
}

func (s *Session) farewell(ctx context.Context) Reply {
	s.ended = true
	if s.state == profile.Identified {
		s.save(ctx)
	}
	s.fire(ctx, hooks.HookSessionEnd)
	r := s.reply(Farewell)
	r.End = true
	return r
}

func (s *Session) reply(text string) Reply {
	return Reply{Text: text, Strategy: strategy.None, State: s.state}
}

func (s *Session) save(ctx context.Context) {
	t := s.now().UTC()
	s.prof.LastSeen = &t
	if err := s.profiles.Save(s.prof); err != nil {
		s.logger.Warn(ctx, "profile not saved", zap.Error(err))
	}
}

// fire runs hook handlers. Handler failures are logged; they never affect
// the reply.
func (s *Session) fire(ctx context.Context, event hooks.HookType, kv ...string) {
	data := map[string]any{
		"session_id": s.id,
		"state":      s.state.String(),
		"name":       s.prof.Name,
	}
	for i := 0; i+1 < len(kv); i += 2 {
		data[kv[i]] = kv[i+1]
	}
	if err := s.hooks.Execute(ctx, event, data); err != nil {
		s.logger.Warn(ctx, "session hook failed", zap.String("event", string(event)), zap.Error(err))
	}
}

func (s *Session) withSession(ctx context.Context) context.Context {
	return logging.WithSessionID(ctx, s.id)
}
