package generative

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/answerd/internal/logging"
)

// ErrUnavailable is returned when no backend is configured or the backend
// is cooling down after being unreachable.
var ErrUnavailable = errors.New("generative backend unavailable")

// ErrEmptyResponse is returned when the backend answers with no text.
var ErrEmptyResponse = errors.New("empty response from generative backend")

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the Generator selected by cfg.
func New(cfg Config, logger *zap.Logger) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case ProviderDisabled:
		return Disabled{}, nil
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.BaseURL),
		)
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithToken(cfg.APIKey.Value()),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Provider, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("generative backend configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.String("base_url", cfg.BaseURL),
		logging.Secret("api_key", cfg.APIKey))
	return NewLLM(model, cfg, logger), nil
}

// Disabled is a Generator that always reports ErrUnavailable.
type Disabled struct{}

// Generate returns ErrUnavailable.
func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// LLM adapts a langchaingo model to Generator.
type LLM struct {
	model       llms.Model
	limiter     *rate.Limiter
	maxRetries  int
	maxTokens   int
	temperature float64
	cooldown    time.Duration
	backoff     time.Duration
	logger      *zap.Logger

	mu        sync.Mutex
	downUntil time.Time
	now       func() time.Time
}

// NewLLM wraps model. A nil logger is allowed.
func NewLLM(model llms.Model, cfg Config, logger *zap.Logger) *LLM {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &LLM{
		model:       model,
		limiter:     rate.NewLimiter(limit, defaultBurst),
		maxRetries:  cfg.MaxRetries,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		cooldown:    cfg.Cooldown,
		backoff:     defaultBaseBackoff,
		logger:      logger,
		now:         time.Now,
	}
}

// Generate sends prompt to the model and returns the trimmed completion.
//
// The call handles:
//   - rate limiting
//   - context cancellation and deadlines
//   - retries with exponential backoff for transient errors
func (g *LLM) Generate(ctx context.Context, prompt string) (string, error) {
	if g.coolingDown() {
		return "", ErrUnavailable
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	msgs := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, SystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := g.complete(ctx, msgs)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if isUnreachable(err) {
			g.markDown()
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		g.logger.Debug("generative attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (g *LLM) complete(ctx context.Context, msgs []llms.MessageContent) (string, error) {
	resp, err := g.model.GenerateContent(ctx, msgs,
		llms.WithMaxTokens(g.maxTokens),
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *LLM) coolingDown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.downUntil)
}

func (g *LLM) markDown() {
	if g.cooldown <= 0 {
		return
	}
	g.mu.Lock()
	g.downUntil = g.now().Add(g.cooldown)
	g.mu.Unlock()
	g.logger.Warn("generative backend unreachable; pausing requests", zap.Duration("cooldown", g.cooldown))
}

// isUnreachable reports whether err means the backend could not be
// contacted at all, as opposed to a failed completion.
func isUnreachable(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}
