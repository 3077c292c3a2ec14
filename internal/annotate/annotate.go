// Package annotate runs add-on hooks over a resolved answer. Hooks may
// append text; they see a copy of the result and cannot change which
// strategy answered or how confident it was.
package annotate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

// Annotation is what a hook sees of a resolved answer.
type Annotation struct {
	Utterance  string
	Answer     string
	Strategy   strategy.Strategy
	Confidence float64
	UserName   string // empty when the user is not identified
	Turn       int    // 1-based count of resolved utterances this session
	Learned    bool   // the answer was just added to the knowledge store
}

// Hook returns text to append to the answer, or "".
type Hook interface {
	Annotate(ctx context.Context, a Annotation) string
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, a Annotation) string

func (f HookFunc) Annotate(ctx context.Context, a Annotation) string { return f(ctx, a) }

// Chain runs hooks in order.
type Chain struct {
	hooks  []Hook
	logger *logging.Logger
}

// NewChain returns a Chain. A nil logger discards hook failures.
func NewChain(logger *logging.Logger, hooks ...Hook) *Chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chain{hooks: hooks, logger: logger}
}

// Add appends a hook.
func (c *Chain) Add(h Hook) {
	c.hooks = append(c.hooks, h)
}

// Len returns the number of hooks.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.hooks)
}

// Apply returns a.Answer followed by every non-empty hook suffix, space
// separated. A panicking hook is logged and skipped.
func (c *Chain) Apply(ctx context.Context, a Annotation) string {
	if c == nil || len(c.hooks) == 0 {
		return a.Answer
	}
	parts := []string{a.Answer}
	for i, h := range c.hooks {
		if s := strings.TrimSpace(c.run(ctx, i, h, a)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (c *Chain) run(ctx context.Context, i int, h Hook, a Annotation) (out string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn(ctx, "annotation hook panicked",
				zap.Int("hook", i),
				zap.String("panic", fmt.Sprint(r)))
			out = ""
		}
	}()
	return h.Annotate(ctx, a)
}
