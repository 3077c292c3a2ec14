package hooks

import (
	"context"
	"fmt"
	"sync"
)

// HookType represents different lifecycle hooks
type HookType string

const (
	// HookSessionStart is called when a new session starts
	HookSessionStart HookType = "session_start"

	// HookSessionEnd is called when the user says goodbye
	HookSessionEnd HookType = "session_end"

	// HookIdentified is called when a new user has given their name
	HookIdentified HookType = "identified"

	// HookLearned is called when a generative answer was stored
	HookLearned HookType = "learned"

	// HookStoreDegraded is called when the knowledge file could not be written
	HookStoreDegraded HookType = "store_degraded"
)

// Config holds hook configuration
type Config struct {
	// GreetReturning greets a known user by name when the session starts
	GreetReturning bool `json:"greet_returning"`

	// AnnounceLearning tells the user when an answer has been remembered
	AnnounceLearning bool `json:"announce_learning"`

	// PersonalizeEvery addresses the user by name on every Nth stored
	// answer (0 disables, max 50)
	PersonalizeEvery int `json:"personalize_every"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.PersonalizeEvery < 0 || c.PersonalizeEvery > 50 {
		return fmt.Errorf("personalize_every must be between 0 and 50, got %d", c.PersonalizeEvery)
	}
	return nil
}

// HookHandler is a function that handles a hook event
type HookHandler func(ctx context.Context, data map[string]any) error

// HookManager manages lifecycle hooks
type HookManager struct {
	config *Config

	mu       sync.RWMutex
	handlers map[HookType][]HookHandler
}

// NewHookManager creates a new hook manager. A nil config selects
// DefaultConfig().
func NewHookManager(config *Config) *HookManager {
	if config == nil {
		config = DefaultConfig()
	}
	return &HookManager{
		config:   config,
		handlers: make(map[HookType][]HookHandler),
	}
}

// RegisterHandler registers a handler for a hook type
func (h *HookManager) RegisterHandler(hookType HookType, handler HookHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[hookType] = append(h.handlers[hookType], handler)
}

// Execute executes all handlers for the given hook type, stopping at the
// first error. A nil manager does nothing.
func (h *HookManager) Execute(ctx context.Context, hookType HookType, data map[string]any) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	handlers := h.handlers[hookType]
	h.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, data); err != nil {
			return fmt.Errorf("hook %s failed: %w", hookType, err)
		}
	}

	return nil
}

// Config returns the hook configuration
func (h *HookManager) Config() *Config {
	if h == nil {
		return DefaultConfig()
	}
	return h.config
}
