package generative

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/answerd/internal/config"
)

const (
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderDisabled = "disabled"

	defaultOllamaModel = "phi3"
	defaultOllamaURL   = "http://localhost:11434"
	defaultOpenAIModel = "gpt-4o-mini"

	defaultMaxTokens   = 60
	defaultRateLimit   = 2.0
	defaultBurst       = 1
	defaultBaseBackoff = 250 * time.Millisecond
	defaultCooldown    = 30 * time.Second

	// SystemPrompt frames every completion.
	SystemPrompt = "You are a helpful assistant. Give concise, accurate answers in one or two sentences."
)

// Config selects and tunes a backend.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      config.Secret
	MaxTokens   int
	Temperature float64
	RateLimit   float64 // requests per second; <= 0 disables limiting
	MaxRetries  int
	// Cooldown is how long the generator reports ErrUnavailable after the
	// backend could not be reached at all.
	Cooldown time.Duration
}

// FromSettings converts the generative section of the configuration file.
func FromSettings(s config.GenerativeConfig) Config {
	return Config{
		Provider:    s.Provider,
		Model:       s.Model,
		BaseURL:     s.BaseURL,
		APIKey:      s.APIKey,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		RateLimit:   s.RateLimit,
		MaxRetries:  s.MaxRetries,
		Cooldown:    defaultCooldown,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	switch c.Provider {
	case ProviderOllama:
		if c.Model == "" {
			c.Model = defaultOllamaModel
		}
		if c.BaseURL == "" {
			c.BaseURL = defaultOllamaURL
		}
	case ProviderOpenAI:
		if c.Model == "" {
			c.Model = defaultOpenAIModel
		}
	}
	return c
}

// Validate checks provider-specific requirements.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOllama, ProviderDisabled:
	case ProviderOpenAI:
		if !c.APIKey.IsSet() {
			return fmt.Errorf("openai API key required")
		}
	default:
		return fmt.Errorf("unknown generative provider %q", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0,2], got %v", c.Temperature)
	}
	return nil
}
