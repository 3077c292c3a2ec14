// Package config provides configuration loading for answerd.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then environment variables. See LoadWithFile for precedence details.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the complete answerd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Knowledge     KnowledgeConfig     `koanf:"knowledge"`
	Matcher       MatcherConfig       `koanf:"matcher"`
	Generative    GenerativeConfig    `koanf:"generative"`
	Static        StaticConfig        `koanf:"static"`
	Profile       ProfileConfig       `koanf:"profile"`
	Conversation  ConversationConfig  `koanf:"conversation"`
	Secrets       SecretsConfig       `koanf:"secrets"`
	Hooks         HooksConfig         `koanf:"hooks"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"http_host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// KnowledgeConfig locates the knowledge file.
type KnowledgeConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"` // reload on external edits
}

// MatcherConfig holds the fuzzy matching policy.
//
// The acceptance threshold is tunable; values between 0.80 and 0.88 reproduce
// the behavior the knowledge files were curated against.
type MatcherConfig struct {
	FuzzyThreshold float64 `koanf:"fuzzy_threshold"`
	OverlapWeight  float64 `koanf:"overlap_weight"`
	EditWeight     float64 `koanf:"edit_weight"`
}

// GenerativeConfig configures the generative fallback collaborator.
type GenerativeConfig struct {
	Provider     string   `koanf:"provider"` // ollama, openai, disabled
	Model        string   `koanf:"model"`
	BaseURL      string   `koanf:"base_url"`
	APIKey       Secret   `koanf:"api_key"`
	Timeout      Duration `koanf:"timeout"`
	MaxTokens    int      `koanf:"max_tokens"`
	Temperature  float64  `koanf:"temperature"`
	RateLimit    float64  `koanf:"rate_limit"` // requests per second
	MaxRetries   int      `koanf:"max_retries"`
	Confidence   float64  `koanf:"confidence"`
	HistoryTurns int      `koanf:"history_turns"`
}

// StaticConfig configures the canned-pattern fallback.
type StaticConfig struct {
	PatternsPath string  `koanf:"patterns_path"` // empty uses the embedded patterns
	Confidence   float64 `koanf:"confidence"`
}

// ProfileConfig configures user profile persistence.
type ProfileConfig struct {
	Path string `koanf:"path"`

	// MinInteractions is how many recorded interactions a named user needs
	// to skip name collection. Interactions counts every resolved utterance
	// plus the turn in which the name was given.
	MinInteractions int `koanf:"min_interactions"`
}

// ConversationConfig sizes the rolling conversation history.
type ConversationConfig struct {
	HistorySize int `koanf:"history_size"`
}

// SecretsConfig controls scrubbing of utterances before they leave the
// process or are learned.
type SecretsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistPath string `koanf:"allowlist_path"` // TOML, see secrets.LoadAllowList
}

// HooksConfig locates the session hooks file.
type HooksConfig struct {
	Path string `koanf:"path"` // JSON, see hooks.LoadConfig
}

// LoggingConfig holds the logging overrides exposed through the config file.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	Protocol        string `koanf:"protocol"`
	Insecure        bool   `koanf:"insecure"`
}

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Knowledge: KnowledgeConfig{
			Path:  "~/.config/answerd/knowledge.json",
			Watch: true,
		},
		Matcher: MatcherConfig{
			FuzzyThreshold: 0.80,
			OverlapWeight:  0.6,
			EditWeight:     0.4,
		},
		Generative: GenerativeConfig{
			Provider:     "ollama",
			Model:        "phi3",
			BaseURL:      "http://localhost:11434",
			Timeout:      Duration(15 * time.Second),
			MaxTokens:    60,
			Temperature:  0.7,
			RateLimit:    2,
			MaxRetries:   1,
			Confidence:   0.6,
			HistoryTurns: 3,
		},
		Static: StaticConfig{
			Confidence: 0.1,
		},
		Profile: ProfileConfig{
			Path:            "~/.config/answerd/user_profile.json",
			MinInteractions: 1,
		},
		Conversation: ConversationConfig{
			HistorySize: 8,
		},
		Secrets: SecretsConfig{
			Enabled:       true,
			AllowlistPath: "~/.config/answerd/allowlist.toml",
		},
		Hooks: HooksConfig{
			Path: "~/.config/answerd/hooks.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: false,
			ServiceName:     "answerd",
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			Insecure:        true,
		},
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - A timeout is not positive
//   - A threshold or confidence is outside [0, 1]
//   - Matcher weights do not sum to 1
//   - Generative confidence is not strictly below the fuzzy threshold
//   - Static confidence is above generative confidence
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Knowledge.Path == "" {
		return errors.New("knowledge path is required")
	}

	m := c.Matcher
	if !unit(m.FuzzyThreshold) {
		return fmt.Errorf("matcher.fuzzy_threshold must be in [0,1], got %v", m.FuzzyThreshold)
	}
	if m.OverlapWeight < 0 || m.EditWeight < 0 {
		return errors.New("matcher weights must not be negative")
	}
	if math.Abs(m.OverlapWeight+m.EditWeight-1) > 1e-9 {
		return fmt.Errorf("matcher weights must sum to 1, got %v", m.OverlapWeight+m.EditWeight)
	}

	g := c.Generative
	switch g.Provider {
	case "ollama", "openai", "disabled":
	default:
		return fmt.Errorf("unknown generative provider %q", g.Provider)
	}
	if g.Timeout.Duration() <= 0 {
		return errors.New("generative timeout must be positive")
	}
	if !unit(g.Confidence) || g.Confidence >= m.FuzzyThreshold {
		return fmt.Errorf("generative.confidence must be in [0,%v), got %v", m.FuzzyThreshold, g.Confidence)
	}
	if g.MaxRetries < 0 {
		return errors.New("generative.max_retries must be >= 0")
	}

	if !unit(c.Static.Confidence) || c.Static.Confidence > g.Confidence {
		return fmt.Errorf("static.confidence must be in [0,%v], got %v", g.Confidence, c.Static.Confidence)
	}

	if c.Profile.Path == "" {
		return errors.New("profile path is required")
	}
	if c.Profile.MinInteractions < 0 {
		return errors.New("profile.min_interactions must be >= 0")
	}
	if c.Conversation.HistorySize < 1 {
		return errors.New("conversation.history_size must be >= 1")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
