package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// ConfigFile represents the structure of the hooks file
type ConfigFile struct {
	Hooks *Config `json:"hooks"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		GreetReturning:   true,
		AnnounceLearning: false,
		PersonalizeEvery: 3,
	}
}

// LoadConfig loads configuration from a JSON file
// Returns default config if file doesn't exist
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hooks file: %w", err)
	}

	// Fields missing from the file keep their defaults.
	configFile := ConfigFile{Hooks: DefaultConfig()}
	if err := json.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse hooks file: %w", err)
	}
	if configFile.Hooks == nil {
		return DefaultConfig(), nil
	}

	if err := configFile.Hooks.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return configFile.Hooks, nil
}

// LoadConfigWithEnvOverride loads config from file and applies environment variable overrides
func LoadConfigWithEnvOverride(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if val := os.Getenv("ANSWERD_GREET_RETURNING"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.GreetReturning = b
		}
	}

	if val := os.Getenv("ANSWERD_ANNOUNCE_LEARNING"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.AnnounceLearning = b
		}
	}

	if val := os.Getenv("ANSWERD_PERSONALIZE_EVERY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.PersonalizeEvery = i
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config after env override: %w", err)
	}

	return config, nil
}
