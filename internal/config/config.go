// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port string

	// Webhook authentication secrets.
	PostCallHMACSecret string
	ClientDataAPIKey   string
	SearchDataAPIKey   string

	// Remote memory store.
	MemoryStoreURL string
	MemoryStoreKey string
	MemoryTimeout  time.Duration

	// Voice-agent management API.
	AgentAPIURL   string
	AgentAPIKey   string
	AgentCacheTTL time.Duration

	// Greeting generation.
	AnthropicAPIKey   string
	AnthropicModel    string
	GreetingMaxTokens int
	LLMTimeout        time.Duration

	// Post-call processing.
	PayloadStoragePath string
	DeadLetterDBPath   string
	PostCallWorkers    int
	PostCallQueueSize  int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		PostCallHMACSecret: getEnv("POST_CALL_HMAC_SECRET", ""),
		ClientDataAPIKey:   getEnv("CLIENT_DATA_API_KEY", ""),
		SearchDataAPIKey:   getEnv("SEARCH_DATA_API_KEY", ""),
		MemoryStoreURL:     strings.TrimRight(getEnv("MEMORY_STORE_URL", ""), "/"),
		MemoryStoreKey:     getEnv("MEMORY_STORE_KEY", ""),
		MemoryTimeout:      time.Duration(getEnvInt("MEMORY_TIMEOUT_SECONDS", 10)) * time.Second,
		AgentAPIURL:        strings.TrimRight(getEnv("AGENT_API_URL", "https://api.elevenlabs.io"), "/"),
		AgentAPIKey:        getEnv("AGENT_API_KEY", ""),
		AgentCacheTTL:      time.Duration(getEnvInt("AGENT_CACHE_TTL_HOURS", 24)) * time.Hour,
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		GreetingMaxTokens:  getEnvInt("GREETING_MAX_TOKENS", 512),
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		PayloadStoragePath: getEnv("PAYLOAD_STORAGE_PATH", "./data/payloads"),
		DeadLetterDBPath:   getEnv("DEADLETTER_DB_PATH", "./data/deadletter.db"),
		PostCallWorkers:    getEnvInt("POSTCALL_WORKERS", 8),
		PostCallQueueSize:  getEnvInt("POSTCALL_QUEUE_SIZE", 64),
	}

	if cfg.PostCallWorkers <= 0 {
		cfg.PostCallWorkers = 8
	}
	if cfg.PostCallQueueSize <= 0 {
		cfg.PostCallQueueSize = 64
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"POST_CALL_HMAC_SECRET", c.PostCallHMACSecret},
		{"CLIENT_DATA_API_KEY", c.ClientDataAPIKey},
		{"SEARCH_DATA_API_KEY", c.SearchDataAPIKey},
		{"MEMORY_STORE_URL", c.MemoryStoreURL},
		{"AGENT_API_KEY", c.AgentAPIKey},
		{"PAYLOAD_STORAGE_PATH", c.PayloadStoragePath},
		{"DEADLETTER_DB_PATH", c.DeadLetterDBPath},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.MemoryTimeout <= 0 {
		return fmt.Errorf("MEMORY_TIMEOUT_SECONDS must be > 0")
	}
	if c.AgentCacheTTL <= 0 {
		return fmt.Errorf("AGENT_CACHE_TTL_HOURS must be > 0")
	}
	return nil
}

// GreetingEnabled reports whether greeting generation is configured.
// Without an API key the generator is a no-op and Tier 2 is never written.
func (c *Config) GreetingEnabled() bool {
	return c.AnthropicAPIKey != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
