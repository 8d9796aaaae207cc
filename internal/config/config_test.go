package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POST_CALL_HMAC_SECRET", "hmac")
	t.Setenv("CLIENT_DATA_API_KEY", "ck")
	t.Setenv("SEARCH_DATA_API_KEY", "sk")
	t.Setenv("MEMORY_STORE_URL", "http://memory.internal/")
	t.Setenv("AGENT_API_KEY", "xi")
	t.Setenv("PAYLOAD_STORAGE_PATH", "/tmp/payloads")
	t.Setenv("DEADLETTER_DB_PATH", "/tmp/deadletter.db")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.MemoryStoreURL != "http://memory.internal" {
		t.Errorf("trailing slash not trimmed: %q", cfg.MemoryStoreURL)
	}
	if cfg.MemoryTimeout != 10*time.Second {
		t.Errorf("MemoryTimeout = %v", cfg.MemoryTimeout)
	}
	if cfg.AgentCacheTTL != 24*time.Hour {
		t.Errorf("AgentCacheTTL = %v", cfg.AgentCacheTTL)
	}
	if cfg.AgentAPIURL != "https://api.elevenlabs.io" {
		t.Errorf("AgentAPIURL = %q", cfg.AgentAPIURL)
	}
	if cfg.PostCallWorkers != 8 || cfg.PostCallQueueSize != 64 {
		t.Errorf("pool defaults = %d/%d", cfg.PostCallWorkers, cfg.PostCallQueueSize)
	}
	if cfg.GreetingEnabled() {
		t.Error("greeting should be disabled without ANTHROPIC_API_KEY")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("AGENT_CACHE_TTL_HOURS", "6")
	t.Setenv("POSTCALL_WORKERS", "2")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.AgentCacheTTL != 6*time.Hour {
		t.Errorf("AgentCacheTTL = %v", cfg.AgentCacheTTL)
	}
	if cfg.PostCallWorkers != 2 {
		t.Errorf("PostCallWorkers = %d", cfg.PostCallWorkers)
	}
	if !cfg.GreetingEnabled() {
		t.Error("greeting should be enabled with ANTHROPIC_API_KEY")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POST_CALL_HMAC_SECRET", "")
	t.Setenv("SEARCH_DATA_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required variables")
	}
	if !strings.Contains(err.Error(), "POST_CALL_HMAC_SECRET") ||
		!strings.Contains(err.Error(), "SEARCH_DATA_API_KEY") {
		t.Errorf("error does not name the missing variables: %v", err)
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MEMORY_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MemoryTimeout != 10*time.Second {
		t.Errorf("MemoryTimeout = %v, want the 10s default", cfg.MemoryTimeout)
	}
}
