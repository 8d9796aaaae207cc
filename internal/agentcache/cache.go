// Package agentcache caches per-agent static configuration fetched from the
// voice-agent platform's management API.
//
// Entries live for a configurable TTL (24h default). A miss or an expired
// entry triggers exactly one upstream fetch; an expired value is never
// returned. Upstream 404 and failures yield an absent result without caching.
package agentcache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/lumivoice/recall/internal/domain"
)

// Fetcher retrieves an agent profile from the upstream management API.
// ok is false when the agent does not exist or the upstream is unavailable.
type Fetcher interface {
	FetchAgentProfile(ctx context.Context, agentID string) (*domain.AgentProfile, bool)
}

// Cache is a process-wide TTL cache of agent profiles. Safe for concurrent
// use by many background tasks.
type Cache struct {
	cache   *ristretto.Cache
	fetcher Fetcher
	ttl     time.Duration
	log     *slog.Logger
}

// New creates a cache backed by the given fetcher. ttl <= 0 selects the
// 24-hour default.
func New(fetcher Fetcher, ttl time.Duration, log *slog.Logger) (*Cache, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}

	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create agent profile cache: %w", err)
	}

	return &Cache{cache: rc, fetcher: fetcher, ttl: ttl, log: log}, nil
}

// Get returns the agent's profile, from cache when fresh, otherwise fetched
// from upstream and cached. ok is false when the agent is unknown or the
// upstream is unreachable; nothing is cached in that case.
func (c *Cache) Get(ctx context.Context, agentID string) (*domain.AgentProfile, bool) {
	if v, found := c.cache.Get(agentID); found {
		if profile, castOK := v.(*domain.AgentProfile); castOK {
			c.log.Debug("agent profile cache hit", "agent_id", agentID)
			return profile, true
		}
	}

	profile, ok := c.fetcher.FetchAgentProfile(ctx, agentID)
	if !ok {
		return nil, false
	}

	profile.CachedAt = time.Now().UTC()
	c.cache.SetWithTTL(agentID, profile, 1, c.ttl)
	// Make the write visible before returning so a follow-up Get hits.
	c.cache.Wait()

	c.log.Info("cached agent profile", "agent_id", agentID, "agent_name", profile.AgentName)
	return profile, true
}

// Invalidate drops a single agent's entry, forcing a fresh fetch next time.
func (c *Cache) Invalidate(agentID string) {
	c.cache.Del(agentID)
	c.cache.Wait()
	c.log.Info("invalidated agent profile", "agent_id", agentID)
}

// InvalidateAll clears the entire cache.
func (c *Cache) InvalidateAll() {
	c.cache.Clear()
	c.log.Info("invalidated all agent profiles")
}

// APIFetcher fetches agent configuration from the platform management API
// (GET {base}/v1/convai/agents/{id}, authenticated with an xi-api-key header).
type APIFetcher struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     *slog.Logger
}

// NewAPIFetcher creates the production fetcher. timeout <= 0 selects 30s.
func NewAPIFetcher(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) *APIFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &APIFetcher{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Upstream response shape: the agent config is nested under
// conversation_config.agent.
type agentAPIResponse struct {
	Name               string `json:"name"`
	ConversationConfig struct {
		Agent struct {
			FirstMessage string `json:"first_message"`
			Prompt       struct {
				Prompt string `json:"prompt"`
			} `json:"prompt"`
		} `json:"agent"`
	} `json:"conversation_config"`
}

// FetchAgentProfile implements Fetcher.
func (f *APIFetcher) FetchAgentProfile(ctx context.Context, agentID string) (*domain.AgentProfile, bool) {
	endpoint := f.baseURL + "/v1/convai/agents/" + url.PathEscape(agentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		f.log.Error("agent profile fetch: build request", "error", err)
		return nil, false
	}
	req.Header.Set("xi-api-key", f.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpc.Do(req)
	if err != nil {
		f.log.Warn("agent profile fetch failed", "agent_id", agentID, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		f.log.Warn("agent not found upstream", "agent_id", agentID)
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		f.log.Warn("agent profile fetch: non-200 response", "agent_id", agentID, "status", resp.StatusCode)
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Warn("agent profile fetch: read body", "agent_id", agentID, "error", err)
		return nil, false
	}

	var parsed agentAPIResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		f.log.Warn("agent profile fetch: unexpected response body", "agent_id", agentID, "error", err)
		return nil, false
	}

	profile := &domain.AgentProfile{
		AgentID:      agentID,
		AgentName:    parsed.Name,
		FirstMessage: parsed.ConversationConfig.Agent.FirstMessage,
		SystemPrompt: parsed.ConversationConfig.Agent.Prompt.Prompt,
	}
	if profile.AgentName == "" {
		profile.AgentName = "AI Assistant"
	}
	if profile.FirstMessage == "" {
		profile.FirstMessage = "Hello, how can I help you?"
	}
	return profile, true
}
