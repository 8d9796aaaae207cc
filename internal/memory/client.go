// Package memory talks to the remote long-term memory store and maintains
// the two-tier caller profiles built on top of it.
//
// The store is reached over a small HTTP contract: POST /memory/add,
// POST /memory/query and GET /users/{id}/summary. Every method on Client
// degrades to an empty or absent result on upstream failure; errors are
// logged here and never cross the package boundary.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/lumivoice/recall/internal/domain"
)

// Client is a thin request/response wrapper around the memory store API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     *slog.Logger
}

// NewClient creates a memory store client. timeout bounds every call;
// zero selects the 10s default.
func NewClient(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		log:     log,
	}
}

type addResponse struct {
	ID string `json:"id"`
}

type queryRequest struct {
	Query   string         `json:"query"`
	K       int            `json:"k"`
	Filters map[string]any `json:"filters"`
}

type queryResponse struct {
	Matches []domain.MemoryMatch `json:"matches"`
}

type summaryResponse struct {
	UserID  string `json:"user_id"`
	Summary string `json:"summary"`
}

// Add stores one memory item and returns its id. ok is false when the store
// is unreachable or rejects the write.
func (c *Client) Add(ctx context.Context, item domain.MemoryItem) (string, bool) {
	body, err := json.Marshal(item)
	if err != nil {
		c.log.Error("memory add: marshal item", "error", err)
		return "", false
	}

	data, err := c.post(ctx, "/memory/add", body)
	if err != nil {
		c.log.Warn("memory add failed", "user_id", item.UserID, "error", err)
		return "", false
	}

	var resp addResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.log.Warn("memory add: unexpected response body", "error", err)
		return "", false
	}
	return resp.ID, true
}

// Query runs a ranked similarity search. The result is empty (never nil
// dereference territory) on any upstream failure.
func (c *Client) Query(ctx context.Context, query string, k int, filters map[string]any) []domain.MemoryMatch {
	body, err := json.Marshal(queryRequest{Query: query, K: k, Filters: filters})
	if err != nil {
		c.log.Error("memory query: marshal request", "error", err)
		return nil
	}

	data, err := c.post(ctx, "/memory/query", body)
	if err != nil {
		c.log.Warn("memory query failed", "query", query, "error", err)
		return nil
	}

	var resp queryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.log.Warn("memory query: unexpected response body", "error", err)
		return nil
	}
	return resp.Matches
}

// UserSummary fetches and parses the advisory summary digest for a user.
// Absent on 404 or any failure. The digest is advisory: a zero memory count
// here does not preclude a direct query from finding results.
func (c *Client) UserSummary(ctx context.Context, userID string) (*domain.UserSummary, bool) {
	endpoint := c.baseURL + "/users/" + url.PathEscape(userID) + "/summary"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.log.Error("memory summary: build request", "error", err)
		return nil, false
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn("memory summary failed", "user_id", userID, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("memory summary: non-200 response", "user_id", userID, "status", resp.StatusCode)
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("memory summary: read body", "error", err)
		return nil, false
	}

	var sr summaryResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		c.log.Warn("memory summary: unexpected response body", "error", err)
		return nil, false
	}

	return parseSummaryDigest(sr.Summary), true
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, snippet)
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// Digest format, by example:
//
//	3 memories, 1 patterns | low | avg_sal=0.40 | top: semantic(1, sal=0.36): "founder of Arbez..."
var (
	digestCountRe   = regexp.MustCompile(`^(\d+)\s+memories?`)
	digestLevelRe   = regexp.MustCompile(`\|\s*(low|medium|high)\s*\|`)
	digestContentRe = regexp.MustCompile(`top:.*?:\s*"([^"]+)"`)
)

func parseSummaryDigest(digest string) *domain.UserSummary {
	s := &domain.UserSummary{ActivityLevel: "none"}
	if digest == "" {
		return s
	}

	if m := digestCountRe.FindStringSubmatch(digest); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			s.MemoryCount = n
		}
	}
	if m := digestLevelRe.FindStringSubmatch(digest); m != nil {
		s.ActivityLevel = m[1]
	}
	if m := digestContentRe.FindStringSubmatch(digest); m != nil {
		s.TopContent = m[1]
	}
	return s
}
