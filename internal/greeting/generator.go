// Package greeting generates the personalized next-call greeting and
// conversation digest from a finished call transcript.
package greeting

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lumivoice/recall/internal/domain"
)

const (
	maxAttempts    = 3
	initialBackoff = time.Second
)

// Generator calls the LLM with bounded retries and parses its constrained
// JSON output. When no API key is configured every Generate call is a no-op.
type Generator struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	enabled   bool
	backoff   time.Duration
	log       *slog.Logger
}

// New creates a generator. An empty apiKey disables generation entirely.
// SDK-internal retries are turned off; this package owns the retry policy.
func New(apiKey, model string, maxTokens int, timeout time.Duration, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}

	g := &Generator{
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
		enabled:   apiKey != "",
		backoff:   initialBackoff,
		log:       log,
	}
	if g.enabled {
		g.client = anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
			option.WithHTTPClient(&http.Client{Timeout: timeout}),
		)
	}
	return g
}

// NewWithClient creates a generator around a pre-built client. Used by tests
// to point the SDK at a stub server.
func NewWithClient(client anthropic.Client, model string, maxTokens int, backoff time.Duration, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{
		client:    client,
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
		enabled:   true,
		backoff:   backoff,
		log:       log,
	}
}

// Enabled reports whether generation is configured.
func (g *Generator) Enabled() bool { return g.enabled }

// Generate produces the next-call greeting for a caller. Up to three attempts
// are made with exponential backoff, retrying only on request-level failure;
// a structurally invalid model response ends the cycle as a failed
// generation. ok=false means "skip personalization, do not block the
// pipeline".
func (g *Generator) Generate(ctx context.Context, agent *domain.AgentProfile, user *domain.UniversalProfile, transcript string, meta *CallMetadata) (*domain.GreetingResult, bool) {
	if !g.enabled {
		g.log.Warn("greeting generation skipped: no LLM credential configured")
		return nil, false
	}

	prompt := buildPrompt(agent, user, transcript, meta)

	backoff := g.backoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := g.complete(ctx, prompt)
		if err != nil {
			g.log.Warn("greeting LLM request failed",
				"attempt", attempt, "max_attempts", maxAttempts, "error", err)
			if attempt < maxAttempts {
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil, false
				}
				backoff *= 2
			}
			continue
		}

		result, parseOK := parseResult(text)
		if !parseOK {
			// Invalid JSON from the model is not retried.
			g.log.Error("greeting response was not valid JSON", "attempt", attempt)
			return nil, false
		}
		return result, true
	}

	g.log.Error("greeting generation failed after all retries")
	return nil, false
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

type rawResult struct {
	NextGreeting        *string  `json:"next_greeting"`
	KeyTopics           []string `json:"key_topics"`
	Sentiment           string   `json:"sentiment"`
	ConversationSummary string   `json:"conversation_summary"`
}

// parseResult decodes the constrained JSON object, defaulting missing fields.
func parseResult(text string) (*domain.GreetingResult, bool) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var raw rawResult
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, false
	}

	result := &domain.GreetingResult{
		NextGreeting:        raw.NextGreeting,
		KeyTopics:           raw.KeyTopics,
		Sentiment:           domain.NormalizeSentiment(raw.Sentiment),
		ConversationSummary: raw.ConversationSummary,
	}
	if result.KeyTopics == nil {
		result.KeyTopics = []string{}
	}
	if raw.NextGreeting != nil && strings.TrimSpace(*raw.NextGreeting) == "" {
		result.NextGreeting = nil
	}
	return result, true
}
