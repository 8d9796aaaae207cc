package memory

import (
	"context"
	"strings"

	"github.com/lumivoice/recall/internal/domain"
)

// StoreProfileFacts writes each extracted caller fact as its own permanent
// high-salience memory item. Returns the number of items stored; failures are
// logged and skipped, never fatal.
func (p *Profiles) StoreProfileFacts(ctx context.Context, caller string, facts map[string]string, cc *domain.ConversationContext) int {
	stored := 0
	for key, value := range facts {
		if value == "" {
			continue
		}
		content := FormatProfileContent(key, value)
		if content == "" {
			continue
		}

		metadata := map[string]any{
			"field": key,
			"value": value,
		}
		cc.Apply(metadata)

		if _, ok := p.client.Add(ctx, domain.MemoryItem{
			Content:     content,
			Tags:        []string{"profile", key},
			Metadata:    metadata,
			UserID:      caller,
			Salience:    domain.SalienceProfileFact,
			DecayLambda: domain.DecayPermanent,
		}); ok {
			stored++
		} else {
			p.log.Warn("profile fact write failed", "caller", caller, "field", key)
		}
	}
	return stored
}

// StoreUtterances writes each caller utterance as a permanent medium-salience
// memory item, preserving in-call timing. Messages under 3 characters are
// skipped. Returns the number of items stored.
func (p *Profiles) StoreUtterances(ctx context.Context, caller string, messages []domain.TranscriptEntry, cc *domain.ConversationContext) int {
	stored := 0
	for idx, msg := range messages {
		if len(msg.Message) < 3 {
			continue
		}

		metadata := map[string]any{
			"message_index":     idx,
			"type":              "user_utterance",
			"time_in_call_secs": msg.TimeInCallSecs,
		}
		cc.Apply(metadata)

		if _, ok := p.client.Add(ctx, domain.MemoryItem{
			Content:     msg.Message,
			Tags:        []string{"conversation", "user_message"},
			Metadata:    metadata,
			UserID:      caller,
			Salience:    domain.SalienceUtterance,
			DecayLambda: domain.DecayPermanent,
		}); ok {
			stored++
		} else {
			p.log.Warn("utterance write failed", "caller", caller, "index", idx)
		}
	}
	return stored
}

// Search runs a caller-scoped memory search for the search-data server tool.
// It assembles a lightweight profile from high-salience matches alongside the
// raw ranked results. Empty results are returned as empty, never as an error.
func (p *Profiles) Search(ctx context.Context, caller, query string, limit int) (name, summary string, matches []domain.MemoryMatch) {
	if limit <= 0 {
		limit = 10
	}
	matches = p.client.Query(ctx, query, limit, map[string]any{"user_id": caller})

	var summaryParts []string
	for _, m := range matches {
		if field, _ := m.Metadata["field"].(string); field == "first_name" || field == "name" {
			if v := metadataString(m.Metadata, "value"); v != "" && name == "" {
				name = v
			}
		}
		if m.Content != "" && m.Salience > 0.7 && !IsFiller(m.Content) && len(summaryParts) < 3 {
			summaryParts = append(summaryParts, m.Content)
		}
	}
	if len(summaryParts) > 0 {
		summary = strings.Join(summaryParts, " ")
	}
	return name, summary, matches
}
