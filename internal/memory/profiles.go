package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lumivoice/recall/internal/domain"
)

// Reserved tags separating profile records from ordinary memory items.
const (
	tagUniversalProfile = "universal_profile"
	tagAgentStatePrefix = "agent_state:"
)

// Profiles is the two-tier profile repository. Tier 1 is the cross-agent
// UniversalProfile keyed by caller; Tier 2 is the per-(caller, agent)
// AgentConversationState.
//
// Reads-then-writes here carry no transactional guarantee: concurrent updates
// for the same caller can race and the last write for a field wins. Accepted
// limitation; call volume per caller is low and sequential in practice.
type Profiles struct {
	client *Client
	log    *slog.Logger
	now    func() time.Time
}

// NewProfiles creates the repository on top of a memory store client.
func NewProfiles(client *Client, log *slog.Logger) *Profiles {
	if log == nil {
		log = slog.Default()
	}
	return &Profiles{client: client, log: log, now: time.Now}
}

// GetUniversalProfile returns the Tier 1 profile for a caller, or ok=false
// when the caller has never interacted with any agent (or the store is down).
func (p *Profiles) GetUniversalProfile(ctx context.Context, caller string) (*domain.UniversalProfile, bool) {
	matches := p.client.Query(ctx, tagUniversalProfile, 20, map[string]any{
		"user_id": caller,
		"tags":    []string{tagUniversalProfile},
	})
	if len(matches) == 0 {
		return nil, false
	}

	// One memory item per field; the newest write for each field wins.
	latest := map[string]fieldValue{}
	for _, m := range matches {
		field, _ := m.Metadata["field"].(string)
		if field == "" {
			continue
		}
		value := metadataString(m.Metadata, "value")
		updatedAt := metadataInt64(m.Metadata, "updated_at")
		if cur, seen := latest[field]; !seen || updatedAt > cur.updatedAt {
			latest[field] = fieldValue{value: value, updatedAt: updatedAt}
		}
	}
	if len(latest) == 0 {
		return nil, false
	}

	profile := &domain.UniversalProfile{}
	if fv, ok := latest["name"]; ok {
		profile.Name = fv.value
	}
	if fv, ok := latest["first_seen"]; ok {
		if ts, err := time.Parse(time.RFC3339, fv.value); err == nil {
			profile.FirstSeen = ts
		}
	}
	if fv, ok := latest["total_interactions"]; ok {
		if n, err := strconv.Atoi(fv.value); err == nil && n >= 0 {
			profile.TotalInteractions = n
		}
	}
	return profile, true
}

// PutUniversalProfile updates Tier 1. A name is only stored when the profile
// does not already carry one; once set it is never overwritten. When
// incrementInteractions is true the interaction counter advances by exactly
// one relative to the value just read.
func (p *Profiles) PutUniversalProfile(ctx context.Context, caller, name string, incrementInteractions bool) bool {
	current, exists := p.GetUniversalProfile(ctx, caller)

	nameToStore := ""
	if name != "" && (!exists || current.Name == "") {
		nameToStore = name
	}

	interactions := 0
	if exists {
		interactions = current.TotalInteractions
	}
	if incrementInteractions {
		interactions++
	}

	ok := true
	if !exists {
		firstSeen := p.now().UTC().Format(time.RFC3339)
		ok = p.putProfileField(ctx, caller, "first_seen", firstSeen,
			fmt.Sprintf("User first seen on %s", firstSeen)) && ok
	}
	if nameToStore != "" {
		ok = p.putProfileField(ctx, caller, "name", nameToStore,
			fmt.Sprintf("User's name is %s", nameToStore)) && ok
	}
	ok = p.putProfileField(ctx, caller, "total_interactions", strconv.Itoa(interactions),
		fmt.Sprintf("User has had %d interactions across all agents", interactions)) && ok

	return ok
}

func (p *Profiles) putProfileField(ctx context.Context, caller, field, value, content string) bool {
	_, ok := p.client.Add(ctx, domain.MemoryItem{
		Content: content,
		Tags:    []string{tagUniversalProfile, field},
		Metadata: map[string]any{
			"field":      field,
			"value":      value,
			"updated_at": p.now().UnixMilli(),
		},
		UserID:      caller,
		Salience:    domain.SalienceProfileFact,
		DecayLambda: domain.DecayPermanent,
	})
	if !ok {
		p.log.Warn("tier1 field write failed", "caller", caller, "field", field)
	}
	return ok
}

// GetAgentState returns the Tier 2 state for a (caller, agent) pair, or
// ok=false on first contact with this agent.
func (p *Profiles) GetAgentState(ctx context.Context, caller, agentID string) (*domain.AgentConversationState, bool) {
	tag := tagAgentStatePrefix + agentID
	matches := p.client.Query(ctx, "agent conversation state", 10, map[string]any{
		"user_id": caller,
		"tags":    []string{tag},
	})
	if len(matches) == 0 {
		return nil, false
	}

	// The state is overwritten wholesale each call; pick the newest item.
	var newest *domain.MemoryMatch
	var newestAt int64 = -1
	for i := range matches {
		at := metadataInt64(matches[i].Metadata, "updated_at")
		if at > newestAt {
			newest = &matches[i]
			newestAt = at
		}
	}
	if newest == nil {
		return nil, false
	}

	md := newest.Metadata
	state := &domain.AgentConversationState{
		NextGreeting:        metadataString(md, "next_greeting"),
		KeyTopics:           metadataStrings(md, "key_topics"),
		Sentiment:           domain.NormalizeSentiment(metadataString(md, "sentiment")),
		ConversationSummary: metadataString(md, "conversation_summary"),
	}
	if ts, err := time.Parse(time.RFC3339, metadataString(md, "last_call_date")); err == nil {
		state.LastCallDate = ts
	}
	state.ConversationCount = int(metadataInt64(md, "conversation_count"))
	return state, true
}

// PutAgentState overwrites Tier 2 for a (caller, agent) pair with a freshly
// generated greeting result, incrementing the conversation count by one over
// the value just read. Read-then-write; same accepted race as Tier 1.
func (p *Profiles) PutAgentState(ctx context.Context, caller, agentID string, result *domain.GreetingResult) bool {
	count := 0
	if prior, ok := p.GetAgentState(ctx, caller, agentID); ok {
		count = prior.ConversationCount
	}
	count++

	greeting := ""
	if result.NextGreeting != nil {
		greeting = *result.NextGreeting
	}
	lastCall := p.now().UTC().Format(time.RFC3339)

	content := fmt.Sprintf("Conversation state with agent %s: %s", agentID, result.ConversationSummary)
	_, ok := p.client.Add(ctx, domain.MemoryItem{
		Content: content,
		Tags:    []string{tagAgentStatePrefix + agentID, "agent_state"},
		Metadata: map[string]any{
			"agent_id":             agentID,
			"next_greeting":        greeting,
			"key_topics":           result.KeyTopics,
			"sentiment":            string(result.Sentiment),
			"conversation_summary": result.ConversationSummary,
			"last_call_date":       lastCall,
			"conversation_count":   count,
			"updated_at":           p.now().UnixMilli(),
		},
		UserID:      caller,
		Salience:    domain.SalienceProfileFact,
		DecayLambda: domain.DecayPermanent,
	})
	if !ok {
		p.log.Warn("tier2 state write failed", "caller", caller, "agent_id", agentID)
	}
	return ok
}

type fieldValue struct {
	value     string
	updatedAt int64
}

func metadataString(md map[string]any, key string) string {
	if md == nil {
		return ""
	}
	switch v := md[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func metadataInt64(md map[string]any, key string) int64 {
	if md == nil {
		return 0
	}
	switch v := md[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return n
		}
	}
	return 0
}

func metadataStrings(md map[string]any, key string) []string {
	if md == nil {
		return nil
	}
	switch v := md[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return nil
	}
}
