// Package domain defines the core types shared across the service.
package domain

import "time"

// UniversalProfile is the Tier 1 cross-agent identity record, keyed by the
// caller's phone number in E.164 form.
type UniversalProfile struct {
	Name              string    `json:"name,omitempty"`
	FirstSeen         time.Time `json:"first_seen"`
	TotalInteractions int       `json:"total_interactions"`
}

// AgentConversationState is the Tier 2 per-(caller, agent) record. It is
// overwritten wholesale on each processed call; only the latest state is kept.
type AgentConversationState struct {
	NextGreeting        string    `json:"next_greeting,omitempty"`
	KeyTopics           []string  `json:"key_topics"`
	Sentiment           Sentiment `json:"sentiment"`
	ConversationSummary string    `json:"conversation_summary"`
	LastCallDate        time.Time `json:"last_call_date"`
	ConversationCount   int       `json:"conversation_count"`
}

// Sentiment classifies the caller's mood as assessed from the transcript.
type Sentiment string

const (
	SentimentSatisfied  Sentiment = "satisfied"
	SentimentNeutral    Sentiment = "neutral"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentConfused   Sentiment = "confused"
)

// NormalizeSentiment maps arbitrary model output onto the four-value enum,
// defaulting to neutral.
func NormalizeSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentSatisfied, SentimentNeutral, SentimentFrustrated, SentimentConfused:
		return Sentiment(s)
	default:
		return SentimentNeutral
	}
}

// GreetingResult is the parsed output of one greeting generation.
// NextGreeting is nil when the model decides no personalized greeting is
// appropriate (first call, no name captured).
type GreetingResult struct {
	NextGreeting        *string   `json:"next_greeting"`
	KeyTopics           []string  `json:"key_topics"`
	Sentiment           Sentiment `json:"sentiment"`
	ConversationSummary string    `json:"conversation_summary"`
}

// AgentProfile is the cached static configuration of one upstream voice agent.
type AgentProfile struct {
	AgentID      string    `json:"agent_id"`
	AgentName    string    `json:"agent_name"`
	FirstMessage string    `json:"first_message"`
	SystemPrompt string    `json:"system_prompt"`
	CachedAt     time.Time `json:"cached_at"`
}
