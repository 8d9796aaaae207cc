package greeting

import (
	"fmt"
	"strings"

	"github.com/lumivoice/recall/internal/domain"
)

// transcriptContextChars is how much trailing transcript the prompt keeps.
const transcriptContextChars = 2000

// CallMetadata carries per-call context into prompt construction.
type CallMetadata struct {
	DurationSecs    int
	LastCallDate    string
	ClientTimestamp string
}

const systemPrompt = "You are a helpful assistant that generates personalized greetings for voice AI agents. Always respond with valid JSON only."

// buildPrompt assembles the structured generation prompt from the agent
// profile, the caller's Tier 1 profile and the conversation transcript.
func buildPrompt(agent *domain.AgentProfile, user *domain.UniversalProfile, transcript string, meta *CallMetadata) string {
	agentRole := "AI assistant"
	if agent.SystemPrompt != "" {
		firstSentence, _, _ := strings.Cut(agent.SystemPrompt, ".")
		if len(firstSentence) > 100 {
			firstSentence = firstSentence[:100]
		}
		if firstSentence != "" {
			agentRole = firstSentence
		}
	}

	userName := "Not yet known"
	totalInteractions := 1
	if user != nil {
		if user.Name != "" {
			userName = user.Name
		}
		if user.TotalInteractions > 0 {
			totalInteractions = user.TotalInteractions
		}
	}

	lastCall := "This was their first call"
	if meta != nil && meta.LastCallDate != "" {
		lastCall = meta.LastCallDate
	}

	if len(transcript) > transcriptContextChars {
		transcript = "[...earlier conversation omitted...]\n" + transcript[len(transcript)-transcriptContextChars:]
	}

	return fmt.Sprintf(`You are generating a personalized greeting for a voice AI agent's next interaction with a caller.

Agent Profile:
- Agent ID: %s
- Agent Name: %s
- Agent Role: %s
- Default First Message: %s

Caller Profile:
- Name: %s
- Total Interactions: %d
- Last Call: %s

Conversation Context:
%s

Based on this conversation:
1. Write a natural, warm greeting (max 30 words) that:
   - Acknowledges the caller by name if known
   - References a specific topic from the conversation naturally
   - Maintains the agent's personality and tone
   - Creates continuity from where the last call ended
   - Contains no ellipses (the text is spoken by a text-to-speech engine)

2. Identify 3-5 key topics discussed

3. Assess the caller's sentiment (satisfied/neutral/frustrated/confused)

4. Provide a 1-sentence conversation summary

Return ONLY valid JSON in this exact format:
{
    "next_greeting": "Your personalized greeting here (or null if first call with no name)",
    "key_topics": ["topic1", "topic2", "topic3"],
    "sentiment": "satisfied",
    "conversation_summary": "One sentence summary of what was discussed."
}

If this was the first call and no name was captured, return next_greeting as null.
Do not include any text outside the JSON object.`,
		agent.AgentID, agent.AgentName, agentRole, agent.FirstMessage,
		userName, totalInteractions, lastCall, transcript)
}
