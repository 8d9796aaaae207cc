// Package postcall processes finished calls in the background: payload
// archival, two-tier profile updates, greeting generation and granular
// memory writes.
package postcall

import (
	"github.com/lumivoice/recall/internal/domain"
)

// Webhook payload discriminators.
const (
	TypeTranscription     = "post_call_transcription"
	TypeAudio             = "post_call_audio"
	TypeInitiationFailure = "call_initiation_failure"
)

// Payload is the discriminated post-call webhook body.
type Payload struct {
	Type           string      `json:"type"`
	EventTimestamp int64       `json:"event_timestamp"`
	Data           PayloadData `json:"data"`
}

// PayloadData is the per-call data object.
type PayloadData struct {
	AgentID                          string                      `json:"agent_id"`
	ConversationID                   string                      `json:"conversation_id"`
	Status                           string                      `json:"status"`
	Transcript                       []domain.TranscriptEntry    `json:"transcript"`
	Metadata                         *CallMetadata               `json:"metadata,omitempty"`
	Analysis                         *Analysis                   `json:"analysis,omitempty"`
	ConversationInitiationClientData *ConversationInitiationData `json:"conversation_initiation_client_data,omitempty"`
	AudioBase64                      string                      `json:"audio_base64,omitempty"`
}

// CallMetadata carries call timing details.
type CallMetadata struct {
	CallDurationSecs  int    `json:"call_duration_secs"`
	StartTimeUnix     int64  `json:"start_time_unix_secs"`
	TerminationReason string `json:"termination_reason,omitempty"`
}

// Analysis holds the platform's structured conversation analysis.
type Analysis struct {
	DataCollectionResults map[string]DataCollectionResult `json:"data_collection_results,omitempty"`
	CallSuccessful        string                          `json:"call_successful,omitempty"`
	TranscriptSummary     string                          `json:"transcript_summary,omitempty"`
}

// DataCollectionResult is one extracted field from the platform's data
// collection config.
type DataCollectionResult struct {
	Value any `json:"value"`
}

// ConversationInitiationData echoes back what the call-initiation webhook
// returned, including the system dynamic variables.
type ConversationInitiationData struct {
	DynamicVariables map[string]any `json:"dynamic_variables,omitempty"`
}

// CallerID extracts the caller's phone number from its known nested location.
// Empty when absent, which short-circuits all memory processing.
func (p *Payload) CallerID() string {
	cd := p.Data.ConversationInitiationClientData
	if cd == nil || cd.DynamicVariables == nil {
		return ""
	}
	caller, _ := cd.DynamicVariables["system__caller_id"].(string)
	return caller
}

// ClientTimestampUTC returns the client-side UTC timestamp dynamic variable
// when the platform supplied one.
func (p *Payload) ClientTimestampUTC() string {
	cd := p.Data.ConversationInitiationClientData
	if cd == nil || cd.DynamicVariables == nil {
		return ""
	}
	ts, _ := cd.DynamicVariables["system__time_utc"].(string)
	return ts
}
