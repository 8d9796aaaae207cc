package api

import (
	"fmt"
	"regexp"
)

// e164Re validates phone numbers in E.164 form, e.g. +16129782029.
var e164Re = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ClientDataRequest is the call-initiation webhook body.
type ClientDataRequest struct {
	CallerID     string `json:"caller_id"`
	AgentID      string `json:"agent_id"`
	CalledNumber string `json:"called_number"`
	CallSID      string `json:"call_sid"`
}

// Validate checks required fields and phone number formats.
func (r *ClientDataRequest) Validate() error {
	if r.AgentID == "" {
		return fmt.Errorf("agent_id is required")
	}
	if !e164Re.MatchString(r.CallerID) {
		return fmt.Errorf("caller_id %q is not a valid E.164 phone number", r.CallerID)
	}
	if r.CalledNumber != "" && !e164Re.MatchString(r.CalledNumber) {
		return fmt.Errorf("called_number %q is not a valid E.164 phone number", r.CalledNumber)
	}
	return nil
}

// ClientDataResponse is the call-initiation webhook reply. DynamicVariables
// is always present (possibly empty); the override only appears when a
// personalized greeting exists.
type ClientDataResponse struct {
	DynamicVariables           map[string]string   `json:"dynamic_variables"`
	ConversationConfigOverride *ConversationConfig `json:"conversation_config_override,omitempty"`
}

// ConversationConfig overrides parts of the agent's conversation setup.
type ConversationConfig struct {
	Agent AgentOverride `json:"agent"`
}

// AgentOverride replaces the agent's first spoken message.
type AgentOverride struct {
	FirstMessage string `json:"first_message"`
}

// PostCallAck is the immediate post-call webhook reply; the background
// outcome is not reflected here.
type PostCallAck struct {
	Status         string `json:"status"`
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

// SearchDataRequest is the mid-conversation server-tool search body.
type SearchDataRequest struct {
	Query    string `json:"query"`
	CallerID string `json:"caller_id"`
	Limit    int    `json:"limit,omitempty"`
}

// Validate checks required fields and the caller phone format.
func (r *SearchDataRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	if !e164Re.MatchString(r.CallerID) {
		return fmt.Errorf("caller_id %q is not a valid E.164 phone number", r.CallerID)
	}
	return nil
}

// SearchDataResponse returns a lightweight profile plus ranked memories.
type SearchDataResponse struct {
	Profile  *SearchProfile `json:"profile"`
	Memories []SearchMemory `json:"memories"`
}

// SearchProfile is the assembled profile part of a search response.
type SearchProfile struct {
	Name        string `json:"name,omitempty"`
	Summary     string `json:"summary,omitempty"`
	PhoneNumber string `json:"phone_number"`
}

// SearchMemory is one ranked search result.
type SearchMemory struct {
	Content  string  `json:"content"`
	Sector   string  `json:"sector"`
	Salience float64 `json:"salience"`
}
