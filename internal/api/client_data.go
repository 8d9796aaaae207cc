package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ClientData handles the call-initiation webhook. It reads Tier 1 and Tier 2
// for the caller and answers with one of three shapes, in priority order:
//
//  1. Tier 2 holds a next greeting: first-message override + full dynamic
//     variables.
//  2. Tier 1 holds a name: just the name as a dynamic variable.
//  3. Neither: empty dynamic variables, agent uses its defaults.
//
// Once authentication has passed this endpoint never fails the call: any
// internal fault collapses to the empty response.
func (h *Handler) ClientData(w http.ResponseWriter, r *http.Request) {
	var req ClientDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Info("client-data webhook", "caller", req.CallerID, "agent_id", req.AgentID)

	resp := h.personalize(r, &req)
	JSON(w, http.StatusOK, resp)
}

func (h *Handler) personalize(r *http.Request, req *ClientDataRequest) (resp *ClientDataResponse) {
	resp = &ClientDataResponse{DynamicVariables: map[string]string{}}

	// A personalization outage must never degrade the live call.
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("client-data personalization panicked, returning defaults",
				"caller", req.CallerID, "panic", rec)
			resp = &ClientDataResponse{DynamicVariables: map[string]string{}}
		}
	}()

	ctx := r.Context()
	universal, hasUniversal := h.profiles.GetUniversalProfile(ctx, req.CallerID)
	state, hasState := h.profiles.GetAgentState(ctx, req.CallerID, req.AgentID)

	switch {
	case hasState && state.NextGreeting != "":
		// Returning caller to this agent: speak the pre-generated greeting.
		resp.ConversationConfigOverride = &ConversationConfig{
			Agent: AgentOverride{FirstMessage: state.NextGreeting},
		}
		if hasUniversal && universal.Name != "" {
			resp.DynamicVariables["user_name"] = universal.Name
		}
		if state.ConversationSummary != "" {
			resp.DynamicVariables["last_call_summary"] = state.ConversationSummary
		}
		if state.Sentiment != "" {
			resp.DynamicVariables["user_sentiment"] = string(state.Sentiment)
		}
		if len(state.KeyTopics) > 0 {
			resp.DynamicVariables["key_topics"] = strings.Join(state.KeyTopics, ", ")
		}
		h.log.Info("returning personalized greeting", "caller", req.CallerID, "agent_id", req.AgentID)

	case hasUniversal && universal.Name != "":
		// Known caller, first call to this agent: the agent keeps its own
		// first message but can template the name.
		resp.DynamicVariables["user_name"] = universal.Name
		h.log.Info("returning known caller name", "caller", req.CallerID, "agent_id", req.AgentID)

	default:
		h.log.Info("new caller, agent defaults apply", "caller", req.CallerID, "agent_id", req.AgentID)
	}

	return resp
}
