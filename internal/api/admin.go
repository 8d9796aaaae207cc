package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// InvalidateAgent drops one agent's cached profile so the next call fetches
// fresh configuration from upstream.
func (h *Handler) InvalidateAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		Error(w, http.StatusBadRequest, "agent id is required")
		return
	}

	h.cache.Invalidate(agentID)
	JSON(w, http.StatusOK, map[string]string{"status": "invalidated", "agent_id": agentID})
}

// InvalidateAllAgents clears the whole agent profile cache.
func (h *Handler) InvalidateAllAgents(w http.ResponseWriter, r *http.Request) {
	h.cache.InvalidateAll()
	JSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// ListDeadLetters exposes the dead-letter queue for postmortem inspection.
func (h *Handler) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	letters, err := h.deadLetters.List(r.Context(), limit)
	if err != nil {
		h.log.Error("dead-letter list failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list dead letters")
		return
	}

	type entry struct {
		ID             string `json:"id"`
		ConversationID string `json:"conversation_id"`
		Reason         string `json:"reason"`
		CreatedAt      string `json:"created_at"`
	}
	out := make([]entry, 0, len(letters))
	for _, dl := range letters {
		out = append(out, entry{
			ID:             dl.ID,
			ConversationID: dl.ConversationID,
			Reason:         dl.Reason,
			CreatedAt:      dl.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	JSON(w, http.StatusOK, map[string]any{"dead_letters": out, "count": len(out)})
}
