package api

import (
	"encoding/json"
	"net/http"
)

// SearchData handles the mid-conversation server-tool search. The agent
// platform calls this to recall facts about the current caller. Empty
// results come back as empty arrays, never as errors.
func (h *Handler) SearchData(w http.ResponseWriter, r *http.Request) {
	var req SearchDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Info("search-data webhook", "caller", req.CallerID, "query", req.Query)

	name, summary, matches := h.profiles.Search(r.Context(), req.CallerID, req.Query, req.Limit)

	resp := SearchDataResponse{Memories: []SearchMemory{}}
	for _, m := range matches {
		resp.Memories = append(resp.Memories, SearchMemory{
			Content:  m.Content,
			Sector:   m.Sector,
			Salience: m.Salience,
		})
	}
	if name != "" || summary != "" {
		resp.Profile = &SearchProfile{
			Name:        name,
			Summary:     summary,
			PhoneNumber: req.CallerID,
		}
	}

	JSON(w, http.StatusOK, resp)
}
