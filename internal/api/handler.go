// Package api provides the HTTP handlers for the webhook endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumivoice/recall/internal/agentcache"
	"github.com/lumivoice/recall/internal/memory"
	"github.com/lumivoice/recall/internal/middleware"
	"github.com/lumivoice/recall/internal/postcall"
	"github.com/lumivoice/recall/internal/store"
)

// Handler holds the webhook endpoints' shared dependencies.
type Handler struct {
	profiles    *memory.Profiles
	cache       *agentcache.Cache
	pool        *postcall.Pool
	deadLetters store.DeadLetterStore
	log         *slog.Logger

	postCallSecret   string
	clientDataAPIKey string
	searchDataAPIKey string
}

// NewHandler creates a Handler with explicit dependencies.
func NewHandler(
	profiles *memory.Profiles,
	cache *agentcache.Cache,
	pool *postcall.Pool,
	deadLetters store.DeadLetterStore,
	postCallSecret, clientDataAPIKey, searchDataAPIKey string,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		profiles:         profiles,
		cache:            cache,
		pool:             pool,
		deadLetters:      deadLetters,
		log:              log,
		postCallSecret:   postCallSecret,
		clientDataAPIKey: clientDataAPIKey,
		searchDataAPIKey: searchDataAPIKey,
	}
}

// RegisterRoutes mounts the webhook and admin routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/webhook", func(r chi.Router) {
		r.With(middleware.APIKey("X-Api-Key", h.clientDataAPIKey)).
			Post("/client-data", h.ClientData)
		r.Post("/post-call", h.PostCall)
		r.With(middleware.APIKey("X-Api-Key", h.searchDataAPIKey)).
			Post("/search-data", h.SearchData)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.APIKey("X-Api-Key", h.clientDataAPIKey))
		r.Post("/agents/{agentID}/invalidate", h.InvalidateAgent)
		r.Post("/agents/invalidate", h.InvalidateAllAgents)
		r.Get("/dead-letters", h.ListDeadLetters)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
