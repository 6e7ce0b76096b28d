package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/finsage/finsage/internal/domain"
	"github.com/finsage/finsage/internal/identity"
	"github.com/go-chi/chi/v5"
)

// maxRequestBodySize caps chat request bodies (1MB).
const maxRequestBodySize = 1 << 20

// RateLimiter implements a per-user request limiter. The key is userID only,
// so clients cannot bypass throttling by rotating conversation ids.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter and starts the background
// eviction goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	rl.startEviction()
	return rl
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// startEviction periodically drops expired keys so the requests map cannot
// grow without bound.
func (r *RateLimiter) startEviction() {
	go func() {
		ticker := time.NewTicker(r.window)
		defer ticker.Stop()
		for range ticker.C {
			r.mu.Lock()
			cutoff := time.Now().Add(-r.window)
			for key, times := range r.requests {
				var fresh []time.Time
				for _, t := range times {
					if t.After(cutoff) {
						fresh = append(fresh, t)
					}
				}
				if len(fresh) == 0 {
					delete(r.requests, key)
				} else {
					r.requests[key] = fresh
				}
			}
			r.mu.Unlock()
		}
	}()
}

// Handler exposes the chat dispatch pipeline and the agent roster over HTTP.
type Handler struct {
	dispatcher  *Dispatcher
	rateLimiter *RateLimiter
}

// NewHandler creates the agent HTTP handler.
func NewHandler(dispatcher *Dispatcher, limit int, window time.Duration) *Handler {
	return &Handler{
		dispatcher:  dispatcher,
		rateLimiter: NewRateLimiter(limit, window),
	}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	Message domain.Message      `json:"message"`
	Trace   domain.RoutingTrace `json:"trace"`
}

// HandleChat handles POST /api/chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if !h.rateLimiter.Allow(userID) {
		http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, `{"error": "message is required"}`, http.StatusBadRequest)
		return
	}

	slog.Info("chat request",
		"user_id", userID,
		"conversation_id", req.ConversationID,
		"message_length", len(req.Message),
	)

	msg, trace, err := h.dispatcher.DispatchChat(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		if errors.Is(err, ErrDispatchInFlight) {
			http.Error(w, `{"error": "a reply is still being generated for this conversation"}`, http.StatusConflict)
			return
		}
		slog.Error("chat dispatch failed", "user_id", userID, "error", err)
		http.Error(w, `{"error": "dispatch failed"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Message: msg, Trace: trace})
}

// HandleListAgents handles GET /api/agents.
func (h *Handler) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": h.dispatcher.Registry().List()})
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// HandleSetAgentEnabled handles PATCH /api/agents/{id}. Disabling the triage
// agent reports changed=false and leaves the roster untouched.
func (h *Handler) HandleSetAgentEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	changed, err := h.dispatcher.Registry().SetEnabled(id, req.Enabled)
	if err != nil {
		http.Error(w, `{"error": "unknown agent"}`, http.StatusNotFound)
		return
	}

	agent, _ := h.dispatcher.Registry().Get(id)
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "agent": agent})
}

// RegisterRoutes registers chat and roster routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
	r.Route("/api/agents", func(r chi.Router) {
		r.Get("/", h.HandleListAgents)
		r.Patch("/{id}", h.HandleSetAgentEnabled)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
