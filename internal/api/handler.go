// Package api provides HTTP handlers for conversation session management.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/finsage/finsage/internal/session"
	"github.com/go-chi/chi/v5"
)

// Handler exposes conversation session CRUD.
type Handler struct {
	sessions *session.Manager
}

// NewHandler creates a conversation API handler.
func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
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

// HandleCreate handles POST /api/conversations: archive the active
// conversation if warranted and start a fresh one.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Create(r.Context())
	conv, err := h.sessions.Get(id)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}
	JSON(w, http.StatusCreated, conv)
}

// HandleList handles GET /api/conversations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"active_id":     h.sessions.ActiveID(),
		"conversations": h.sessions.List(),
	})
}

// HandleGet handles GET /api/conversations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	conv, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}
	JSON(w, http.StatusOK, conv)
}

// HandleLoad handles POST /api/conversations/{id}/load: make a stored
// conversation active.
func (h *Handler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	conv, err := h.sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			Error(w, http.StatusNotFound, "conversation not found")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	JSON(w, http.StatusOK, conv)
}

// HandleDelete handles DELETE /api/conversations/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			Error(w, http.StatusNotFound, "conversation not found")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"active_id": h.sessions.ActiveID()})
}

// RegisterRoutes registers conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/conversations", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/load", h.HandleLoad)
		r.Delete("/{id}", h.HandleDelete)
	})
}
