package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/finsage/finsage/internal/identity"
)

// StreamHandler upgrades chat panel clients to a websocket and forwards live
// routing-step events for one conversation.
type StreamHandler struct {
	broadcast     *TraceBroadcaster
	sessions      activeSource
	allowedOrigin string
	isDev         bool
}

// activeSource resolves the active conversation when the client does not
// name one.
type activeSource interface {
	ActiveID() string
}

// NewStreamHandler creates a websocket stream handler.
func NewStreamHandler(broadcast *TraceBroadcaster, sessions activeSource, allowedOrigin string, isDev bool) *StreamHandler {
	return &StreamHandler{
		broadcast:     broadcast,
		sessions:      sessions,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		conversationID = h.sessions.ActiveID()
	}
	slog.Info("chat stream connection request", "user_id", userID, "conversation_id", conversationID)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := h.broadcast.Subscribe(conversationID)
	defer unsubscribe()

	// Drain client frames so we notice the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("chat stream disconnected", "user_id", userID, "conversation_id", conversationID)
			return
		case ev := <-events:
			if err := h.writeJSON(ctx, ws, ev); err != nil {
				slog.Debug("websocket write error", "error", err, "user_id", userID)
				return
			}
		}
	}
}

func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *StreamHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
