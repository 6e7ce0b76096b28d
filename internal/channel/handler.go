package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Service is the messaging-channel dispatcher: parse, execute, reply.
type Service struct {
	executor *Executor
}

// NewService creates the channel dispatch service.
func NewService(executor *Executor) *Service {
	return &Service{executor: executor}
}

// Dispatch processes one inbound text and returns the reply. Unparseable
// input yields the help reply; an expense with no amount yields a
// clarification request. Dispatch never fails.
func (s *Service) Dispatch(ctx context.Context, senderID, text string) string {
	cmd, ok := Parse(text)
	if !ok {
		slog.Info("unrecognized channel message", "sender_id", senderID, "text_length", len(text))
		return HelpReply()
	}

	slog.Info("channel command", "sender_id", senderID, "command", cmd.Type)
	return s.executor.Execute(ctx, senderID, cmd)
}

// Handler receives inbound webhook batches from the messaging provider.
type Handler struct {
	service *Service
	sender  Sender
}

// NewHandler creates the webhook handler.
func NewHandler(service *Service, sender Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

type inboundMessage struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}

type webhookRequest struct {
	Messages []inboundMessage `json:"messages"`
}

// HandleWebhook handles POST /api/channel/webhook. The batch is processed
// sequentially, one dispatch per message; a failed delivery to one recipient
// never aborts the rest of the batch.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	processed := 0
	for _, msg := range req.Messages {
		if msg.SenderID == "" || msg.Text == "" {
			continue
		}
		reply := h.service.Dispatch(r.Context(), msg.SenderID, msg.Text)
		if !h.sender.Send(r.Context(), msg.SenderID, reply) {
			slog.Warn("reply delivery failed", "sender_id", msg.SenderID)
		}
		processed++
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"processed": processed}); err != nil {
		slog.Warn("failed to encode webhook response", "error", err)
	}
}

// RegisterRoutes registers the webhook route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/channel/webhook", h.HandleWebhook)
}
