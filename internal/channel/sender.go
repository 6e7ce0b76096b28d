package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Sender posts a formatted text reply to the messaging channel's endpoint.
// Implementations report success as a boolean; a delivery failure is never
// propagated to the dispatch caller.
type Sender interface {
	Send(ctx context.Context, recipient, text string) bool
}

// HTTPSender delivers replies to a channel-specific webhook endpoint.
type HTTPSender struct {
	client *http.Client
	url    string
	token  string
}

// NewHTTPSender creates a sender for the given outbound endpoint.
func NewHTTPSender(url, token string) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		token:  token,
	}
}

type outboundMessage struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send posts the reply. All failures are logged and reported as false.
func (s *HTTPSender) Send(ctx context.Context, recipient, text string) bool {
	body, err := json.Marshal(outboundMessage{To: recipient, Text: text})
	if err != nil {
		slog.Warn("failed to marshal outbound message", "recipient", recipient, "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("failed to build outbound request", "recipient", recipient, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Warn("outbound delivery failed", "recipient", recipient, "error", err)
		return false
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close outbound response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("outbound delivery rejected", "recipient", recipient, "status", resp.StatusCode)
		return false
	}
	return true
}

// LogSender is used when no outbound endpoint is configured: replies are
// logged instead of delivered, and delivery always "succeeds".
type LogSender struct{}

// Send logs the reply.
func (LogSender) Send(ctx context.Context, recipient, text string) bool {
	slog.Info("outbound message (log-only sender)", "recipient", recipient, "text_length", len(text))
	return true
}
