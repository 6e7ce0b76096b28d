package domain

import (
	"time"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is a single exchange entry in a conversation.
type Message struct {
	ID                 string       `json:"id"`
	Content            string       `json:"content"`
	Sender             Sender       `json:"sender"`
	Timestamp          time.Time    `json:"timestamp"`
	Trace              RoutingTrace `json:"trace,omitempty"`
	GuardrailTriggered bool         `json:"guardrail_triggered,omitempty"`
}

// Conversation is a titled, time-stamped sequence of messages.
// Only the session manager mutates Messages.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// FirstUserMessage returns the earliest user-sent message, if any.
func (c *Conversation) FirstUserMessage() (Message, bool) {
	for _, m := range c.Messages {
		if m.Sender == SenderUser {
			return m, true
		}
	}
	return Message{}, false
}

// ConversationSummary is the list view of a stored conversation.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}
