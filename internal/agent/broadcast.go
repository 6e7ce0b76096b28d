package agent

import (
	"sync"

	"github.com/finsage/finsage/internal/domain"
)

// StreamEvent is one live update pushed to chat panel subscribers while a
// dispatch is in flight.
type StreamEvent struct {
	Type    string              `json:"type"` // "step" or "message"
	Step    *domain.RoutingStep `json:"step,omitempty"`
	Message *domain.Message     `json:"message,omitempty"`
}

// TraceBroadcaster fans routing-step events out to websocket subscribers,
// keyed by conversation id. Slow subscribers drop events instead of blocking
// the dispatch.
type TraceBroadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[chan StreamEvent]struct{}
}

// NewTraceBroadcaster creates an empty broadcaster.
func NewTraceBroadcaster() *TraceBroadcaster {
	return &TraceBroadcaster{subs: make(map[string]map[chan StreamEvent]struct{})}
}

// Subscribe registers for events on one conversation. The returned cancel
// function must be called when the subscriber goes away.
func (b *TraceBroadcaster) Subscribe(conversationID string) (<-chan StreamEvent, func()) {
	ch := make(chan StreamEvent, 16)

	b.mu.Lock()
	if _, ok := b.subs[conversationID]; !ok {
		b.subs[conversationID] = make(map[chan StreamEvent]struct{})
	}
	b.subs[conversationID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[conversationID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, conversationID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of a conversation.
func (b *TraceBroadcaster) Publish(conversationID string, ev StreamEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[conversationID] {
		select {
		case ch <- ev:
		default:
			// Subscriber is not keeping up; drop rather than stall dispatch.
		}
	}
}
