// Package session owns conversation state: the active conversation, the
// archive, title derivation and persistence round-trips.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/finsage/finsage/internal/domain"
	"github.com/finsage/finsage/internal/store"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a conversation id is unknown.
var ErrNotFound = errors.New("conversation not found")

const (
	// DefaultTitle labels conversations archived before any user message.
	DefaultTitle = "New Conversation"

	// titleMaxRunes caps derived titles before the ellipsis is appended.
	titleMaxRunes = 50

	greeting = "Hi! I'm your finance assistant. Ask me about expenses, budgets, savings, investments or your goals."
)

// Manager is the sole writer of conversation state. All mutations of a
// conversation's messages go through it; persistence failures are logged and
// treated as "no stored data", never propagated.
type Manager struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	activeID      string
	repo          store.Repository
}

// NewManager creates a session manager backed by the given repository and
// seeds a fresh active conversation.
func NewManager(repo store.Repository) *Manager {
	m := &Manager{
		conversations: make(map[string]*domain.Conversation),
		repo:          repo,
	}
	m.mu.Lock()
	m.startFresh()
	m.mu.Unlock()
	return m
}

// Hydrate loads previously archived conversations from the repository.
// A load failure leaves the manager empty rather than failing startup.
func (m *Manager) Hydrate(ctx context.Context) {
	convs, err := m.repo.ListConversations(ctx)
	if err != nil {
		slog.Warn("failed to load stored conversations, starting empty", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conv := range convs {
		if _, exists := m.conversations[conv.ID]; !exists {
			m.conversations[conv.ID] = conv
		}
	}
	slog.Info("conversation archive hydrated", "count", len(convs))
}

// Create archives the current active conversation if it holds more than the
// initial greeting, then resets active state to a fresh conversation. It
// returns the new active conversation's id.
func (m *Manager) Create(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archiveActiveLocked(ctx)
	return m.startFresh()
}

// archiveActiveLocked retires the active conversation. With more than one
// message it stays in the map (the archive) with a derived title and is
// persisted; with only the greeting it is discarded.
func (m *Manager) archiveActiveLocked(ctx context.Context) {
	active, ok := m.conversations[m.activeID]
	if !ok {
		return
	}
	if len(active.Messages) <= 1 {
		delete(m.conversations, m.activeID)
		return
	}

	active.Title = DeriveTitle(active)
	m.persistLocked(ctx, active)
}

func (m *Manager) startFresh() string {
	now := time.Now()
	conv := &domain.Conversation{
		ID:    uuid.NewString(),
		Title: DefaultTitle,
		Messages: []domain.Message{{
			ID:        uuid.NewString(),
			Content:   greeting,
			Sender:    domain.SenderAgent,
			Timestamp: now,
		}},
		CreatedAt:    now,
		LastActivity: now,
	}
	m.conversations[conv.ID] = conv
	m.activeID = conv.ID
	return conv.ID
}

// DeriveTitle builds a conversation title from its first user message,
// truncated to 50 runes plus an ellipsis when longer.
func DeriveTitle(conv *domain.Conversation) string {
	first, ok := conv.FirstUserMessage()
	if !ok {
		return DefaultTitle
	}
	runes := []rune(first.Content)
	if len(runes) > titleMaxRunes {
		return string(runes[:titleMaxRunes]) + "…"
	}
	return first.Content
}

// Load makes a stored conversation active, refreshing its last-activity
// timestamp. The previously active conversation is archived under the same
// rules as Create. Returns ErrNotFound for unknown ids.
func (m *Manager) Load(ctx context.Context, id string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == m.activeID {
		if conv, ok := m.conversations[id]; ok {
			return *conv, nil
		}
	}

	conv, ok := m.conversations[id]
	if !ok {
		stored, err := m.repo.GetConversation(ctx, id)
		if err != nil {
			slog.Warn("failed to read stored conversation", "conversation_id", id, "error", err)
		}
		if stored == nil {
			return domain.Conversation{}, ErrNotFound
		}
		conv = stored
		m.conversations[id] = conv
	}

	m.archiveActiveLocked(ctx)
	conv.LastActivity = time.Now()
	m.activeID = conv.ID
	m.persistLocked(ctx, conv)
	return *conv, nil
}

// Get returns a conversation snapshot without changing the active pointer.
func (m *Manager) Get(id string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return domain.Conversation{}, ErrNotFound
	}
	return *conv, nil
}

// Delete removes a conversation from the archive and the repository. If it
// was active, a fresh conversation takes its place so the active pointer
// never dangles.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(m.conversations, id)

	if err := m.repo.DeleteConversation(ctx, id); err != nil {
		slog.Warn("failed to delete stored conversation", "conversation_id", id, "error", err)
	}

	if id == m.activeID {
		m.startFresh()
	}
	return nil
}

// Append adds a message to the targeted conversation and persists it.
func (m *Manager) Append(ctx context.Context, conversationID string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}

	conv.Messages = append(conv.Messages, msg)
	conv.LastActivity = msg.Timestamp
	m.persistLocked(ctx, conv)
	return nil
}

// ActiveID returns the id of the active conversation.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// List returns summaries of archived conversations, most recent first. The
// active conversation is excluded until it is archived.
func (m *Manager) List() []domain.ConversationSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.ConversationSummary, 0, len(m.conversations))
	for id, conv := range m.conversations {
		if id == m.activeID {
			continue
		}
		out = append(out, domain.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			LastActivity: conv.LastActivity,
			MessageCount: len(conv.Messages),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// persistLocked saves a conversation, downgrading failures to warnings.
func (m *Manager) persistLocked(ctx context.Context, conv *domain.Conversation) {
	if err := m.repo.SaveConversation(ctx, conv); err != nil {
		slog.Warn("failed to persist conversation", "conversation_id", conv.ID, "error", err)
	}
}
