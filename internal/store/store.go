// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/finsage/finsage/internal/domain"
)

// ErrNotFound is returned by callers that require a record to exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for persisting conversations, financial
// profiles and expenses. Get methods report absent records as (nil, nil).
type Repository interface {
	// SaveConversation creates or replaces a conversation snapshot.
	SaveConversation(ctx context.Context, conv *domain.Conversation) error

	// GetConversation retrieves a conversation by id, or (nil, nil) if absent.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// ListConversations returns all stored conversations, most recent activity first.
	ListConversations(ctx context.Context) ([]*domain.Conversation, error)

	// DeleteConversation removes a conversation. Deleting an absent id is not an error.
	DeleteConversation(ctx context.Context, id string) error

	// GetProfile retrieves a user's financial profile, or (nil, nil) if absent.
	GetProfile(ctx context.Context, userID string) (*domain.UserContext, error)

	// UpsertProfile creates or updates a user's financial profile.
	UpsertProfile(ctx context.Context, userID string, uc *domain.UserContext) error

	// AddExpense records an expense captured through the messaging channel.
	AddExpense(ctx context.Context, exp *domain.Expense) error

	// ListExpenses returns a user's expenses recorded at or after since, newest first.
	ListExpenses(ctx context.Context, userID string, since time.Time) ([]*domain.Expense, error)

	// ListDigestRecipients returns the user IDs opted into scheduled digests.
	ListDigestRecipients(ctx context.Context) ([]string, error)

	// SetDigestOptIn toggles digest delivery for a user.
	SetDigestOptIn(ctx context.Context, userID string, optIn bool) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
