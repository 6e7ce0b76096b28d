// Package profile supplies read-only snapshots of a user's financial context.
package profile

import (
	"context"
	"log/slog"

	"github.com/finsage/finsage/internal/domain"
	"github.com/finsage/finsage/internal/store"
)

// Provider reads user context snapshots from the repository. A missing or
// unreadable profile degrades to a neutral default snapshot rather than
// failing the dispatch.
type Provider struct {
	repo store.Repository
}

// NewProvider creates a store-backed context provider.
func NewProvider(repo store.Repository) *Provider {
	return &Provider{repo: repo}
}

// DefaultContext is the snapshot used when no profile exists yet.
func DefaultContext() domain.UserContext {
	return domain.UserContext{RiskProfile: domain.RiskModerate}
}

// Snapshot returns the user's financial context. It never fails: read errors
// are logged and the default snapshot is returned.
func (p *Provider) Snapshot(ctx context.Context, userID string) domain.UserContext {
	uc, err := p.repo.GetProfile(ctx, userID)
	if err != nil {
		slog.Warn("failed to read profile, using defaults", "user_id", userID, "error", err)
		return DefaultContext()
	}
	if uc == nil {
		return DefaultContext()
	}
	if uc.RiskProfile == "" {
		uc.RiskProfile = domain.RiskModerate
	}
	return *uc
}

// Ensure creates a default profile row for a user if none exists. Failures
// are logged only; the dispatch core works off defaults either way.
func (p *Provider) Ensure(ctx context.Context, userID string) {
	uc, err := p.repo.GetProfile(ctx, userID)
	if err != nil {
		slog.Warn("failed to check profile", "user_id", userID, "error", err)
		return
	}
	if uc != nil {
		return
	}
	def := DefaultContext()
	if err := p.repo.UpsertProfile(ctx, userID, &def); err != nil {
		slog.Warn("failed to create default profile", "user_id", userID, "error", err)
	}
}
