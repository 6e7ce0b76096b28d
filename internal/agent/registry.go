// Package agent implements the conversational dispatch core: agent roster,
// intent classification, guardrail filtering, routing and reply generation.
package agent

import (
	"fmt"
	"sync"

	"github.com/finsage/finsage/internal/domain"
)

// Well-known agent IDs. The triage agent is the always-enabled fallback.
const (
	AgentTriage     = "triage"
	AgentExpense    = "expense-agent"
	AgentInvestment = "investment-agent"
	AgentGoals      = "goals-agent"
	AgentSavings    = "savings-agent"
)

// ErrUnknownAgent is returned when an operation names an agent not in the roster.
var ErrUnknownAgent = fmt.Errorf("unknown agent")

// Registry holds the roster of agents and their enabled/active state.
// It is read-mostly: dispatch calls read enablement once per call, toggling
// is a rare administrative action.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*domain.Agent
	order  []string
}

// NewRegistry builds the default roster: one triage agent plus the four
// intent specialists, all enabled and active.
func NewRegistry() *Registry {
	roster := []domain.Agent{
		{ID: AgentTriage, DisplayName: "Finance Assistant", Role: domain.RoleTriage},
		{ID: AgentExpense, DisplayName: "Expense Tracker", Role: domain.RoleSpecialist},
		{ID: AgentInvestment, DisplayName: "Investment Advisor", Role: domain.RoleSpecialist},
		{ID: AgentGoals, DisplayName: "Goal Planner", Role: domain.RoleSpecialist},
		{ID: AgentSavings, DisplayName: "Savings Optimizer", Role: domain.RoleSpecialist},
	}

	r := &Registry{agents: make(map[string]*domain.Agent, len(roster))}
	for i := range roster {
		a := roster[i]
		a.Enabled = true
		a.Status = domain.StatusActive
		r.agents[a.ID] = &a
		r.order = append(r.order, a.ID)
	}
	return r
}

// List returns the roster in registration order.
func (r *Registry) List() []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.agents[id])
	}
	return out
}

// Get returns a snapshot of a single agent.
func (r *Registry) Get(id string) (domain.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return domain.Agent{}, false
	}
	return *a, true
}

// IsEnabled reports whether an agent may receive routed utterances.
// Unknown IDs report false so the routing policy falls back to triage.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	return ok && a.Enabled
}

// SetEnabled toggles a specialist. Toggling the triage agent is a no-op that
// reports no change: the triage agent can never be disabled.
func (r *Registry) SetEnabled(id string, enabled bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	if a.Role == domain.RoleTriage {
		return false, nil
	}
	if a.Enabled == enabled {
		return false, nil
	}

	a.Enabled = enabled
	if enabled {
		a.Status = domain.StatusActive
	} else {
		a.Status = domain.StatusInactive
	}
	return true, nil
}

// markProcessing flags an agent as busy for the duration of one dispatch call.
func (r *Registry) markProcessing(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok && a.Enabled {
		a.Status = domain.StatusProcessing
	}
}

// markActive reverts an agent to active after a dispatch call, whether the
// call succeeded or the guardrail intervened.
func (r *Registry) markActive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok && a.Enabled {
		a.Status = domain.StatusActive
	}
}
