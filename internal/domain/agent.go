// Package domain holds the core data model shared across the dispatch server.
package domain

import (
	"time"
)

// AgentRole distinguishes the always-on triage agent from toggleable specialists.
type AgentRole string

const (
	RoleTriage     AgentRole = "triage"
	RoleSpecialist AgentRole = "specialist"
)

// AgentStatus reflects what an agent is doing right now.
type AgentStatus string

const (
	StatusActive     AgentStatus = "active"
	StatusProcessing AgentStatus = "processing"
	StatusInactive   AgentStatus = "inactive"
)

// Agent is a roster entry in the agent registry.
type Agent struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Role        AgentRole   `json:"role"`
	Enabled     bool        `json:"enabled"`
	Status      AgentStatus `json:"status"`
}

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentExpenseTracking     Intent = "expense_tracking"
	IntentInvestmentAdvice    Intent = "investment_advice"
	IntentBudgetPlanning      Intent = "budget_planning"
	IntentGoalTracking        Intent = "goal_tracking"
	IntentSavingsOptimization Intent = "savings_optimization"
	IntentGeneralAssistance   Intent = "general_assistance"
)

// StepType categorizes routing trace steps.
type StepType string

const (
	StepProcessing StepType = "processing"
	StepRouting    StepType = "routing"
	StepResponse   StepType = "response"
	StepGuardrail  StepType = "guardrail"
)

// RoutingStep is one hop in the path an utterance took before a reply was produced.
type RoutingStep struct {
	From            string    `json:"from"`
	To              string    `json:"to"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	Type            StepType  `json:"type"`
	Intent          Intent    `json:"intent,omitempty"`
	Confidence      float64   `json:"confidence,omitempty"`
	GuardrailReason string    `json:"guardrail_reason,omitempty"`
}

// RoutingTrace is the ordered log of hops for a single dispatch.
// A well-formed trace always begins with a user→triage processing step.
type RoutingTrace []RoutingStep
