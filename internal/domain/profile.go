package domain

import (
	"strings"
	"time"
)

// RiskProfile is the user's declared investment risk tier.
type RiskProfile string

const (
	RiskConservative RiskProfile = "conservative"
	RiskModerate     RiskProfile = "moderate"
	RiskAggressive   RiskProfile = "aggressive"
)

// UserContext is a read-only snapshot of the user's financial situation,
// supplied by the profile provider at dispatch time.
type UserContext struct {
	Name               string      `json:"name"`
	MonthlyIncome      float64     `json:"monthly_income"`
	RiskProfile        RiskProfile `json:"risk_profile"`
	SavingsProgressPct float64     `json:"savings_progress_pct"`
	ExpensesRatioPct   float64     `json:"expenses_ratio_pct"`
}

// FirstName returns the user's first name, or empty when no name is set.
func (u UserContext) FirstName() string {
	fields := strings.Fields(strings.TrimSpace(u.Name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Expense is a spending record captured through the messaging channel.
type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}
