package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/finsage/finsage/internal/domain"
	"github.com/finsage/finsage/internal/store"
	"github.com/google/uuid"
)

// ContextProvider supplies the user's financial snapshot for command replies.
type ContextProvider interface {
	Snapshot(ctx context.Context, userID string) domain.UserContext
}

// Executor dispatches parsed commands to one handler per command type. Every
// handler returns a pre-formatted multi-line reply built from data already in
// context; a handler never fails the dispatch.
type Executor struct {
	repo     store.Repository
	profiles ContextProvider
}

// NewExecutor creates a command executor.
func NewExecutor(repo store.Repository, profiles ContextProvider) *Executor {
	return &Executor{repo: repo, profiles: profiles}
}

// Execute runs one command for a user and returns the reply text.
func (e *Executor) Execute(ctx context.Context, userID string, cmd Command) string {
	uc := e.profiles.Snapshot(ctx, userID)

	switch cmd.Type {
	case CmdExpense:
		return e.handleExpense(ctx, userID, cmd)
	case CmdReport:
		return e.handleReport(ctx, userID, uc)
	case CmdGoal:
		return handleGoal(uc)
	case CmdInvestment:
		return handleInvestment(uc)
	case CmdInsight:
		return handleInsight(uc)
	}
	return HelpReply()
}

// ClarificationReply asks for the missing amount on an expense command.
func ClarificationReply() string {
	return strings.Join([]string{
		"I couldn't find an amount in that message.",
		"Try something like: \"I spent 45.90 on lunch\".",
	}, "\n")
}

// HelpReply enumerates the supported command phrasings. It is the defined
// fallback for unparseable input, not an error.
func HelpReply() string {
	return strings.Join([]string{
		"Here's what I can do:",
		"• Log an expense: \"I spent 30 on groceries\"",
		"• Monthly report: \"send my report\"",
		"• Goal overview: \"show my goals\"",
		"• Investment tip: \"how should I invest?\"",
		"• Quick insight: \"give me a tip\"",
	}, "\n")
}

func (e *Executor) handleExpense(ctx context.Context, userID string, cmd Command) string {
	if !cmd.HasAmount {
		return ClarificationReply()
	}

	exp := &domain.Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      cmd.Amount,
		Category:    cmd.Category,
		Description: cmd.Description,
		Timestamp:   time.Now(),
	}
	if err := e.repo.AddExpense(ctx, exp); err != nil {
		slog.Warn("failed to persist expense", "user_id", userID, "error", err)
	}

	desc := cmd.Description
	if desc == "" {
		desc = "(no description)"
	}
	return strings.Join([]string{
		"Expense logged!",
		fmt.Sprintf("Amount: %.2f", cmd.Amount),
		fmt.Sprintf("Category: %s", cmd.Category),
		fmt.Sprintf("Description: %s", desc),
	}, "\n")
}

func (e *Executor) handleReport(ctx context.Context, userID string, uc domain.UserContext) string {
	var total float64
	var count int
	since := time.Now().AddDate(0, 0, -30)
	expenses, err := e.repo.ListExpenses(ctx, userID, since)
	if err != nil {
		slog.Warn("failed to list expenses for report", "user_id", userID, "error", err)
	}
	for _, exp := range expenses {
		total += exp.Amount
		count++
	}

	return strings.Join([]string{
		"Your monthly snapshot:",
		fmt.Sprintf("Income: %.2f", uc.MonthlyIncome),
		fmt.Sprintf("Expenses ratio: %.0f%% of income", uc.ExpensesRatioPct),
		fmt.Sprintf("Savings progress: %.0f%%", uc.SavingsProgressPct),
		fmt.Sprintf("Logged here in the last 30 days: %d expenses totaling %.2f", count, total),
	}, "\n")
}

func handleGoal(uc domain.UserContext) string {
	return strings.Join([]string{
		"Goal check-in:",
		"1. Emergency fund — target 6 months of expenses.",
		"2. Retirement — build toward 25x your annual expenses.",
		fmt.Sprintf("3. Savings progress so far: %.0f%%.", uc.SavingsProgressPct),
		"Reply with \"I spent...\" to keep your numbers fresh.",
	}, "\n")
}

func handleInvestment(uc domain.UserContext) string {
	var tip string
	switch uc.RiskProfile {
	case domain.RiskConservative:
		tip = "Stick to government bonds, CDs and high-grade fixed income."
	case domain.RiskAggressive:
		tip = "Lean into diversified stock index funds with a thin fixed-income cushion."
	default:
		tip = "A balanced mix around sixty percent stocks, forty percent fixed income suits you."
	}
	return strings.Join([]string{
		fmt.Sprintf("Investment pointer (%s profile):", uc.RiskProfile),
		tip,
	}, "\n")
}

func handleInsight(uc domain.UserContext) string {
	if uc.ExpensesRatioPct > 70 {
		return fmt.Sprintf(
			"Heads up: expenses are at %.0f%% of your income. Trimming subscriptions is usually the fastest win.",
			uc.ExpensesRatioPct)
	}
	if uc.SavingsProgressPct < 50 {
		return fmt.Sprintf(
			"You're at %.0f%% of your savings goal. Automating a transfer on payday makes the next stretch easier.",
			uc.SavingsProgressPct)
	}
	return "Your numbers look healthy. Consider putting idle cash to work in investments."
}
