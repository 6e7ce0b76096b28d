package agent

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/finsage/finsage/internal/domain"
)

// Generator produces the natural-language reply for a resolved intent. The
// interface is asynchronous by contract so the template generator can later
// be swapped for a real model call without changing callers.
type Generator interface {
	Generate(ctx context.Context, intent domain.Intent, uc domain.UserContext) (string, error)
}

// savingsTargetRate is the recommended share of monthly income to save.
const savingsTargetRate = 0.20

// TemplateGenerator renders deterministic, threshold-driven reply templates.
// A randomized delay emulates the latency of a remote generation call; tests
// construct it with zero delay.
type TemplateGenerator struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// NewTemplateGenerator creates a template generator with the given simulated
// latency window.
func NewTemplateGenerator(minDelay, maxDelay time.Duration) *TemplateGenerator {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &TemplateGenerator{minDelay: minDelay, maxDelay: maxDelay}
}

// Generate renders the reply for an intent. It never fails on content: an
// unrecognized intent falls through to the generic capability summary. The
// context is honored only while waiting out the simulated latency; once
// rendering starts the call runs to completion.
func (g *TemplateGenerator) Generate(ctx context.Context, intent domain.Intent, uc domain.UserContext) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}

	name := uc.FirstName()
	if name == "" {
		name = "there"
	}

	switch intent {
	case domain.IntentSavingsOptimization:
		target := uc.MonthlyIncome * savingsTargetRate
		if uc.SavingsProgressPct < 50 {
			return fmt.Sprintf(
				"Hi %s! Your savings progress is at %.0f%%, so there is room to improve. Aim to put aside about %.2f every month (20%% of your income). Start by automating a transfer right after payday.",
				name, uc.SavingsProgressPct, target), nil
		}
		return fmt.Sprintf(
			"Great work, %s! At %.0f%% of your savings goal you are ahead of most people. Consider putting the surplus beyond %.2f a month to work in investments.",
			name, uc.SavingsProgressPct, target), nil

	case domain.IntentExpenseTracking:
		if uc.ExpensesRatioPct > 70 {
			return fmt.Sprintf(
				"%s, your expenses are taking up %.0f%% of your income, which is on the high side. Review subscriptions and discretionary spending first; getting below 70%% frees room for saving.",
				name, uc.ExpensesRatioPct), nil
		}
		return fmt.Sprintf(
			"Your spending looks well controlled, %s: expenses are %.0f%% of your income. Keep logging purchases so the picture stays accurate.",
			name, uc.ExpensesRatioPct), nil

	case domain.IntentInvestmentAdvice:
		switch uc.RiskProfile {
		case domain.RiskConservative:
			return fmt.Sprintf(
				"%s, with a conservative profile the priority is capital preservation: government bonds, CDs and high-grade fixed income should make up most of your portfolio, with broad index funds as a small satellite.",
				name), nil
		case domain.RiskAggressive:
			return fmt.Sprintf(
				"%s, an aggressive profile supports a growth-heavy allocation: a large share in diversified stock index funds, a slice in small caps or international equity, and only a thin fixed-income cushion.",
				name), nil
		default:
			return fmt.Sprintf(
				"%s, a moderate profile works well with a balanced mix: roughly sixty percent diversified stock funds and forty percent fixed income, rebalanced once or twice a year.",
				name), nil
		}

	case domain.IntentGoalTracking:
		return fmt.Sprintf(
			"Here is a solid goal checklist, %s:\n"+
				"1. Emergency fund: 6 months of expenses in a liquid account.\n"+
				"2. Retirement: build toward 25x your annual expenses.\n"+
				"3. Custom goals: give each one an amount and a date, then fund them monthly.",
			name), nil
	}

	return fmt.Sprintf(
		"Hi %s! I can help you track expenses, plan a budget, optimize savings, review investment strategy and follow your financial goals. What would you like to look at?",
		name), nil
}

func (g *TemplateGenerator) wait(ctx context.Context) error {
	delay := g.minDelay
	if spread := g.maxDelay - g.minDelay; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
