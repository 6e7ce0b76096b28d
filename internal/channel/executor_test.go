package channel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/finsage/finsage/internal/domain"
	"github.com/finsage/finsage/internal/store"
)

type stubRepo struct {
	store.Repository

	expenses   []*domain.Expense
	recipients []string
	listErr    error
}

func (r *stubRepo) AddExpense(_ context.Context, exp *domain.Expense) error {
	r.expenses = append(r.expenses, exp)
	return nil
}

func (r *stubRepo) ListExpenses(_ context.Context, userID string, since time.Time) ([]*domain.Expense, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*domain.Expense
	for _, exp := range r.expenses {
		if exp.UserID == userID && !exp.Timestamp.Before(since) {
			out = append(out, exp)
		}
	}
	return out, nil
}

func (r *stubRepo) ListDigestRecipients(context.Context) ([]string, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.recipients, nil
}

type stubProvider struct {
	uc domain.UserContext
}

func (p stubProvider) Snapshot(context.Context, string) domain.UserContext { return p.uc }

func TestExecuteExpense(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	e := NewExecutor(repo, stubProvider{})

	cmd, ok := Parse("I spent $45.67 on uber")
	if !ok {
		t.Fatal("expected an expense command")
	}

	reply := e.Execute(context.Background(), "user-1", cmd)
	if !strings.Contains(reply, "Expense logged!") {
		t.Errorf("reply = %q, want confirmation", reply)
	}
	if !strings.Contains(reply, "45.67") || !strings.Contains(reply, "transportation") {
		t.Errorf("reply should echo amount and category: %q", reply)
	}

	if len(repo.expenses) != 1 {
		t.Fatalf("persisted expenses = %d, want 1", len(repo.expenses))
	}
	exp := repo.expenses[0]
	if exp.UserID != "user-1" || exp.Amount != 45.67 || exp.Category != "transportation" {
		t.Errorf("unexpected persisted expense: %+v", exp)
	}
	if exp.ID == "" {
		t.Error("persisted expense should get an id")
	}
}

func TestExecuteExpenseWithoutAmount(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	e := NewExecutor(repo, stubProvider{})

	cmd, ok := Parse("I spent money on lunch")
	if !ok {
		t.Fatal("expected an expense command")
	}

	reply := e.Execute(context.Background(), "user-1", cmd)
	if reply != ClarificationReply() {
		t.Errorf("reply = %q, want the clarification request", reply)
	}
	if len(repo.expenses) != 0 {
		t.Fatal("an amountless expense must not be persisted")
	}
}

func TestExecuteReport(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	repo.expenses = []*domain.Expense{
		{UserID: "user-1", Amount: 100, Timestamp: time.Now().AddDate(0, 0, -5)},
		{UserID: "user-1", Amount: 50.50, Timestamp: time.Now().AddDate(0, 0, -1)},
		{UserID: "user-1", Amount: 999, Timestamp: time.Now().AddDate(0, 0, -60)}, // outside window
		{UserID: "other", Amount: 40, Timestamp: time.Now()},
	}
	e := NewExecutor(repo, stubProvider{uc: domain.UserContext{MonthlyIncome: 5000, SavingsProgressPct: 40, ExpensesRatioPct: 60}})

	reply := e.Execute(context.Background(), "user-1", Command{Type: CmdReport})
	if !strings.Contains(reply, "2 expenses totaling 150.50") {
		t.Errorf("reply should total the last 30 days for this user only: %q", reply)
	}
	if !strings.Contains(reply, "5000.00") {
		t.Errorf("reply should include income: %q", reply)
	}
}

func TestExecuteReportSurvivesRepositoryFailure(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{listErr: errors.New("db down")}
	e := NewExecutor(repo, stubProvider{})

	reply := e.Execute(context.Background(), "user-1", Command{Type: CmdReport})
	if !strings.Contains(reply, "0 expenses") {
		t.Errorf("report should degrade to zero expenses, got %q", reply)
	}
}

func TestExecuteInvestmentByRiskProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		profile  domain.RiskProfile
		fragment string
	}{
		{domain.RiskConservative, "government bonds"},
		{domain.RiskModerate, "balanced mix"},
		{domain.RiskAggressive, "index funds"},
	}

	for _, tt := range tests {
		e := NewExecutor(&stubRepo{}, stubProvider{uc: domain.UserContext{RiskProfile: tt.profile}})
		reply := e.Execute(context.Background(), "user-1", Command{Type: CmdInvestment})
		if !strings.Contains(reply, tt.fragment) {
			t.Errorf("profile %s: reply %q missing %q", tt.profile, reply, tt.fragment)
		}
	}
}

func TestExecuteInsightThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		uc       domain.UserContext
		fragment string
	}{
		{"high expenses warned first", domain.UserContext{ExpensesRatioPct: 85, SavingsProgressPct: 20}, "Heads up"},
		{"low savings nudged", domain.UserContext{ExpensesRatioPct: 50, SavingsProgressPct: 20}, "savings goal"},
		{"healthy numbers", domain.UserContext{ExpensesRatioPct: 50, SavingsProgressPct: 80}, "look healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt := tt
			t.Parallel()
			e := NewExecutor(&stubRepo{}, stubProvider{uc: tt.uc})
			reply := e.Execute(context.Background(), "user-1", Command{Type: CmdInsight})
			if !strings.Contains(reply, tt.fragment) {
				t.Errorf("reply %q missing %q", reply, tt.fragment)
			}
		})
	}
}

func TestServiceDispatchFallbacks(t *testing.T) {
	t.Parallel()

	s := NewService(NewExecutor(&stubRepo{}, stubProvider{}))

	if reply := s.Dispatch(context.Background(), "user-1", "what's the weather?"); reply != HelpReply() {
		t.Errorf("unrecognized text should yield the help reply, got %q", reply)
	}
	if reply := s.Dispatch(context.Background(), "user-1", "gastei no mercado"); reply != ClarificationReply() {
		t.Errorf("amountless expense should yield the clarification, got %q", reply)
	}
}
