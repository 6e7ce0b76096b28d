package agent

import (
	"errors"
	"testing"

	"github.com/finsage/finsage/internal/domain"
)

func TestRegistryDefaults(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	agents := r.List()
	if len(agents) != 5 {
		t.Fatalf("roster size = %d, want 5", len(agents))
	}

	triageCount := 0
	for _, a := range agents {
		if !a.Enabled {
			t.Errorf("agent %s should start enabled", a.ID)
		}
		if a.Status != domain.StatusActive {
			t.Errorf("agent %s should start active, got %s", a.ID, a.Status)
		}
		if a.Role == domain.RoleTriage {
			triageCount++
		}
	}
	if triageCount != 1 {
		t.Fatalf("exactly one triage agent expected, got %d", triageCount)
	}
}

func TestRegistryTriageCannotBeDisabled(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	changed, err := r.SetEnabled(AgentTriage, false)
	if err != nil {
		t.Fatalf("disabling triage must not error: %v", err)
	}
	if changed {
		t.Fatal("disabling triage must report no change")
	}
	if !r.IsEnabled(AgentTriage) {
		t.Fatal("triage agent must remain enabled")
	}
}

func TestRegistrySpecialistToggle(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	changed, err := r.SetEnabled(AgentInvestment, false)
	if err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if !changed {
		t.Fatal("expected toggle to report a change")
	}
	if r.IsEnabled(AgentInvestment) {
		t.Fatal("investment agent should be disabled")
	}

	a, ok := r.Get(AgentInvestment)
	if !ok {
		t.Fatal("investment agent missing from roster")
	}
	if a.Status != domain.StatusInactive {
		t.Fatalf("disabled agent status = %s, want %s", a.Status, domain.StatusInactive)
	}

	// Toggling to the same state reports no change.
	changed, err = r.SetEnabled(AgentInvestment, false)
	if err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if changed {
		t.Fatal("repeated toggle should report no change")
	}
}

func TestRegistryUnknownAgent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	if _, err := r.SetEnabled("nope", true); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	if r.IsEnabled("nope") {
		t.Fatal("unknown agent must report disabled")
	}
}

func TestRegistryProcessingRoundTrip(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	r.markProcessing(AgentSavings)
	if a, _ := r.Get(AgentSavings); a.Status != domain.StatusProcessing {
		t.Fatalf("status = %s, want %s", a.Status, domain.StatusProcessing)
	}

	r.markActive(AgentSavings)
	if a, _ := r.Get(AgentSavings); a.Status != domain.StatusActive {
		t.Fatalf("status = %s, want %s", a.Status, domain.StatusActive)
	}
}
