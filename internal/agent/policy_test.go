package agent

import (
	"testing"

	"github.com/finsage/finsage/internal/domain"
)

func TestResolveEnabledTarget(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	in := Decision{Intent: domain.IntentInvestmentAdvice, AgentID: AgentInvestment, Confidence: 0.92}

	out, trace := Resolve(in, reg)
	if out != in {
		t.Fatalf("decision rewritten unexpectedly: %+v", out)
	}
	if len(trace) != 3 {
		t.Fatalf("trace length = %d, want 3", len(trace))
	}
	if trace[0].Type != domain.StepProcessing || trace[0].To != AgentTriage {
		t.Errorf("unexpected first step: %+v", trace[0])
	}
	if trace[1].Type != domain.StepRouting || trace[1].To != AgentInvestment {
		t.Errorf("unexpected routing step: %+v", trace[1])
	}
	if trace[1].Confidence != 0.92 || trace[1].Intent != domain.IntentInvestmentAdvice {
		t.Errorf("routing step should carry the decision: %+v", trace[1])
	}
	if trace[2].Type != domain.StepResponse || trace[2].From != AgentInvestment {
		t.Errorf("unexpected response step: %+v", trace[2])
	}

	if a, _ := reg.Get(AgentInvestment); a.Status != domain.StatusProcessing {
		t.Fatalf("target should be marked processing, got %s", a.Status)
	}
}

func TestResolveDisabledTargetFallsBackToTriage(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if _, err := reg.SetEnabled(AgentInvestment, false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	in := Decision{Intent: domain.IntentInvestmentAdvice, AgentID: AgentInvestment, Confidence: 0.92}
	out, trace := Resolve(in, reg)

	if out.AgentID != AgentTriage {
		t.Errorf("agent = %s, want %s", out.AgentID, AgentTriage)
	}
	if out.Intent != domain.IntentGeneralAssistance {
		t.Errorf("intent = %s, want %s", out.Intent, domain.IntentGeneralAssistance)
	}
	if out.Confidence != fallbackConfidence {
		t.Errorf("confidence = %f, want %f", out.Confidence, fallbackConfidence)
	}
	if trace[1].To != AgentTriage {
		t.Errorf("routing step targets %s, want %s", trace[1].To, AgentTriage)
	}

	// The disabled agent is untouched; triage does the work.
	if a, _ := reg.Get(AgentInvestment); a.Status != domain.StatusInactive {
		t.Errorf("disabled agent status = %s, want %s", a.Status, domain.StatusInactive)
	}
	if a, _ := reg.Get(AgentTriage); a.Status != domain.StatusProcessing {
		t.Errorf("triage status = %s, want %s", a.Status, domain.StatusProcessing)
	}
}

func TestGuardrailTraceShape(t *testing.T) {
	t.Parallel()

	trace := GuardrailTrace(Verdict{Triggered: true, Reason: "blocked keyword"})

	if len(trace) != 3 {
		t.Fatalf("trace length = %d, want 3", len(trace))
	}
	if trace[0].Type != domain.StepProcessing {
		t.Errorf("first step type = %s, want %s", trace[0].Type, domain.StepProcessing)
	}
	if trace[1].To != "guardrail" || trace[1].GuardrailReason != "blocked keyword" {
		t.Errorf("unexpected guardrail hop: %+v", trace[1])
	}
	if trace[2].Type != domain.StepGuardrail || trace[2].Content != RefusalMessage {
		t.Errorf("final step must carry the fixed refusal: %+v", trace[2])
	}
}
