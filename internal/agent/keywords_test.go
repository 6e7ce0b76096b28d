package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/finsage/finsage/internal/domain"
)

func TestLoadRuleSetOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
rules:
  - keywords: ["crypto", "bitcoin"]
    result:
      intent: investment_advice
      agent: investment-agent
      confidence: 0.95
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	rs, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("LoadRuleSet failed: %v", err)
	}

	if len(rs.Rules) != 1 {
		t.Fatalf("rule count = %d, want 1", len(rs.Rules))
	}
	if rs.Rules[0].Result.Confidence != 0.95 {
		t.Errorf("confidence = %f, want 0.95", rs.Rules[0].Result.Confidence)
	}

	// Sections the file omits fall back to the built-ins.
	defaults := DefaultRuleSet()
	if rs.Default != defaults.Default {
		t.Errorf("default result = %+v, want built-in default", rs.Default)
	}
	if len(rs.GuardrailKeywords) != len(defaults.GuardrailKeywords) {
		t.Errorf("guardrail keywords = %d, want built-in %d", len(rs.GuardrailKeywords), len(defaults.GuardrailKeywords))
	}

	c := NewClassifier(rs)
	if got := c.Classify("is bitcoin a good idea?"); got.Intent != domain.IntentInvestmentAdvice {
		t.Errorf("intent = %s, want %s", got.Intent, domain.IntentInvestmentAdvice)
	}
}

func TestLoadRuleSetErrors(t *testing.T) {
	t.Parallel()

	if _, err := LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("rules: {not a list}"), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	if _, err := LoadRuleSet(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
