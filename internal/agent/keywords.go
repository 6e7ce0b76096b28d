package agent

import (
	"fmt"
	"os"

	"github.com/finsage/finsage/internal/domain"
	"gopkg.in/yaml.v3"
)

// RuleSet holds the keyword configuration driving classification and the
// guardrail. Keyword lists are data, not code: deployments can override the
// built-in set (which mixes English and Portuguese, matching the product's
// user base) with a YAML file.
type RuleSet struct {
	Rules             []KeywordRule `yaml:"rules"`
	Default           RuleResult    `yaml:"default"`
	GuardrailKeywords []string      `yaml:"guardrail_keywords"`
}

// KeywordRule maps a keyword group to a classification result.
type KeywordRule struct {
	Keywords []string   `yaml:"keywords"`
	Result   RuleResult `yaml:"result"`
}

// RuleResult is the classification outcome of a matched rule.
type RuleResult struct {
	Intent     domain.Intent `yaml:"intent"`
	AgentID    string        `yaml:"agent"`
	Confidence float64       `yaml:"confidence"`
}

// DefaultRuleSet returns the built-in keyword configuration. Rule order is
// priority order: the first matching rule wins.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Rules: []KeywordRule{
			{
				Keywords: []string{
					"invest", "investment", "investir", "investimento", "investimentos",
					"stocks", "ações", "acoes", "renda fixa", "cdb", "tesouro", "aplicar",
				},
				Result: RuleResult{Intent: domain.IntentInvestmentAdvice, AgentID: AgentInvestment, Confidence: 0.92},
			},
			{
				Keywords: []string{
					"budget", "orçamento", "orcamento", "planejamento", "planejar",
					"monthly plan", "planilha",
				},
				Result: RuleResult{Intent: domain.IntentBudgetPlanning, AgentID: AgentTriage, Confidence: 0.88},
			},
			{
				Keywords: []string{
					"goal", "goals", "meta", "metas", "objetivo", "objetivos", "sonho",
					"aposentadoria", "retirement",
				},
				Result: RuleResult{Intent: domain.IntentGoalTracking, AgentID: AgentGoals, Confidence: 0.90},
			},
			{
				Keywords: []string{
					"save", "saving", "savings", "economizar", "economia", "poupar",
					"poupança", "poupanca", "guardar dinheiro",
				},
				Result: RuleResult{Intent: domain.IntentSavingsOptimization, AgentID: AgentSavings, Confidence: 0.87},
			},
		},
		Default: RuleResult{Intent: domain.IntentExpenseTracking, AgentID: AgentExpense, Confidence: 0.85},
		GuardrailKeywords: []string{
			"história", "historia", "story", "tale", "poem", "poema", "piada", "joke",
			"música", "musica", "song", "cante", "receita de bolo",
			"ignore previous", "ignore as instruções", "system prompt", "prompt do sistema",
			"your instructions", "suas instruções", "jailbreak", "finja que", "pretend you are",
		},
	}
}

// LoadRuleSet reads a keyword configuration file, falling back field by field
// to the built-in defaults for anything the file leaves empty.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read keyword rules: %w", err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse keyword rules: %w", err)
	}

	defaults := DefaultRuleSet()
	if len(rs.Rules) == 0 {
		rs.Rules = defaults.Rules
	}
	if rs.Default.Intent == "" {
		rs.Default = defaults.Default
	}
	if len(rs.GuardrailKeywords) == 0 {
		rs.GuardrailKeywords = defaults.GuardrailKeywords
	}

	if err := rs.Validate(); err != nil {
		return RuleSet{}, fmt.Errorf("invalid keyword rules: %w", err)
	}
	return rs, nil
}

// Validate checks rule results for completeness.
func (rs RuleSet) Validate() error {
	for i, r := range rs.Rules {
		if len(r.Keywords) == 0 {
			return fmt.Errorf("rule %d has no keywords", i)
		}
		if r.Result.Intent == "" || r.Result.AgentID == "" {
			return fmt.Errorf("rule %d has an incomplete result", i)
		}
		if r.Result.Confidence <= 0 || r.Result.Confidence > 1 {
			return fmt.Errorf("rule %d confidence out of range: %f", i, r.Result.Confidence)
		}
	}
	if rs.Default.Intent == "" || rs.Default.AgentID == "" {
		return fmt.Errorf("default result is incomplete")
	}
	return nil
}
