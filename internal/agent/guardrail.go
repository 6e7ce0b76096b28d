package agent

import (
	"strconv"
	"strings"
)

// RefusalMessage is the fixed reply sent whenever the guardrail vetoes
// routing. It is deliberately not templated.
const RefusalMessage = "I can only help with personal finance topics like expenses, budgets, savings, investments and financial goals. Let's keep the conversation there!"

// Verdict is the outcome of a guardrail check.
type Verdict struct {
	Triggered bool
	Reason    string
}

// Guardrail detects off-topic or prompt-probing utterances and vetoes normal
// routing. It runs independently of classification and takes precedence over
// every other decision in the pipeline.
type Guardrail struct {
	keywords []string
}

// NewGuardrail builds a guardrail from the configured keyword set.
func NewGuardrail(rs RuleSet) *Guardrail {
	return &Guardrail{keywords: rs.GuardrailKeywords}
}

// Check scans the utterance for guardrail keywords.
func (g *Guardrail) Check(utterance string) Verdict {
	lowered := strings.ToLower(utterance)
	for _, kw := range g.keywords {
		if strings.Contains(lowered, kw) {
			return Verdict{Triggered: true, Reason: "off-topic request: matched " + strconv.Quote(kw)}
		}
	}
	return Verdict{}
}
