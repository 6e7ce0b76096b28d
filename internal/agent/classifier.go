package agent

import (
	"strings"

	"github.com/finsage/finsage/internal/domain"
)

// Decision is the classifier's suggestion for handling one utterance.
type Decision struct {
	Intent     domain.Intent
	AgentID    string
	Confidence float64
}

// Classifier maps an utterance to an intent via an ordered keyword rule
// table. Evaluation is top-down, first match wins, and a mandatory default
// tail makes the function total: it never fails and never returns an empty
// result.
type Classifier struct {
	rules       []KeywordRule
	defaultTail RuleResult
}

// NewClassifier builds a classifier from a rule set.
func NewClassifier(rs RuleSet) *Classifier {
	return &Classifier{rules: rs.Rules, defaultTail: rs.Default}
}

// Classify resolves an utterance to an intent, target agent and confidence.
// Matching is case-insensitive substring containment.
func (c *Classifier) Classify(utterance string) Decision {
	lowered := strings.ToLower(utterance)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				return Decision{
					Intent:     rule.Result.Intent,
					AgentID:    rule.Result.AgentID,
					Confidence: rule.Result.Confidence,
				}
			}
		}
	}
	return Decision{
		Intent:     c.defaultTail.Intent,
		AgentID:    c.defaultTail.AgentID,
		Confidence: c.defaultTail.Confidence,
	}
}
