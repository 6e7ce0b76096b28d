package agent

import (
	"fmt"
	"time"

	"github.com/finsage/finsage/internal/domain"
)

// fallbackConfidence is reported when routing rewrites a decision because
// the classifier's target is disabled.
const fallbackConfidence = 0.75

// Resolve applies agent enablement on top of the classifier's suggestion and
// builds the routing trace. A disabled target rewrites the whole decision to
// general assistance handled by triage; otherwise the classifier's output is
// kept. The returned trace always has exactly three steps, the last one a
// response placeholder the generator fills in.
//
// Side effect: the final target is marked processing for the duration of the
// dispatch call; the caller must revert it with markActive.
func Resolve(d Decision, reg *Registry) (Decision, domain.RoutingTrace) {
	if !reg.IsEnabled(d.AgentID) {
		d = Decision{
			Intent:     domain.IntentGeneralAssistance,
			AgentID:    AgentTriage,
			Confidence: fallbackConfidence,
		}
	}

	reg.markProcessing(d.AgentID)

	now := time.Now()
	trace := domain.RoutingTrace{
		{
			From:      "user",
			To:        AgentTriage,
			Content:   "analyzing request",
			Timestamp: now,
			Type:      domain.StepProcessing,
		},
		{
			From:       AgentTriage,
			To:         d.AgentID,
			Content:    fmt.Sprintf("routing to %s (intent %s)", d.AgentID, d.Intent),
			Timestamp:  now,
			Type:       domain.StepRouting,
			Intent:     d.Intent,
			Confidence: d.Confidence,
		},
		{
			From:      d.AgentID,
			To:        "user",
			Content:   "generating reply",
			Timestamp: now,
			Type:      domain.StepResponse,
		},
	}
	return d, trace
}

// GuardrailTrace builds the fixed three-step trace for a vetoed utterance:
// processing, guardrail hop, refusal. Policy and generator are never invoked
// on this path.
func GuardrailTrace(v Verdict) domain.RoutingTrace {
	now := time.Now()
	return domain.RoutingTrace{
		{
			From:      "user",
			To:        AgentTriage,
			Content:   "analyzing request",
			Timestamp: now,
			Type:      domain.StepProcessing,
		},
		{
			From:            AgentTriage,
			To:              "guardrail",
			Content:         "utterance vetoed by guardrail",
			Timestamp:       now,
			Type:            domain.StepRouting,
			GuardrailReason: v.Reason,
		},
		{
			From:            "guardrail",
			To:              "user",
			Content:         RefusalMessage,
			Timestamp:       now,
			Type:            domain.StepGuardrail,
			GuardrailReason: v.Reason,
		},
	}
}
