package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/finsage/finsage/internal/domain"
	"github.com/finsage/finsage/internal/session"
	"github.com/google/uuid"
)

// ErrDispatchInFlight is returned when a send arrives for a conversation
// that already has an outstanding dispatch. Chat sends are sequential per
// conversation.
var ErrDispatchInFlight = errors.New("dispatch already in flight for conversation")

// ContextProvider supplies the user's financial snapshot at dispatch time.
type ContextProvider interface {
	Snapshot(ctx context.Context, userID string) domain.UserContext
}

// Dispatcher runs the chat-panel pipeline: guardrail, classifier, routing
// policy, response generation, and the conversation append.
type Dispatcher struct {
	registry   *Registry
	classifier *Classifier
	guardrail  *Guardrail
	generator  Generator
	sessions   *session.Manager
	profiles   ContextProvider
	broadcast  *TraceBroadcaster

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewDispatcher wires the pipeline.
func NewDispatcher(registry *Registry, classifier *Classifier, guardrail *Guardrail,
	generator Generator, sessions *session.Manager, profiles ContextProvider,
	broadcast *TraceBroadcaster) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		classifier: classifier,
		guardrail:  guardrail,
		generator:  generator,
		sessions:   sessions,
		profiles:   profiles,
		broadcast:  broadcast,
		inFlight:   make(map[string]struct{}),
	}
}

// DispatchChat processes one chat-panel utterance. It returns the agent's
// reply message together with the routing trace that produced it. The
// guardrail verdict takes precedence over everything else in the pipeline.
func (d *Dispatcher) DispatchChat(ctx context.Context, userID, conversationID, utterance string) (domain.Message, domain.RoutingTrace, error) {
	if conversationID == "" {
		conversationID = d.sessions.ActiveID()
	}

	if err := d.begin(conversationID); err != nil {
		return domain.Message{}, nil, err
	}
	defer d.end(conversationID)

	userMsg := domain.Message{
		ID:        uuid.NewString(),
		Content:   utterance,
		Sender:    domain.SenderUser,
		Timestamp: time.Now(),
	}
	if err := d.sessions.Append(ctx, conversationID, userMsg); err != nil {
		return domain.Message{}, nil, fmt.Errorf("append user message: %w", err)
	}

	if verdict := d.guardrail.Check(utterance); verdict.Triggered {
		return d.refuse(ctx, conversationID, verdict)
	}

	decision := d.classifier.Classify(utterance)
	decision, trace := Resolve(decision, d.registry)
	defer d.registry.markActive(decision.AgentID)

	d.publishSteps(conversationID, trace[:2])

	uc := d.profiles.Snapshot(ctx, userID)
	reply, err := d.generator.Generate(ctx, decision.Intent, uc)
	if err != nil {
		// Generation only fails on cancellation during the latency window;
		// fall back to the generic reply so the turn still resolves.
		slog.Warn("reply generation interrupted", "conversation_id", conversationID, "error", err)
		reply, _ = (&TemplateGenerator{}).Generate(context.Background(), domain.IntentGeneralAssistance, uc)
	}
	trace[2].Content = reply
	trace[2].Timestamp = time.Now()
	d.publishSteps(conversationID, trace[2:])

	agentMsg := domain.Message{
		ID:        uuid.NewString(),
		Content:   reply,
		Sender:    domain.SenderAgent,
		Timestamp: time.Now(),
		Trace:     trace,
	}
	if err := d.sessions.Append(ctx, conversationID, agentMsg); err != nil {
		return domain.Message{}, nil, fmt.Errorf("append agent message: %w", err)
	}

	d.broadcast.Publish(conversationID, StreamEvent{Type: "message", Message: &agentMsg})

	slog.Info("chat dispatch complete",
		"user_id", userID,
		"conversation_id", conversationID,
		"intent", decision.Intent,
		"agent", decision.AgentID,
		"confidence", decision.Confidence,
	)
	return agentMsg, trace, nil
}

// refuse short-circuits a vetoed utterance: fixed three-step trace, fixed
// refusal text, no policy, no generator.
func (d *Dispatcher) refuse(ctx context.Context, conversationID string, verdict Verdict) (domain.Message, domain.RoutingTrace, error) {
	trace := GuardrailTrace(verdict)
	d.publishSteps(conversationID, trace)

	agentMsg := domain.Message{
		ID:                 uuid.NewString(),
		Content:            RefusalMessage,
		Sender:             domain.SenderAgent,
		Timestamp:          time.Now(),
		Trace:              trace,
		GuardrailTriggered: true,
	}
	if err := d.sessions.Append(ctx, conversationID, agentMsg); err != nil {
		return domain.Message{}, nil, fmt.Errorf("append refusal message: %w", err)
	}
	d.broadcast.Publish(conversationID, StreamEvent{Type: "message", Message: &agentMsg})

	slog.Info("guardrail refusal", "conversation_id", conversationID, "reason", verdict.Reason)
	return agentMsg, trace, nil
}

func (d *Dispatcher) publishSteps(conversationID string, steps []domain.RoutingStep) {
	for i := range steps {
		step := steps[i]
		d.broadcast.Publish(conversationID, StreamEvent{Type: "step", Step: &step})
	}
}

func (d *Dispatcher) begin(conversationID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[conversationID]; busy {
		return ErrDispatchInFlight
	}
	d.inFlight[conversationID] = struct{}{}
	return nil
}

func (d *Dispatcher) end(conversationID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, conversationID)
}

// Registry exposes the roster for HTTP handlers.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}
