// Package agent implements the per-turn agentic loop: the state machine
// that drives context management, model calls, event interpretation, tool
// dispatch, and guardrail enforcement for a single LLM-backed worker.
//
// Agent is the primary Interactable; composite topologies (parallel
// fan-out, routing, supervision, hierarchy, peer networks) live in
// runtime/orchestrator and implement the same Interactable contract by
// delegating to one or more Agents.
package agent

import (
	"context"
	"fmt"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/guardrail"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/telemetry"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/tool"
)

// Interactable is implemented by Agent and every orchestrator in
// runtime/orchestrator. It is the uniform contract the core composes over:
// a single user input in, a single terminal Result out.
type Interactable interface {
	// Interact runs a single conversation turn-loop to completion and
	// returns its terminal Result. The returned error is reserved for
	// programmer errors (nil Context); run-level failures are reported as
	// Result{Outcome: ErrorResult{...}}.
	Interact(ctx context.Context, in *agentcontext.Context) (Result, error)
	// InteractStream behaves like Interact but delivers incremental
	// progress through the returned Stream's callbacks before the same
	// terminal Result is delivered to Stream's onComplete callback.
	InteractStream(ctx context.Context, in *agentcontext.Context) *Stream
}

// TextInput wraps a plain user message in a fresh Context, the convenience
// form of the spec's "interact(text|Message|Context)" contract.
func TextInput(text string) *agentcontext.Context {
	return agentcontext.New().WithRequestID(agentcontext.NewRequestID("")).AddMessage(text)
}

// HandoffDescriptor names a control-transfer target reachable from an
// Agent's tool-calling surface. Handoffs are immutable once the Agent is
// built.
type HandoffDescriptor struct {
	Name        string
	Description string
	Target      Interactable
}

// Agent is the per-turn state machine described in the package doc. Build
// one with New and the With* options; Agent is safe for concurrent
// Interact/InteractStream calls as long as callers never share one
// *agentcontext.Context across concurrent runs (Context itself is not
// thread-safe).
type Agent struct {
	name         string
	instructions string
	client       model.Client
	modelID      string
	maxTurns     int
	temperature  float32
	maxOutput    int

	tools            *tool.Store
	inputGuardrails  []guardrail.InputGuardrail
	outputGuardrails []guardrail.OutputGuardrail
	handoffs         []HandoffDescriptor
	handoffsByName   map[string]HandoffDescriptor
	telemetry        telemetry.Bundle

	pendingTools    []*tool.Tool
	pendingHandoffs []HandoffDescriptor
}

// Option configures an Agent at build time.
type Option func(*Agent)

// WithInstructions sets the developer/system message assembled into every
// model request.
func WithInstructions(text string) Option {
	return func(a *Agent) { a.instructions = text }
}

// WithModel sets the provider-specific model identifier.
func WithModel(modelID string) Option {
	return func(a *Agent) { a.modelID = modelID }
}

// WithMaxTurns sets the turn budget. The default is 10 when unset or
// non-positive.
func WithMaxTurns(n int) Option {
	return func(a *Agent) { a.maxTurns = n }
}

// WithTemperature sets the sampling temperature forwarded on every request.
func WithTemperature(t float32) Option {
	return func(a *Agent) { a.temperature = t }
}

// WithMaxOutputTokens caps output tokens per model request.
func WithMaxOutputTokens(n int) Option {
	return func(a *Agent) { a.maxOutput = n }
}

// WithTools registers tools on the Agent's ToolStore. Build fails if two
// tools share a name.
func WithTools(tools ...*tool.Tool) Option {
	return func(a *Agent) {
		for _, t := range tools {
			a.pendingTools = append(a.pendingTools, t)
		}
	}
}

// WithInputGuardrails appends input guardrails, run in registration order.
func WithInputGuardrails(gs ...guardrail.InputGuardrail) Option {
	return func(a *Agent) { a.inputGuardrails = append(a.inputGuardrails, gs...) }
}

// WithOutputGuardrails appends output guardrails, run in registration
// order.
func WithOutputGuardrails(gs ...guardrail.OutputGuardrail) Option {
	return func(a *Agent) { a.outputGuardrails = append(a.outputGuardrails, gs...) }
}

// WithHandoffs registers handoff targets reachable from this Agent. Build
// fails if two handoffs share a name.
func WithHandoffs(hs ...HandoffDescriptor) Option {
	return func(a *Agent) { a.pendingHandoffs = append(a.pendingHandoffs, hs...) }
}

// WithTelemetry overrides the default no-op telemetry bundle.
func WithTelemetry(b telemetry.Bundle) Option {
	return func(a *Agent) { a.telemetry = b }
}

// New builds an Agent named name, issuing model calls through client. An
// error is returned if client is nil, name is empty, two tools share a
// name, or two handoffs share a name.
func New(name string, client model.Client, opts ...Option) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: agent name must not be empty", ErrConfig)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: model client must not be nil", ErrConfig)
	}
	a := &Agent{
		name:           name,
		client:         client,
		maxTurns:       10,
		tools:          tool.NewStore(),
		telemetry:      telemetry.NewNoopBundle(),
		handoffsByName: make(map[string]HandoffDescriptor),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxTurns <= 0 {
		a.maxTurns = 10
	}
	for _, t := range a.pendingTools {
		if err := a.tools.Register(t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
	}
	for _, h := range a.pendingHandoffs {
		if h.Target == nil {
			return nil, fmt.Errorf("%w: handoff %q has a nil target", ErrConfig, h.Name)
		}
		if _, dup := a.handoffsByName[h.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate handoff name %q", ErrConfig, h.Name)
		}
		a.handoffsByName[h.Name] = h
		a.handoffs = append(a.handoffs, h)
	}
	a.pendingTools = nil
	a.pendingHandoffs = nil
	return a, nil
}

// Name returns the Agent's configured name.
func (a *Agent) Name() string { return a.name }

// ToolStore returns the Agent's owned ToolStore.
func (a *Agent) ToolStore() *tool.Store { return a.tools }

// Handoffs returns the Agent's configured handoff targets.
func (a *Agent) Handoffs() []HandoffDescriptor { return a.handoffs }
