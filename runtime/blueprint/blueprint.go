// Package blueprint serializes agent and orchestrator topologies to and
// from JSON (and, via EncodeYAML/DecodeYAML, YAML) so a deployment can ship
// a topology as data instead of Go code. A Blueprint is a plain value: it
// names tools and guardrails rather than embedding them, since neither a
// tool.Invoker closure nor a guardrail predicate survives a JSON round
// trip. Decode resolves those names against a Resolver supplied by the
// caller at load time.
package blueprint

import (
	"context"
	"errors"
	"fmt"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/guardrail"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/tool"
)

// Blueprint is the sealed union of serializable topology descriptions.
// Every concrete type lives in this package; isBlueprint is unexported so
// no other package can add a variant that Encode/Decode don't know about.
type Blueprint interface {
	isBlueprint()
}

// AgentBlueprint describes a single agent.Agent.
type AgentBlueprint struct {
	Name         string
	Instructions string
	ModelID      string
	ClientID     string
	MaxTurns     int
	Temperature  float32
	MaxOutput    int

	ToolNames          []string
	InputGuardrailIDs  []string
	OutputGuardrailIDs []string
	Handoffs           []HandoffBlueprint
}

func (AgentBlueprint) isBlueprint() {}

// HandoffBlueprint describes one agent.HandoffDescriptor.
type HandoffBlueprint struct {
	Name        string
	Description string
	Target      Blueprint
}

// WorkerBlueprint describes one orchestrator.Worker.
type WorkerBlueprint struct {
	Name        string
	Description string
	Target      Blueprint
}

// SupervisorBlueprint describes an orchestrator.NewSupervisor topology: an
// agent whose tool surface gains one delegate_to_<worker> tool per Worker.
type SupervisorBlueprint struct {
	Name         string
	Instructions string
	ModelID      string
	ClientID     string
	MaxTurns     int
	Temperature  float32
	MaxOutput    int

	ToolNames          []string
	InputGuardrailIDs  []string
	OutputGuardrailIDs []string
	Workers            []WorkerBlueprint
}

func (SupervisorBlueprint) isBlueprint() {}

// ParallelBlueprint describes an orchestrator.ParallelAgents fan-out.
type ParallelBlueprint struct {
	Agents []Blueprint
}

func (ParallelBlueprint) isBlueprint() {}

// RouteBlueprint describes one orchestrator.Route.
type RouteBlueprint struct {
	Name        string
	Description string
	Target      Blueprint
}

// RouterBlueprint describes an orchestrator.RouterAgent.
type RouterBlueprint struct {
	ModelID  string
	ClientID string
	Routes   []RouteBlueprint
	Fallback *Blueprint
}

func (RouterBlueprint) isBlueprint() {}

// DepartmentBlueprint describes one orchestrator.Department.
type DepartmentBlueprint struct {
	Name          string
	Description   string
	ManagerName   string
	ManagerClient string
	Workers       []WorkerBlueprint
}

// HierarchicalBlueprint describes an orchestrator.HierarchicalAgents.
type HierarchicalBlueprint struct {
	Name        string
	ModelID     string
	ClientID    string
	MaxRounds   int
	Departments []DepartmentBlueprint
}

func (HierarchicalBlueprint) isBlueprint() {}

// NetworkBlueprint describes an orchestrator.AgentNetwork.
type NetworkBlueprint struct {
	Peers       []Blueprint
	MaxRounds   int
	Synthesizer *Blueprint
}

func (NetworkBlueprint) isBlueprint() {}

// Membership is satisfied by *guardrail.RedisMembership. When a Resolver
// sets it, every guardrail id a Blueprint names is checked against it
// before the local Registry lookup, so a Blueprint decoded on a process
// that never registered the guardrail locally fails with an ErrUnresolved
// whose Kind marks the miss as cross-process, instead of a silent
// local-only miss indistinguishable from a typo.
type Membership interface {
	IsAnnounced(ctx context.Context, kind, id string) (bool, error)
}

// Resolver supplies everything a Blueprint references by name instead of
// by value: model clients, tool instances, and guardrail predicates. A
// Blueprint that names an id Resolver cannot satisfy fails to decode with
// a descriptive error rather than building a half-wired topology.
type Resolver struct {
	// DefaultClient backs every node whose ClientID is empty.
	DefaultClient model.Client
	// Clients resolves a non-empty ClientID to a model.Client.
	Clients map[string]model.Client
	// Tools resolves a ToolNames entry to a live *tool.Tool.
	Tools map[string]*tool.Tool
	// Guardrails resolves InputGuardrailIDs/OutputGuardrailIDs. If nil,
	// guardrail.Global() is used.
	Guardrails guardrail.Registry
	// Membership, if set, gates every guardrail lookup behind a
	// cross-process "is this id registered anywhere" check. Optional: most
	// single-process deployments leave this nil and resolve purely against
	// Guardrails.
	Membership Membership
}

// ErrUnresolved is returned by Decode when a Blueprint references a client,
// tool, or guardrail id the Resolver does not provide.
type ErrUnresolved struct {
	Kind string
	ID   string
}

func (e *ErrUnresolved) Error() string {
	return fmt.Sprintf("blueprint: no %s registered for id %q", e.Kind, e.ID)
}

// ErrUnknownType is returned by Decode when a serialized envelope's Type
// field does not name a known Blueprint variant.
var ErrUnknownType = errors.New("blueprint: unknown type")

func (r *Resolver) registry() guardrail.Registry {
	if r.Guardrails != nil {
		return r.Guardrails
	}
	return guardrail.Global()
}

func (r *Resolver) client(id string) (model.Client, error) {
	if id == "" {
		if r.DefaultClient == nil {
			return nil, &ErrUnresolved{Kind: "client", ID: "(default)"}
		}
		return r.DefaultClient, nil
	}
	c, ok := r.Clients[id]
	if !ok {
		return nil, &ErrUnresolved{Kind: "client", ID: id}
	}
	return c, nil
}

func (r *Resolver) tools(names []string) ([]*tool.Tool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]*tool.Tool, 0, len(names))
	for _, name := range names {
		t, ok := r.Tools[name]
		if !ok {
			return nil, &ErrUnresolved{Kind: "tool", ID: name}
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *Resolver) checkAnnounced(ctx context.Context, kind, id string) error {
	if r.Membership == nil {
		return nil
	}
	ok, err := r.Membership.IsAnnounced(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("blueprint: membership check for %s guardrail %q: %w", kind, id, err)
	}
	if !ok {
		return &ErrUnresolved{Kind: kind + " guardrail (cross-process)", ID: id}
	}
	return nil
}

func (r *Resolver) inputGuardrails(ctx context.Context, ids []string) ([]guardrail.InputGuardrail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	reg := r.registry()
	out := make([]guardrail.InputGuardrail, 0, len(ids))
	for _, id := range ids {
		if err := r.checkAnnounced(ctx, "input", id); err != nil {
			return nil, err
		}
		g, err := guardrail.ResolveInput(reg, id)
		if err != nil {
			var notRegistered *guardrail.ErrNotRegistered
			if errors.As(err, &notRegistered) {
				return nil, &ErrUnresolved{Kind: "input guardrail", ID: id}
			}
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *Resolver) outputGuardrails(ctx context.Context, ids []string) ([]guardrail.OutputGuardrail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	reg := r.registry()
	out := make([]guardrail.OutputGuardrail, 0, len(ids))
	for _, id := range ids {
		if err := r.checkAnnounced(ctx, "output", id); err != nil {
			return nil, err
		}
		g, err := guardrail.ResolveOutput(reg, id)
		if err != nil {
			var notRegistered *guardrail.ErrNotRegistered
			if errors.As(err, &notRegistered) {
				return nil, &ErrUnresolved{Kind: "output guardrail", ID: id}
			}
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// agentOptions assembles the agent.Option list shared by AgentBlueprint
// and SupervisorBlueprint (both build on top of an *agent.Agent).
func (r *Resolver) agentOptions(ctx context.Context, instructions, modelID string, maxTurns int, temperature float32, maxOutput int, toolNames, inputIDs, outputIDs []string) ([]agent.Option, error) {
	tools, err := r.tools(toolNames)
	if err != nil {
		return nil, err
	}
	inputGs, err := r.inputGuardrails(ctx, inputIDs)
	if err != nil {
		return nil, err
	}
	outputGs, err := r.outputGuardrails(ctx, outputIDs)
	if err != nil {
		return nil, err
	}
	opts := []agent.Option{agent.WithInstructions(instructions)}
	if modelID != "" {
		opts = append(opts, agent.WithModel(modelID))
	}
	if maxTurns > 0 {
		opts = append(opts, agent.WithMaxTurns(maxTurns))
	}
	if temperature != 0 {
		opts = append(opts, agent.WithTemperature(temperature))
	}
	if maxOutput > 0 {
		opts = append(opts, agent.WithMaxOutputTokens(maxOutput))
	}
	if len(tools) > 0 {
		opts = append(opts, agent.WithTools(tools...))
	}
	if len(inputGs) > 0 {
		opts = append(opts, agent.WithInputGuardrails(inputGs...))
	}
	if len(outputGs) > 0 {
		opts = append(opts, agent.WithOutputGuardrails(outputGs...))
	}
	return opts, nil
}
