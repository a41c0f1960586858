package blueprint

import (
	"context"
	"fmt"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/orchestrator"
)

// Build resolves bp into a live agent.Interactable against r. It is the
// in-process half of Decode: Decode unmarshals bytes into a Blueprint tree
// and then calls Build; callers already holding a Blueprint value (built by
// hand, or produced by another blueprint) can call Build directly. ctx
// bounds any membership lookups r.Membership performs along the way.
func Build(ctx context.Context, bp Blueprint, r *Resolver) (agent.Interactable, error) {
	switch b := bp.(type) {
	case AgentBlueprint:
		return buildAgent(ctx, b, r)
	case SupervisorBlueprint:
		return buildSupervisor(ctx, b, r)
	case ParallelBlueprint:
		return buildParallel(ctx, b, r)
	case RouterBlueprint:
		return buildRouter(ctx, b, r)
	case HierarchicalBlueprint:
		return buildHierarchical(ctx, b, r)
	case NetworkBlueprint:
		return buildNetwork(ctx, b, r)
	default:
		return nil, fmt.Errorf("blueprint: build: %T: %w", bp, ErrUnknownType)
	}
}

func buildAgent(ctx context.Context, b AgentBlueprint, r *Resolver) (agent.Interactable, error) {
	client, err := r.client(b.ClientID)
	if err != nil {
		return nil, fmt.Errorf("blueprint: agent %q: %w", b.Name, err)
	}
	opts, err := r.agentOptions(ctx, b.Instructions, b.ModelID, b.MaxTurns, b.Temperature, b.MaxOutput, b.ToolNames, b.InputGuardrailIDs, b.OutputGuardrailIDs)
	if err != nil {
		return nil, fmt.Errorf("blueprint: agent %q: %w", b.Name, err)
	}
	if len(b.Handoffs) > 0 {
		handoffs, err := buildHandoffs(ctx, b.Handoffs, r)
		if err != nil {
			return nil, fmt.Errorf("blueprint: agent %q: %w", b.Name, err)
		}
		opts = append(opts, agent.WithHandoffs(handoffs...))
	}
	a, err := agent.New(b.Name, client, opts...)
	if err != nil {
		return nil, fmt.Errorf("blueprint: agent %q: %w", b.Name, err)
	}
	return a, nil
}

func buildHandoffs(ctx context.Context, bps []HandoffBlueprint, r *Resolver) ([]agent.HandoffDescriptor, error) {
	out := make([]agent.HandoffDescriptor, 0, len(bps))
	for _, h := range bps {
		target, err := Build(ctx, h.Target, r)
		if err != nil {
			return nil, fmt.Errorf("handoff %q: %w", h.Name, err)
		}
		out = append(out, agent.HandoffDescriptor{Name: h.Name, Description: h.Description, Target: target})
	}
	return out, nil
}

func buildWorkers(ctx context.Context, bps []WorkerBlueprint, r *Resolver) ([]orchestrator.Worker, error) {
	out := make([]orchestrator.Worker, 0, len(bps))
	for _, w := range bps {
		target, err := Build(ctx, w.Target, r)
		if err != nil {
			return nil, fmt.Errorf("worker %q: %w", w.Name, err)
		}
		out = append(out, orchestrator.Worker{Name: w.Name, Description: w.Description, Target: target})
	}
	return out, nil
}

func buildSupervisor(ctx context.Context, b SupervisorBlueprint, r *Resolver) (agent.Interactable, error) {
	client, err := r.client(b.ClientID)
	if err != nil {
		return nil, fmt.Errorf("blueprint: supervisor %q: %w", b.Name, err)
	}
	workers, err := buildWorkers(ctx, b.Workers, r)
	if err != nil {
		return nil, fmt.Errorf("blueprint: supervisor %q: %w", b.Name, err)
	}
	opts, err := r.agentOptions(ctx, b.Instructions, b.ModelID, b.MaxTurns, b.Temperature, b.MaxOutput, b.ToolNames, b.InputGuardrailIDs, b.OutputGuardrailIDs)
	if err != nil {
		return nil, fmt.Errorf("blueprint: supervisor %q: %w", b.Name, err)
	}
	sup, err := orchestrator.NewSupervisor(b.Name, client, workers, opts...)
	if err != nil {
		return nil, fmt.Errorf("blueprint: supervisor %q: %w", b.Name, err)
	}
	return sup, nil
}

func buildParallel(ctx context.Context, b ParallelBlueprint, r *Resolver) (agent.Interactable, error) {
	children := make([]agent.Interactable, 0, len(b.Agents))
	for i, cb := range b.Agents {
		child, err := Build(ctx, cb, r)
		if err != nil {
			return nil, fmt.Errorf("blueprint: parallel agent %d: %w", i, err)
		}
		children = append(children, child)
	}
	p, err := orchestrator.Of(children...)
	if err != nil {
		return nil, fmt.Errorf("blueprint: parallel: %w", err)
	}
	return p, nil
}

func buildRouter(ctx context.Context, b RouterBlueprint, r *Resolver) (agent.Interactable, error) {
	client, err := r.client(b.ClientID)
	if err != nil {
		return nil, fmt.Errorf("blueprint: router: %w", err)
	}
	routes := make([]orchestrator.Route, 0, len(b.Routes))
	for _, rt := range b.Routes {
		target, err := Build(ctx, rt.Target, r)
		if err != nil {
			return nil, fmt.Errorf("blueprint: router route %q: %w", rt.Name, err)
		}
		routes = append(routes, orchestrator.Route{Name: rt.Name, Description: rt.Description, Target: target})
	}
	var opts []orchestrator.RouterOption
	if b.Fallback != nil {
		fallback, err := Build(ctx, *b.Fallback, r)
		if err != nil {
			return nil, fmt.Errorf("blueprint: router fallback: %w", err)
		}
		opts = append(opts, orchestrator.WithFallback(fallback))
	}
	router, err := orchestrator.NewRouter(client, b.ModelID, routes, opts...)
	if err != nil {
		return nil, fmt.Errorf("blueprint: router: %w", err)
	}
	return router, nil
}

func buildHierarchical(ctx context.Context, b HierarchicalBlueprint, r *Resolver) (agent.Interactable, error) {
	client, err := r.client(b.ClientID)
	if err != nil {
		return nil, fmt.Errorf("blueprint: hierarchy %q: %w", b.Name, err)
	}
	departments := make([]orchestrator.Department, 0, len(b.Departments))
	for _, d := range b.Departments {
		workers, err := buildWorkers(ctx, d.Workers, r)
		if err != nil {
			return nil, fmt.Errorf("blueprint: hierarchy department %q: %w", d.Name, err)
		}
		var managerClient = client
		if d.ManagerClient != "" {
			managerClient, err = r.client(d.ManagerClient)
			if err != nil {
				return nil, fmt.Errorf("blueprint: hierarchy department %q: %w", d.Name, err)
			}
		}
		departments = append(departments, orchestrator.Department{
			Name:          d.Name,
			Description:   d.Description,
			ManagerName:   d.ManagerName,
			ManagerClient: managerClient,
			Workers:       workers,
		})
	}
	h, err := orchestrator.NewHierarchical(b.Name, client, departments, b.MaxRounds)
	if err != nil {
		return nil, fmt.Errorf("blueprint: hierarchy %q: %w", b.Name, err)
	}
	return h, nil
}

func buildNetwork(ctx context.Context, b NetworkBlueprint, r *Resolver) (agent.Interactable, error) {
	peers := make([]agent.Interactable, 0, len(b.Peers))
	for i, pb := range b.Peers {
		peer, err := Build(ctx, pb, r)
		if err != nil {
			return nil, fmt.Errorf("blueprint: network peer %d: %w", i, err)
		}
		peers = append(peers, peer)
	}
	var opts []orchestrator.NetworkOption
	if b.Synthesizer != nil {
		synth, err := Build(ctx, *b.Synthesizer, r)
		if err != nil {
			return nil, fmt.Errorf("blueprint: network synthesizer: %w", err)
		}
		opts = append(opts, orchestrator.WithSynthesizer(synth))
	}
	net, err := orchestrator.NewNetwork(peers, b.MaxRounds, opts...)
	if err != nil {
		return nil, fmt.Errorf("blueprint: network: %w", err)
	}
	return net, nil
}
