// Package orchestrator implements composite agent.Interactable topologies
// that coordinate one or more child Interactables: concurrent fan-out
// (ParallelAgents), LLM-driven dispatch (RouterAgent), delegating
// coordination (SupervisorAgent, HierarchicalAgents), and round-robin peer
// collaboration (AgentNetwork).
//
// Every type here implements agent.Interactable so orchestrators compose
// transparently — a RouterAgent can route to a SupervisorAgent, a
// HierarchicalAgents department worker can itself be an AgentNetwork, and
// so on.
package orchestrator

import (
	"fmt"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/traceid"
)

// ensureTrace assigns a fresh trace/span id to ac if it has none, mirroring
// agent.Agent's own root-initialization so an orchestrator can be the entry
// point of a run without an Agent ever being consulted first.
func ensureTrace(ac *agentcontext.Context) {
	if ac.HasTraceContext() {
		return
	}
	tid, err := traceid.New()
	if err != nil {
		return
	}
	sid, err := traceid.NewSpan()
	if err != nil {
		return
	}
	ac.WithTraceContext(tid, sid)
}

// forkChild produces an isolated child Context for a concurrent branch: same
// trace id, fresh span id, reset turn count, independent history/state copy.
func forkChild(shared *agentcontext.Context) (*agentcontext.Context, error) {
	sid, err := traceid.NewSpan()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: generate child span id: %w", err)
	}
	return shared.Fork(sid), nil
}

// named returns a's Name() if it implements the optional interface, else a
// positional fallback label.
func named(a agent.Interactable, idx int) string {
	if n, ok := a.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("agent_%d", idx)
}

// errorResult builds an ErrorResult-wrapped Result for an orchestration
// failure that is not itself a child agent's run-level failure (e.g. id
// generation).
func errorResult(ctx *agentcontext.Context, err error) agent.Result {
	return agent.Result{Outcome: agent.ErrorResult{Cause: err, Context: ctx}}
}
