package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/tool"
)

// ErrNoWorkers is returned by NewSupervisor when called with no workers.
var ErrNoWorkers = errors.New("orchestrator: SupervisorAgent requires at least one worker")

const delegationArgsSchema = `{"type":"object","properties":{"task":{"type":"string","description":"the task to delegate"}},"required":["task"]}`

// Worker names one delegation target reachable from a supervisor or
// department manager's synthetic delegate_to_<name> tool.
type Worker struct {
	Name        string
	Description string
	Target      agent.Interactable
}

// NewSupervisor builds an ordinary *agent.Agent whose tool surface includes
// one synthetic delegate_to_<worker.Name> tool per worker, in addition to
// any tools passed via opts. Each delegation forks a sub-run Context from
// the supervisor's own run Context (recovered from ctx via
// agentcontext.FromRunContext) and blocks on the worker's Interact.
func NewSupervisor(name string, client model.Client, workers []Worker, opts ...agent.Option) (*agent.Agent, error) {
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}
	delegationTools := make([]*tool.Tool, 0, len(workers))
	for _, w := range workers {
		w := w
		t, err := tool.New(
			"delegate_to_"+w.Name,
			fmt.Sprintf("Delegate a task to %s: %s", w.Name, w.Description),
			json.RawMessage(delegationArgsSchema),
			delegationInvoker(w.Target),
		)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: build delegation tool for worker %q: %w", w.Name, err)
		}
		delegationTools = append(delegationTools, t)
	}
	allOpts := append([]agent.Option{agent.WithTools(delegationTools...)}, opts...)
	return agent.New(name, client, allOpts...)
}

// delegationInvoker returns the tool.Invoker backing one delegate_to_<name>
// tool: it recovers the caller's run Context, forks it for the sub-run, and
// renders the worker's Success output (or a failure summary) back as the
// tool's result so the supervisor's model sees a plain text payload. When
// ctx carries a *roundBudget (HierarchicalAgents), each delegation consumes
// one round and fails as an ordinary tool error once the budget is spent.
func delegationInvoker(target agent.Interactable) tool.Invoker {
	return func(ctx context.Context, argsJSON json.RawMessage) tool.CallOutput {
		if budget, ok := ctx.Value(hierarchyRoundKey{}).(*roundBudget); ok {
			if err := budget.consume(); err != nil {
				return tool.CallOutput{Err: err}
			}
		}

		var args struct {
			Task string `json:"task"`
		}
		if err := json.Unmarshal(argsJSON, &args); err != nil {
			return tool.CallOutput{Err: fmt.Errorf("decode delegation arguments: %w", err)}
		}

		parent, ok := agentcontext.FromRunContext(ctx)
		if !ok {
			parent = agentcontext.New()
		}
		sub, err := forkChild(parent)
		if err != nil {
			return tool.CallOutput{Err: err}
		}
		sub.AddMessage(args.Task)

		res, err := target.Interact(ctx, sub)
		if err != nil {
			return tool.CallOutput{Err: err}
		}
		if succ, ok := res.Success(); ok {
			return tool.CallOutput{Result: succ.Output}
		}
		if errRes, ok := res.Error(); ok {
			return tool.CallOutput{Err: errRes.Cause}
		}
		if ho, ok := res.Handoff(); ok {
			return tool.CallOutput{Result: fmt.Sprintf("delegated further to %s: %s", ho.Target, ho.Reason)}
		}
		return tool.CallOutput{Result: ""}
	}
}
