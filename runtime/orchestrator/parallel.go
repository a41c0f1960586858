package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
)

// ErrNoAgents is returned by Of when called with no agents.
var ErrNoAgents = errors.New("orchestrator: ParallelAgents requires at least one agent")

// ParallelAgents fans a single input out to a fixed, read-only list of
// child Interactables. Each child runs against its own forked Context so
// state mutations never leak back into the caller's shared Context (see
// Run).
type ParallelAgents struct {
	agents []agent.Interactable
}

// Of constructs a ParallelAgents over agents, which must be non-empty.
func Of(agents ...agent.Interactable) (*ParallelAgents, error) {
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	return &ParallelAgents{agents: append([]agent.Interactable(nil), agents...)}, nil
}

// Agents returns a read-only view of the configured children.
func (p *ParallelAgents) Agents() []agent.Interactable {
	return p.agents
}

// Run issues one forked child Context per agent from shared (a fresh
// Context if shared is nil), runs every agent concurrently, and returns
// results in input order regardless of completion order. A child agent's
// own run-level failure becomes an ErrorResult entry in the returned slice,
// not a whole-Run failure; the returned error is reserved for orchestration
// setup failures (id generation).
func (p *ParallelAgents) Run(ctx context.Context, shared *agentcontext.Context) ([]agent.Result, error) {
	if shared == nil {
		shared = agentcontext.New()
	}
	ensureTrace(shared)

	results := make([]agent.Result, len(p.agents))
	var g errgroup.Group
	for i, ag := range p.agents {
		i, ag := i, ag
		child, err := forkChild(shared)
		if err != nil {
			results[i] = errorResult(shared, err)
			continue
		}
		g.Go(func() error {
			res, err := ag.Interact(ctx, child)
			if err != nil {
				results[i] = errorResult(child, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // child failures are carried in results, never propagated here
	return results, nil
}

// RunFirst races every child concurrently against a shared cancellable
// context and returns the first result that is not an ErrorResult. Losing
// branches are asked to cancel (best-effort); their in-flight model calls
// may still complete in the background and are discarded. If every branch
// fails, the last observed failure is returned.
func (p *ParallelAgents) RunFirst(ctx context.Context, shared *agentcontext.Context) (agent.Result, error) {
	if shared == nil {
		shared = agentcontext.New()
	}
	ensureTrace(shared)

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type branchOutcome struct {
		res agent.Result
		err error
	}
	outcomes := make(chan branchOutcome, len(p.agents))

	for _, ag := range p.agents {
		ag := ag
		child, err := forkChild(shared)
		if err != nil {
			outcomes <- branchOutcome{err: err}
			continue
		}
		go func() {
			res, err := ag.Interact(raceCtx, child)
			outcomes <- branchOutcome{res: res, err: err}
		}()
	}

	var last branchOutcome
	for i := 0; i < len(p.agents); i++ {
		o := <-outcomes
		last = o
		if o.err != nil {
			continue
		}
		if _, failed := o.res.Error(); !failed {
			cancel()
			return o.res, nil
		}
	}
	if last.err != nil {
		return agent.Result{}, last.err
	}
	return last.res, nil
}

// RunAndSynthesize fans out via Run, waits for every worker (failures are
// folded in as string summaries), then feeds a composite transcript to
// synthesizer. The synthesizer's Context is forked from shared so it
// inherits the shared parent trace.
func (p *ParallelAgents) RunAndSynthesize(ctx context.Context, shared *agentcontext.Context, synthesizer agent.Interactable) (agent.Result, error) {
	if shared == nil {
		shared = agentcontext.New()
	}
	results, err := p.Run(ctx, shared)
	if err != nil {
		return agent.Result{}, err
	}

	var sb strings.Builder
	for i, res := range results {
		name := named(p.agents[i], i)
		if succ, ok := res.Success(); ok {
			fmt.Fprintf(&sb, "%s: %s\n", name, succ.Output)
			continue
		}
		if errRes, ok := res.Error(); ok {
			fmt.Fprintf(&sb, "%s: error: %v\n", name, errRes.Cause)
			continue
		}
		if ho, ok := res.Handoff(); ok {
			fmt.Fprintf(&sb, "%s: handed off to %s\n", name, ho.Target)
		}
	}

	synthCtx, err := forkChild(shared)
	if err != nil {
		return agent.Result{}, err
	}
	synthCtx.AddMessage(sb.String())
	return synthesizer.Interact(ctx, synthCtx)
}

// Interact implements agent.Interactable as RunFirst: the only one of
// ParallelAgents' three operations that both takes no extra parameters and
// naturally yields a single Result.
func (p *ParallelAgents) Interact(ctx context.Context, in *agentcontext.Context) (agent.Result, error) {
	return p.RunFirst(ctx, in)
}

// InteractStream runs Interact and delivers its Result to OnComplete; the
// per-turn callback set is not populated since ParallelAgents has no single
// turn sequence of its own to report.
func (p *ParallelAgents) InteractStream(ctx context.Context, in *agentcontext.Context) *agent.Stream {
	return agent.NewStream(nil, func(ctx context.Context, _ *agent.Stream) agent.Result {
		res, err := p.Interact(ctx, in)
		if err != nil {
			return agent.Result{Outcome: agent.ErrorResult{Cause: err, Context: in}}
		}
		return res
	})
}
