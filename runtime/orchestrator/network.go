package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/traceid"
)

// ErrNoPeers is returned by NewNetwork when called with no peers.
var ErrNoPeers = errors.New("orchestrator: AgentNetwork requires at least one peer")

// AgentNetwork runs a fixed list of peers in round-robin turns against a
// shared, ever-growing transcript, then optionally hands the result to a
// synthesizer.
type AgentNetwork struct {
	peers       []agent.Interactable
	synthesizer agent.Interactable
	maxRounds   int
}

// NetworkOption configures an AgentNetwork at build time.
type NetworkOption func(*AgentNetwork)

// WithSynthesizer sets the Interactable that produces the composite answer
// after the final round. Without one, the result is the final peer's own
// Success.
func WithSynthesizer(s agent.Interactable) NetworkOption {
	return func(n *AgentNetwork) { n.synthesizer = s }
}

// NewNetwork builds an AgentNetwork over peers. maxRounds bounds the total
// number of peer turns, not the peer count: a 3-peer network with
// maxRounds=2 runs 6 peer turns (2 full round-robin passes).
func NewNetwork(peers []agent.Interactable, maxRounds int, opts ...NetworkOption) (*AgentNetwork, error) {
	if len(peers) == 0 {
		return nil, ErrNoPeers
	}
	if maxRounds <= 0 {
		maxRounds = 1
	}
	n := &AgentNetwork{peers: append([]agent.Interactable(nil), peers...), maxRounds: maxRounds}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Interact runs every peer maxRounds times round-robin over a transcript
// forked from in (not copied) so each peer's turn shares the same trace
// identity while receiving its own fresh span id and a turn counter that
// tracks only its own turns. If a synthesizer is configured, its Success
// becomes the network's result; otherwise the final peer's own Success
// does.
func (n *AgentNetwork) Interact(ctx context.Context, in *agentcontext.Context) (agent.Result, error) {
	if in == nil {
		return agent.Result{}, fmt.Errorf("%w: context must not be nil", agent.ErrConfig)
	}
	ensureTrace(in)

	transcript := in
	var last agent.Result
	for round := 0; round < n.maxRounds; round++ {
		for i, peer := range n.peers {
			sid, err := traceid.NewSpan()
			if err != nil {
				return agent.Result{}, fmt.Errorf("orchestrator: generate peer span id: %w", err)
			}
			peerCtx := transcript.Fork(sid)

			res, err := peer.Interact(ctx, peerCtx)
			if err != nil {
				return agent.Result{}, err
			}
			last = res
			if errRes, failed := res.Error(); failed {
				return agent.Result{Outcome: errRes}, nil
			}
			if succ, ok := res.Success(); ok {
				if h, err := transcript.WithHistory(succ.History); err == nil {
					transcript = h
				}
				transcript.SetState(fmt.Sprintf("peer_%d_round_%d", i, round), succ.Output)
			}
		}
	}

	if n.synthesizer == nil {
		return last, nil
	}

	sid, err := traceid.NewSpan()
	if err != nil {
		return agent.Result{}, fmt.Errorf("orchestrator: generate synthesizer span id: %w", err)
	}
	synthCtx := transcript.Fork(sid)
	return n.synthesizer.Interact(ctx, synthCtx)
}

// InteractStream runs Interact and delivers its Result to OnComplete.
func (n *AgentNetwork) InteractStream(ctx context.Context, in *agentcontext.Context) *agent.Stream {
	return agent.NewStream(nil, func(ctx context.Context, _ *agent.Stream) agent.Result {
		res, err := n.Interact(ctx, in)
		if err != nil {
			return agent.Result{Outcome: agent.ErrorResult{Cause: err, Context: in}}
		}
		return res
	})
}
