package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

// ErrRoundBudgetExceeded is returned as a tool-level failure (never a fatal
// run error) by a delegate_to_<x> invoker once a HierarchicalAgents'
// maxRounds has been spent.
var ErrRoundBudgetExceeded = errors.New("orchestrator: hierarchy round budget exceeded")

// ErrNoDepartments is returned by NewHierarchical when called with no
// departments.
var ErrNoDepartments = errors.New("orchestrator: HierarchicalAgents requires at least one department")

type hierarchyRoundKey struct{}

// roundBudget is a process-local, mutex-guarded counter shared by every
// delegate_to_<x> tool invoker spawned under one HierarchicalAgents.Interact
// call, bounding the total number of sub-delegations across the whole
// department/worker tree rather than per department.
type roundBudget struct {
	mu   sync.Mutex
	max  int
	used int
}

func (b *roundBudget) consume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used >= b.max {
		return ErrRoundBudgetExceeded
	}
	b.used++
	return nil
}

// Department groups a manager's own model client with the workers it
// dispatches among via the same delegate_to_<worker> mechanism a
// SupervisorAgent uses.
type Department struct {
	Name        string
	Description string
	ManagerName string
	// ManagerClient is the model client issuing the department manager's
	// own calls. If nil, the executive's client is reused.
	ManagerClient model.Client
	Workers       []Worker
}

// HierarchicalAgents is an executive agent whose toolset includes one
// delegate_to_<department> tool per configured department; each department
// is itself a supervisor over its workers, recursively reusing the
// delegate_to_<worker> mechanism. maxRounds bounds the total number of
// sub-delegations (executive-to-manager and manager-to-worker combined)
// across one Interact call.
type HierarchicalAgents struct {
	executive *agent.Agent
	maxRounds int
}

// NewHierarchical builds the department managers (one SupervisorAgent per
// Department, over client) and the executive (a SupervisorAgent over the
// resulting managers), bounding total sub-delegations to maxRounds.
func NewHierarchical(name string, client model.Client, departments []Department, maxRounds int, opts ...agent.Option) (*HierarchicalAgents, error) {
	if len(departments) == 0 {
		return nil, ErrNoDepartments
	}
	if maxRounds <= 0 {
		maxRounds = 10
	}

	deptWorkers := make([]Worker, 0, len(departments))
	for _, dept := range departments {
		managerName := dept.ManagerName
		if managerName == "" {
			managerName = dept.Name + "-manager"
		}
		managerClient := dept.ManagerClient
		if managerClient == nil {
			managerClient = client
		}
		manager, err := NewSupervisor(managerName, managerClient, dept.Workers)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: build department %q manager: %w", dept.Name, err)
		}
		deptWorkers = append(deptWorkers, Worker{Name: dept.Name, Description: dept.Description, Target: manager})
	}

	executive, err := NewSupervisor(name, client, deptWorkers, opts...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build executive: %w", err)
	}
	return &HierarchicalAgents{executive: executive, maxRounds: maxRounds}, nil
}

// Interact runs the executive to completion under a shared round budget
// spanning every delegation in the hierarchy.
func (h *HierarchicalAgents) Interact(ctx context.Context, in *agentcontext.Context) (agent.Result, error) {
	ctx = context.WithValue(ctx, hierarchyRoundKey{}, &roundBudget{max: h.maxRounds})
	return h.executive.Interact(ctx, in)
}

// InteractStream behaves like Interact but delivers progress through the
// returned Stream, carrying the same round budget through every delegation.
func (h *HierarchicalAgents) InteractStream(ctx context.Context, in *agentcontext.Context) *agent.Stream {
	budget := &roundBudget{max: h.maxRounds}
	return agent.NewStream(nil, func(ctx context.Context, s *agent.Stream) agent.Result {
		ctx = context.WithValue(ctx, hierarchyRoundKey{}, budget)
		return h.executive.InteractStream(ctx, in).Start(ctx)
	})
}

// Name returns the executive agent's configured name.
func (h *HierarchicalAgents) Name() string { return h.executive.Name() }
