package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model/modeltest"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/orchestrator"
)

func textResponse(text string) *model.Response {
	return &model.Response{
		Status: model.ResponseStatusCompleted,
		Output: []model.OutputItem{model.MessageOutput{Role: model.RoleAssistant, Text: text}},
	}
}

func mustAgent(t *testing.T, name, reply string) *agent.Agent {
	t.Helper()
	a, err := agent.New(name, modeltest.NewClient(textResponse(reply)))
	require.NoError(t, err)
	return a
}

func TestParallelIsolation(t *testing.T) {
	p, err := orchestrator.Of(mustAgent(t, "a", "alpha"), mustAgent(t, "b", "bravo"))
	require.NoError(t, err)

	shared := agentcontext.New()
	shared.SetState("k", "initial")

	results, err := p.Run(context.Background(), shared)
	require.NoError(t, err)
	require.Len(t, results, 2)

	v, ok := shared.GetState("k")
	require.True(t, ok)
	assert.Equal(t, "initial", v)

	succ0, ok := results[0].Success()
	require.True(t, ok)
	assert.Equal(t, "alpha", succ0.Output)
	succ1, ok := results[1].Success()
	require.True(t, ok)
	assert.Equal(t, "bravo", succ1.Output)
}

func TestParallelRunFirstReturnsFirstSuccess(t *testing.T) {
	p, err := orchestrator.Of(mustAgent(t, "slow", "slow-result"))
	require.NoError(t, err)

	res, err := p.RunFirst(context.Background(), agentcontext.New())
	require.NoError(t, err)
	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "slow-result", succ.Output)
}

func TestParallelRunAndSynthesize(t *testing.T) {
	p, err := orchestrator.Of(mustAgent(t, "a", "alpha"), mustAgent(t, "b", "bravo"))
	require.NoError(t, err)
	synth := mustAgent(t, "synth", "combined")

	res, err := p.RunAndSynthesize(context.Background(), agentcontext.New(), synth)
	require.NoError(t, err)
	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "combined", succ.Output)
}

func TestRouterClassifiesAndDispatches(t *testing.T) {
	classifier := modeltest.NewClient(textResponse("1"))
	billing := mustAgent(t, "billing", "billing handled")
	tech := mustAgent(t, "tech", "tech handled")

	r, err := orchestrator.NewRouter(classifier, "classifier-model", []orchestrator.Route{
		{Name: "Billing", Description: "billing, invoices", Target: billing},
		{Name: "Tech", Description: "technical issues", Target: tech},
	})
	require.NoError(t, err)

	res, err := r.Interact(context.Background(), agent.TextInput("I was double charged"))
	require.NoError(t, err)
	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "billing handled", succ.Output)
}

func TestRouterFallsBackOnInvalidClassification(t *testing.T) {
	classifier := modeltest.NewClient(textResponse("invalid"))
	fallback := mustAgent(t, "fallback", "fallback handled")
	billing := mustAgent(t, "billing", "billing handled")

	r, err := orchestrator.NewRouter(classifier, "classifier-model", []orchestrator.Route{
		{Name: "Billing", Description: "billing, invoices", Target: billing},
	}, orchestrator.WithFallback(fallback))
	require.NoError(t, err)

	res, err := r.Interact(context.Background(), agent.TextInput("???"))
	require.NoError(t, err)
	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "fallback handled", succ.Output)
}

func TestRouterNoRouteAvailableWithoutFallback(t *testing.T) {
	classifier := modeltest.NewClient(textResponse("invalid"))
	billing := mustAgent(t, "billing", "billing handled")

	r, err := orchestrator.NewRouter(classifier, "classifier-model", []orchestrator.Route{
		{Name: "Billing", Description: "billing, invoices", Target: billing},
	})
	require.NoError(t, err)

	res, err := r.Interact(context.Background(), agent.TextInput("???"))
	require.NoError(t, err)
	errRes, ok := res.Error()
	require.True(t, ok)
	assert.ErrorIs(t, errRes.Cause, agent.ErrRouteUnavailable)
}

func TestSupervisorDelegatesToWorker(t *testing.T) {
	worker := mustAgent(t, "researcher", "42 is the answer")

	supervisorClient := modeltest.NewClient(
		&model.Response{
			Status: model.ResponseStatusCompleted,
			Output: []model.OutputItem{model.FunctionCallOutput{
				CallID:    "call_1",
				Name:      "delegate_to_researcher",
				Arguments: []byte(`{"task":"what is the answer"}`),
			}},
		},
		textResponse("The answer is 42."),
	)

	sup, err := orchestrator.NewSupervisor("coordinator", supervisorClient, []orchestrator.Worker{
		{Name: "researcher", Description: "answers research questions", Target: worker},
	})
	require.NoError(t, err)

	res, err := sup.Interact(context.Background(), agent.TextInput("what is the answer?"))
	require.NoError(t, err)
	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "The answer is 42.", succ.Output)
	require.Len(t, succ.ToolExecutions, 1)
	assert.Equal(t, "delegate_to_researcher", succ.ToolExecutions[0].ToolName)
}

func TestHierarchicalDelegatesThroughDepartment(t *testing.T) {
	worker := mustAgent(t, "engineer", "fix shipped")

	managerClient := modeltest.NewClient(
		&model.Response{
			Status: model.ResponseStatusCompleted,
			Output: []model.OutputItem{model.FunctionCallOutput{
				CallID:    "call_1",
				Name:      "delegate_to_engineer",
				Arguments: []byte(`{"task":"fix the bug"}`),
			}},
		},
		textResponse("fix shipped"),
	)
	executiveClient := modeltest.NewClient(
		&model.Response{
			Status: model.ResponseStatusCompleted,
			Output: []model.OutputItem{model.FunctionCallOutput{
				CallID:    "call_1",
				Name:      "delegate_to_engineering",
				Arguments: []byte(`{"task":"fix the bug"}`),
			}},
		},
		textResponse("fix shipped"),
	)

	h, err := orchestrator.NewHierarchical("ceo", executiveClient, []orchestrator.Department{
		{
			Name:          "engineering",
			Description:   "builds and fixes software",
			ManagerClient: managerClient,
			Workers: []orchestrator.Worker{
				{Name: "engineer", Description: "fixes bugs", Target: worker},
			},
		},
	}, 10)
	require.NoError(t, err)

	res, err := h.Interact(context.Background(), agent.TextInput("there is a bug"))
	require.NoError(t, err)
	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "fix shipped", succ.Output)
}

func TestNetworkRoundRobinBoundsTotalPeerTurns(t *testing.T) {
	clientA := modeltest.NewClient(textResponse("from A"), textResponse("from A"))
	clientB := modeltest.NewClient(textResponse("from B"), textResponse("from B"))
	peerA, err := agent.New("peerA", clientA)
	require.NoError(t, err)
	peerB, err := agent.New("peerB", clientB)
	require.NoError(t, err)

	n, err := orchestrator.NewNetwork([]agent.Interactable{peerA, peerB}, 2)
	require.NoError(t, err)

	res, err := n.Interact(context.Background(), agent.TextInput("collaborate"))
	require.NoError(t, err)
	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "from B", succ.Output)
	assert.Equal(t, 2, clientA.CallCount())
	assert.Equal(t, 2, clientB.CallCount())
}

func TestNetworkWithSynthesizer(t *testing.T) {
	peerA := mustAgent(t, "peerA", "from A")
	synth := mustAgent(t, "synth", "synthesized")

	n, err := orchestrator.NewNetwork([]agent.Interactable{peerA}, 1, orchestrator.WithSynthesizer(synth))
	require.NoError(t, err)

	res, err := n.Interact(context.Background(), agent.TextInput("collaborate"))
	require.NoError(t, err)
	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "synthesized", succ.Output)
}
