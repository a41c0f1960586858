package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/guardrail"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model/modeltest"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/tool"
)

func textResponse(text string) *model.Response {
	return &model.Response{
		Status: model.ResponseStatusCompleted,
		Output: []model.OutputItem{model.MessageOutput{Role: model.RoleAssistant, Text: text}},
	}
}

func TestInteractSingleTurnSuccess(t *testing.T) {
	client := modeltest.NewClient(textResponse("hello there"))
	a, err := agent.New("greeter", client)
	require.NoError(t, err)

	res, err := a.Interact(context.Background(), agent.TextInput("hi"))
	require.NoError(t, err)

	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "hello there", succ.Output)
	assert.Equal(t, 1, succ.TurnsUsed)
	assert.Equal(t, 1, client.CallCount())
}

func echoTool(t *testing.T) *tool.Tool {
	t.Helper()
	schema := json.RawMessage(`{"type":"object","properties":{"value":{"type":"string"}},"required":["value"]}`)
	tl, err := tool.New("echo", "echoes the value argument", schema, func(_ context.Context, argsJSON json.RawMessage) tool.CallOutput {
		var args struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(argsJSON, &args); err != nil {
			return tool.CallOutput{Err: err}
		}
		return tool.CallOutput{Result: map[string]string{"echoed": args.Value}}
	})
	require.NoError(t, err)
	return tl
}

func TestInteractTwoTurnToolUse(t *testing.T) {
	callResponse := &model.Response{
		Status: model.ResponseStatusCompleted,
		Output: []model.OutputItem{
			model.FunctionCallOutput{CallID: "call_1", Name: "echo", Arguments: json.RawMessage(`{"value":"ping"}`)},
		},
	}
	client := modeltest.NewClient(callResponse, textResponse("ping echoed back"))

	a, err := agent.New("caller", client, agent.WithTools(echoTool(t)))
	require.NoError(t, err)

	res, err := a.Interact(context.Background(), agent.TextInput("please echo ping"))
	require.NoError(t, err)

	succ, ok := res.Success()
	require.True(t, ok)
	assert.Equal(t, "ping echoed back", succ.Output)
	assert.Equal(t, 2, succ.TurnsUsed)
	assert.Equal(t, 2, client.CallCount())
	require.Len(t, succ.ToolExecutions, 1)
	assert.Equal(t, "echo", succ.ToolExecutions[0].ToolName)
	assert.Nil(t, succ.ToolExecutions[0].Err)
}

func TestInteractTraceContinuity(t *testing.T) {
	client := modeltest.NewClient(textResponse("ok"))
	a, err := agent.New("tracer", client)
	require.NoError(t, err)

	in := agent.TextInput("hi")
	in.WithTraceContext("11111111111111111111111111111111", "2222222222222222")

	_, err = a.Interact(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "11111111111111111111111111111111", in.TraceID())
	assert.Equal(t, "2222222222222222", in.SpanID())
}

func TestInteractAssignsTraceWhenAbsent(t *testing.T) {
	client := modeltest.NewClient(textResponse("ok"))
	a, err := agent.New("tracer2", client)
	require.NoError(t, err)

	in := agent.TextInput("hi")
	require.False(t, in.HasTraceContext())

	_, err = a.Interact(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, in.HasTraceContext())
	assert.NotEmpty(t, in.TraceID())
	assert.NotEmpty(t, in.SpanID())
}

func TestInteractTurnBudgetExceeded(t *testing.T) {
	callResponse := &model.Response{
		Status: model.ResponseStatusCompleted,
		Output: []model.OutputItem{
			model.FunctionCallOutput{CallID: "call_1", Name: "echo", Arguments: json.RawMessage(`{"value":"x"}`)},
		},
	}
	// Every turn requests another tool call, so the loop never terminates
	// on its own and must hit the turn budget.
	responses := make([]*model.Response, 3)
	for i := range responses {
		responses[i] = callResponse
	}
	client := modeltest.NewClient(responses...)

	a, err := agent.New("looper", client, agent.WithTools(echoTool(t)), agent.WithMaxTurns(3))
	require.NoError(t, err)

	res, err := a.Interact(context.Background(), agent.TextInput("loop forever"))
	require.NoError(t, err)

	errRes, ok := res.Error()
	require.True(t, ok)
	assert.ErrorIs(t, errRes.Cause, agent.ErrTurnBudgetExceeded)
	assert.Equal(t, 3, errRes.TurnsUsed)
}

func TestInteractHandoffTerminates(t *testing.T) {
	handoffResponse := &model.Response{
		Status: model.ResponseStatusCompleted,
		Output: []model.OutputItem{model.HandoffOutput{Target: "billing", Reason: "out of scope"}},
	}
	client := modeltest.NewClient(handoffResponse)

	target, err := agent.New("billing-agent", modeltest.NewClient(textResponse("handled")))
	require.NoError(t, err)

	a, err := agent.New("triage", client, agent.WithHandoffs(agent.HandoffDescriptor{
		Name: "billing", Description: "billing questions", Target: target,
	}))
	require.NoError(t, err)

	res, err := a.Interact(context.Background(), agent.TextInput("I have a billing question"))
	require.NoError(t, err)

	handoff, ok := res.Handoff()
	require.True(t, ok)
	assert.Equal(t, "billing", handoff.Target)
	assert.Equal(t, "out of scope", handoff.Reason)
}

func TestInteractInputGuardrailBlocks(t *testing.T) {
	client := modeltest.NewClient(textResponse("should not be reached"))
	blocker := guardrail.InputGuardrailFunc(func(_ context.Context, text string, _ *agentcontext.Context) guardrail.Result {
		if text == "forbidden" {
			return guardrail.NewFailed("blocked forbidden input")
		}
		return guardrail.Passed
	})

	a, err := agent.New("guarded", client, agent.WithInputGuardrails(blocker))
	require.NoError(t, err)

	res, err := a.Interact(context.Background(), agent.TextInput("forbidden"))
	require.NoError(t, err)

	errRes, ok := res.Error()
	require.True(t, ok)
	var ge *agent.GuardrailError
	require.True(t, errors.As(errRes.Cause, &ge))
	assert.Equal(t, "input", ge.Stage)
	assert.Equal(t, 0, client.CallCount())
}

func TestInteractOutputGuardrailBlocks(t *testing.T) {
	client := modeltest.NewClient(textResponse("leaked secret"))
	blocker := guardrail.OutputGuardrailFunc(func(_ context.Context, text string, _ *agentcontext.Context) guardrail.Result {
		if text == "leaked secret" {
			return guardrail.NewFailed("response contained a blocked phrase")
		}
		return guardrail.Passed
	})

	a, err := agent.New("guarded-out", client, agent.WithOutputGuardrails(blocker))
	require.NoError(t, err)

	res, err := a.Interact(context.Background(), agent.TextInput("tell me a secret"))
	require.NoError(t, err)

	errRes, ok := res.Error()
	require.True(t, ok)
	var ge *agent.GuardrailError
	require.True(t, errors.As(errRes.Cause, &ge))
	assert.Equal(t, "output", ge.Stage)
}

func TestInteractModelErrorIsFatal(t *testing.T) {
	client := modeltest.NewClient(&model.Response{})
	client.Errs = []error{errors.New("boom")}

	a, err := agent.New("erroring", client)
	require.NoError(t, err)

	res, err := a.Interact(context.Background(), agent.TextInput("hi"))
	require.NoError(t, err)

	errRes, ok := res.Error()
	require.True(t, ok)
	var me *agent.ModelError
	require.True(t, errors.As(errRes.Cause, &me))
}

func TestInteractRejectsNilContext(t *testing.T) {
	client := modeltest.NewClient(textResponse("ok"))
	a, err := agent.New("nilctx", client)
	require.NoError(t, err)

	_, err = a.Interact(context.Background(), nil)
	assert.ErrorIs(t, err, agent.ErrConfig)
}

func TestNewRejectsDuplicateHandoffNames(t *testing.T) {
	client := modeltest.NewClient()
	target, err := agent.New("w", client)
	require.NoError(t, err)

	_, err = agent.New("dup", client, agent.WithHandoffs(
		agent.HandoffDescriptor{Name: "x", Target: target},
		agent.HandoffDescriptor{Name: "x", Target: target},
	))
	assert.ErrorIs(t, err, agent.ErrConfig)
}
