package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model/modeltest"
)

func TestStreamSettersChainIdentity(t *testing.T) {
	client := modeltest.NewClient(textResponse("hi"))
	a, err := agent.New("chainer", client)
	require.NoError(t, err)

	s := a.InteractStream(context.Background(), agent.TextInput("hi"))
	chained := s.
		OnTurnStart(func(int) {}).
		OnTextDelta(func(string) {}).
		OnTurnComplete(func(*model.Response) {}).
		OnToolExecuted(func(agent.ToolExecution) {}).
		OnGuardrailFailed(func(string) {}).
		OnHandoff(func(string) {}).
		OnComplete(func(agent.Result) {}).
		OnError(func(error) {})

	assert.Same(t, s, chained)
}

func TestStreamDeliversTextDeltasThenComplete(t *testing.T) {
	client := modeltest.NewClient()
	client.StreamEvents = []model.Event{
		{Type: model.ChunkTypeTextDelta, TextDelta: "hel"},
		{Type: model.ChunkTypeTextDelta, TextDelta: "lo"},
		{Type: model.ChunkTypeStop, Response: textResponse("hello")},
	}

	a, err := agent.New("streamer", client)
	require.NoError(t, err)

	var deltas []string
	var completed agent.Result
	result := a.InteractStream(context.Background(), agent.TextInput("hi")).
		OnTextDelta(func(chunk string) { deltas = append(deltas, chunk) }).
		OnComplete(func(r agent.Result) { completed = r }).
		Start(context.Background())

	assert.Equal(t, []string{"hel", "lo"}, deltas)
	succ, ok := result.Success()
	require.True(t, ok)
	assert.Equal(t, "hello", succ.Output)

	completedSucc, ok := completed.Success()
	require.True(t, ok)
	assert.Equal(t, succ.Output, completedSucc.Output)
}

func TestStreamFallsBackToCompleteWhenUnsupported(t *testing.T) {
	client := modeltest.NewClient(textResponse("fallback"))

	a, err := agent.New("fallback-agent", client)
	require.NoError(t, err)

	result := a.InteractStream(context.Background(), agent.TextInput("hi")).
		Start(context.Background())

	succ, ok := result.Success()
	require.True(t, ok)
	assert.Equal(t, "fallback", succ.Output)
}

func TestStreamCallbackPanicIsRecovered(t *testing.T) {
	client := modeltest.NewClient(textResponse("ok"))
	a, err := agent.New("panicker", client)
	require.NoError(t, err)

	var completeCalled bool
	result := a.InteractStream(context.Background(), agent.TextInput("hi")).
		OnTurnStart(func(int) { panic("boom") }).
		OnComplete(func(agent.Result) { completeCalled = true }).
		Start(context.Background())

	assert.True(t, completeCalled)
	_, ok := result.Success()
	assert.True(t, ok)
}

func TestNewFailedStreamDeliversErrorThenComplete(t *testing.T) {
	failing := agent.Result{Outcome: agent.ErrorResult{Cause: agent.ErrRouteUnavailable}}

	var gotErr error
	var gotComplete agent.Result
	result := agent.NewFailedStream(failing).
		OnError(func(err error) { gotErr = err }).
		OnComplete(func(r agent.Result) { gotComplete = r }).
		Start(context.Background())

	assert.ErrorIs(t, gotErr, agent.ErrRouteUnavailable)
	errRes, ok := gotComplete.Error()
	require.True(t, ok)
	assert.ErrorIs(t, errRes.Cause, agent.ErrRouteUnavailable)
	assert.Equal(t, failing, result)
}
