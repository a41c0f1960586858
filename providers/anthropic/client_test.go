package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
	stream     *ssestream.Stream[sdk.MessageStreamEventUnion]
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func (s *stubMessagesClient) NewStreaming(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion] {
	s.lastParams = body
	if s.stream == nil {
		s.stream = ssestream.NewStream[sdk.MessageStreamEventUnion](&noopDecoder{}, nil)
	}
	return s.stream
}

type noopDecoder struct{}

func (n *noopDecoder) Event() ssestream.Event { return ssestream.Event{} }
func (n *noopDecoder) Next() bool             { return false }
func (n *noopDecoder) Close() error           { return nil }
func (n *noopDecoder) Err() error             { return nil }

func TestCompleteTranslatesTextAndUsage(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		ID:         "msg_1",
		Content:    []sdk.ContentBlockUnion{{Type: "text", Text: "world"}},
		StopReason: sdk.StopReasonEndTurn,
		Usage:      sdk.Usage{InputTokens: 10, OutputTokens: 5},
	}}
	cl, err := New(stub, Options{MaxTokens: 128})
	require.NoError(t, err)

	req := &model.Request{
		Model: "claude-sonnet-4-5",
		Input: []model.InputItem{model.UserMessage{Text: "hello"}},
	}
	resp, err := cl.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Output, 1)
	msg, ok := resp.Output[0].(model.MessageOutput)
	require.True(t, ok)
	assert.Equal(t, "world", msg.Text)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, int64(128), stub.lastParams.MaxTokens)
}

func TestCompleteTranslatesToolUse(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{
			{Type: "tool_use", ID: "call_1", Name: "lookup", Input: []byte(`{"q":"x"}`)},
		},
	}}
	cl, err := New(stub, Options{MaxTokens: 128})
	require.NoError(t, err)

	req := &model.Request{
		Model: "claude-sonnet-4-5",
		Input: []model.InputItem{model.UserMessage{Text: "hello"}},
		Tools: []model.ToolDefinition{{Name: "lookup", Description: "looks things up", InputSchema: []byte(`{"type":"object"}`)}},
	}
	resp, err := cl.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Output, 1)
	fc, ok := resp.Output[0].(model.FunctionCallOutput)
	require.True(t, ok)
	assert.Equal(t, "lookup", fc.Name)
	assert.Equal(t, "call_1", fc.CallID)
	require.Len(t, stub.lastParams.Tools, 1)
}

func TestCompleteRejectsEmptyModel(t *testing.T) {
	cl, err := New(&stubMessagesClient{}, Options{})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{
		Input: []model.InputItem{model.UserMessage{Text: "hi"}},
	})
	assert.Error(t, err)
}

func TestCompleteWrapsProviderError(t *testing.T) {
	stub := &stubMessagesClient{err: assertErr}
	cl, err := New(stub, Options{MaxTokens: 128})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{
		Model: "claude-sonnet-4-5",
		Input: []model.InputItem{model.UserMessage{Text: "hi"}},
	})
	require.Error(t, err)
	var modelErr *model.Error
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "anthropic", modelErr.Provider)
}

var assertErr = context.DeadlineExceeded
