package bedrock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

type mockRuntime struct {
	captured *bedrockruntime.ConverseInput
	output   *bedrockruntime.ConverseOutput
	err      error
}

func (m *mockRuntime) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.captured = params
	return m.output, m.err
}

func (m *mockRuntime) ConverseStream(context.Context, *bedrockruntime.ConverseStreamInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error) {
	return nil, m.err
}

func TestCompleteTranslatesTextAndToolUse(t *testing.T) {
	mock := &mockRuntime{
		output: &bedrockruntime.ConverseOutput{
			Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: "hello"},
					&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
						Name:      aws.String("calc_tool"),
						ToolUseId: aws.String("call_1"),
						Input:     document.NewLazyDocument(&map[string]any{"value": 42}),
					}},
				},
			}},
			Usage: &brtypes.TokenUsage{InputTokens: aws.Int32(100), OutputTokens: aws.Int32(20), TotalTokens: aws.Int32(120)},
		},
	}
	cl, err := New(mock, Options{MaxTokens: 512})
	require.NoError(t, err)

	resp, err := cl.Complete(context.Background(), &model.Request{
		Model:        "anthropic.claude-3-sonnet",
		Instructions: "You are smart.",
		Input:        []model.InputItem{model.UserMessage{Text: "hi"}},
		Tools: []model.ToolDefinition{
			{Name: "calc.tool", Description: "calculator", InputSchema: []byte(`{"type":"object"}`)},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Output, 2)

	msg, ok := resp.Output[0].(model.MessageOutput)
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Text)

	assert.Equal(t, 120, resp.Usage.TotalTokens)
	require.NotNil(t, mock.captured)
	assert.Equal(t, "anthropic.claude-3-sonnet", *mock.captured.ModelId)
	require.Len(t, mock.captured.System, 1)
	require.Len(t, mock.captured.Messages, 1)
	require.NotNil(t, mock.captured.ToolConfig)
	require.Len(t, mock.captured.ToolConfig.Tools, 1)
}

func TestCompleteRejectsEmptyModel(t *testing.T) {
	cl, err := New(&mockRuntime{}, Options{})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{
		Input: []model.InputItem{model.UserMessage{Text: "hi"}},
	})
	assert.Error(t, err)
}

func TestSanitizeToolNameReplacesDisallowedRunes(t *testing.T) {
	assert.Equal(t, "calc_tool", sanitizeToolName("calc.tool"))
	assert.Equal(t, "already_ok-1", sanitizeToolName("already_ok-1"))
}

func TestSanitizeToolNameTruncatesOverlongNames(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	got := sanitizeToolName(long)
	assert.LessOrEqual(t, len(got), 64)
}

func TestWrapErrMarksProviderAndOperation(t *testing.T) {
	mock := &mockRuntime{err: assertDeadlineExceeded}
	cl, err := New(mock, Options{MaxTokens: 512})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{
		Model: "anthropic.claude-3-sonnet",
		Input: []model.InputItem{model.UserMessage{Text: "hi"}},
	})
	require.Error(t, err)
	var modelErr *model.Error
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "bedrock", modelErr.Provider)
	assert.Equal(t, "complete", modelErr.Operation)
}

var assertDeadlineExceeded = context.DeadlineExceeded
