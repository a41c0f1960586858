// Package anthropic provides a model.Client implementation backed by the
// Anthropic Claude Messages API. It translates runtime/model requests into
// anthropic.MessageNewParams calls using
// github.com/anthropics/anthropic-sdk-go and maps responses (text, tool
// calls, usage) back into the generic model.Response shape.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

// MessagesClient captures the subset of the Anthropic SDK client used by the
// adapter, satisfied by *sdk.MessageService so tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Options configures optional Anthropic adapter behavior.
type Options struct {
	// MaxTokens is the completion cap used when a Request does not carry
	// GenerationParams.MaxOutputTokens.
	MaxTokens int
	// Temperature is used when a Request's GenerationParams.Temperature is
	// zero.
	Temperature float64
}

// Client implements model.Client on top of Anthropic Claude Messages.
type Client struct {
	msg    MessagesClient
	maxTok int
	temp   float64
}

// New builds an Anthropic-backed model.Client from msg and opts.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	return &Client{msg: msg, maxTok: opts.MaxTokens, temp: opts.Temperature}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP
// transport, authenticated with apiKey.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, opts)
}

// Complete issues a non-streaming Messages.New call and translates the
// reply into a model.Response.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return nil, wrapErr("complete", err)
	}
	return translateMessage(msg), nil
}

// Stream invokes Messages.NewStreaming and adapts incremental events into
// model.Events.
func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	stream := c.msg.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		return nil, wrapErr("stream", err)
	}
	return newStreamer(ctx, stream), nil
}

func (c *Client) prepareRequest(req *model.Request) (*sdk.MessageNewParams, error) {
	if req.Model == "" {
		return nil, errors.New("anthropic: model identifier is required")
	}
	msgs, system, err := encodeMessages(req.Input)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, errors.New("anthropic: at least one user/assistant message is required")
	}
	maxTokens := req.Params.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTok
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := &sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.Instructions != "" {
		system = append([]sdk.TextBlockParam{{Text: req.Instructions}}, system...)
	}
	if len(system) > 0 {
		params.System = system
	}
	if t := req.Params.Temperature; t > 0 {
		params.Temperature = sdk.Float(float64(t))
	} else if c.temp > 0 {
		params.Temperature = sdk.Float(c.temp)
	}
	if tools, err := encodeTools(req.Tools); err != nil {
		return nil, err
	} else if len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}

func encodeMessages(items []model.InputItem) ([]sdk.MessageParam, []sdk.TextBlockParam, error) {
	var (
		conversation []sdk.MessageParam
		system       []sdk.TextBlockParam
	)
	for _, item := range items {
		switch v := item.(type) {
		case model.UserMessage:
			if v.Text != "" {
				conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(v.Text)))
			}
		case model.DeveloperMessage:
			if v.Text != "" {
				system = append(system, sdk.TextBlockParam{Text: v.Text})
			}
		case model.AssistantMessage:
			if v.Text != "" {
				conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(v.Text)))
			}
		case model.ToolCall:
			conversation = append(conversation, sdk.NewAssistantMessage(
				sdk.NewToolUseBlock(v.ID, decodeArgs(v.ArgsRaw), v.Name),
			))
		case model.ToolOutput:
			content := string(v.OutputRaw)
			if v.IsError() {
				content = string(v.ErrorRaw)
			}
			conversation = append(conversation, sdk.NewUserMessage(
				sdk.NewToolResultBlock(v.CallID, content, v.IsError()),
			))
		}
	}
	return conversation, system, nil
}

func decodeArgs(raw json.RawMessage) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	return v
}

func encodeTools(defs []model.ToolDefinition) ([]sdk.ToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema, err := decodeSchema(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("anthropic: tool %q schema: %w", def.Name, err)
		}
		u := sdk.ToolUnionParamOfTool(schema, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func decodeSchema(raw json.RawMessage) (sdk.ToolInputSchemaParam, error) {
	if len(raw) == 0 {
		return sdk.ToolInputSchemaParam{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}, nil
}

func translateMessage(msg *sdk.Message) *model.Response {
	resp := &model.Response{
		ID:     msg.ID,
		Status: model.ResponseStatusCompleted,
		Usage: model.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				resp.Output = append(resp.Output, model.MessageOutput{Role: model.RoleAssistant, Text: block.Text})
			}
		case "tool_use":
			args, _ := json.Marshal(block.Input)
			resp.Output = append(resp.Output, model.FunctionCallOutput{
				CallID: block.ID, Name: block.Name, Arguments: args,
			})
		}
	}
	return resp
}

func wrapErr(op string, err error) error {
	return &model.Error{Provider: "anthropic", Operation: op, Retryable: isRateLimited(err), Cause: err}
}

func isRateLimited(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
