// Package openai provides a model.Client implementation backed by the
// OpenAI Responses API. It translates runtime/model requests into
// responses.ResponseNewParams calls using github.com/openai/openai-go and
// maps replies (text, function calls, usage) back into the generic
// model.Response shape.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

// ResponsesClient captures the subset of the OpenAI SDK client used by the
// adapter, satisfied by client.Responses so tests can substitute a fake.
type ResponsesClient interface {
	New(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error)
	NewStreaming(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) *ssestream.Stream[responses.ResponseStreamEventUnion]
}

// Options configures optional OpenAI adapter behavior.
type Options struct {
	// MaxOutputTokens is the completion cap used when a Request does not
	// carry GenerationParams.MaxOutputTokens.
	MaxOutputTokens int
	// Temperature is used when a Request's GenerationParams.Temperature is
	// zero.
	Temperature float64
}

// Client implements model.Client on top of the OpenAI Responses API.
type Client struct {
	resp   ResponsesClient
	maxTok int
	temp   float64
}

// New builds an OpenAI-backed model.Client from resp and opts.
func New(resp ResponsesClient, opts Options) (*Client, error) {
	if resp == nil {
		return nil, errors.New("openai: responses client is required")
	}
	return &Client{resp: resp, maxTok: opts.MaxOutputTokens, temp: opts.Temperature}, nil
}

// NewFromAPIKey constructs a client using the default OpenAI HTTP
// transport, authenticated with apiKey.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	oc := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&oc.Responses, opts)
}

// Complete issues a non-streaming Responses.New call and translates the
// reply into a model.Response.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.resp.New(ctx, *params)
	if err != nil {
		return nil, wrapErr("complete", err)
	}
	return translateResponse(resp), nil
}

// Stream invokes Responses.NewStreaming and adapts incremental events into
// model.Events.
func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	stream := c.resp.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		return nil, wrapErr("stream", err)
	}
	return newStreamer(ctx, stream), nil
}

func (c *Client) prepareRequest(req *model.Request) (*responses.ResponseNewParams, error) {
	if req.Model == "" {
		return nil, errors.New("openai: model identifier is required")
	}
	input, err := encodeInput(req.Input)
	if err != nil {
		return nil, err
	}
	if len(input) == 0 {
		return nil, errors.New("openai: at least one input item is required")
	}

	params := &responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: input},
	}
	if req.Instructions != "" {
		params.Instructions = sdk.String(req.Instructions)
	}
	maxTokens := req.Params.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTok
	}
	if maxTokens > 0 {
		params.MaxOutputTokens = sdk.Int(int64(maxTokens))
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

func encodeInput(items []model.InputItem) (responses.ResponseInputParam, error) {
	var out responses.ResponseInputParam
	for _, item := range items {
		switch v := item.(type) {
		case model.UserMessage:
			if v.Text != "" {
				out = append(out, responses.ResponseInputItemParamOfMessage(v.Text, responses.EasyInputMessageRoleUser))
			}
		case model.DeveloperMessage:
			if v.Text != "" {
				out = append(out, responses.ResponseInputItemParamOfMessage(v.Text, responses.EasyInputMessageRoleDeveloper))
			}
		case model.AssistantMessage:
			if v.Text != "" {
				out = append(out, responses.ResponseInputItemParamOfMessage(v.Text, responses.EasyInputMessageRoleAssistant))
			}
		case model.ToolCall:
			out = append(out, responses.ResponseInputItemParamOfFunctionCall(string(v.ArgsRaw), v.ID, v.Name))
		case model.ToolOutput:
			content := string(v.OutputRaw)
			if v.IsError() {
				content = string(v.ErrorRaw)
			}
			out = append(out, responses.ResponseInputItemParamOfFunctionCallOutput(v.CallID, content))
		default:
			return nil, fmt.Errorf("openai: unsupported input item %T", item)
		}
	}
	return out, nil
}

func encodeTools(defs []model.ToolDefinition) ([]responses.ToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]responses.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		var schema map[string]any
		if len(def.InputSchema) > 0 {
			if err := json.Unmarshal(def.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("openai: tool %q schema: %w", def.Name, err)
			}
		}
		out = append(out, responses.ToolParamOfFunction(def.Name, schema, true))
	}
	return out, nil
}

func translateResponse(resp *responses.Response) *model.Response {
	out := &model.Response{
		ID:     resp.ID,
		Status: model.ResponseStatusCompleted,
		Usage: model.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}
	for _, item := range resp.Output {
		switch v := item.AsAny().(type) {
		case responses.ResponseOutputMessage:
			for _, c := range v.Content {
				if text, ok := c.AsAny().(responses.ResponseOutputText); ok && text.Text != "" {
					out.Output = append(out.Output, model.MessageOutput{Role: model.RoleAssistant, Text: text.Text})
				}
			}
		case responses.ResponseFunctionToolCall:
			out.Output = append(out.Output, model.FunctionCallOutput{
				CallID: v.CallID, Name: v.Name, Arguments: json.RawMessage(v.Arguments),
			})
		}
	}
	return out
}

func wrapErr(op string, err error) error {
	return &model.Error{Provider: "openai", Operation: op, Retryable: isRateLimited(err), Cause: err}
}

func isRateLimited(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
