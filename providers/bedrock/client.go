// Package bedrock provides a model.Client implementation backed by the AWS
// Bedrock Converse API. It encodes runtime/model requests into
// bedrockruntime.ConverseInput/ConverseStreamInput calls, sanitizing tool
// names to Bedrock's stricter character set, and translates Converse
// responses (text + tool_use blocks) back into the generic model.Response
// shape.
package bedrock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client used by
// the adapter. It matches *bedrockruntime.Client so callers can pass either
// the real client or a fake in tests.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// Options configures the Bedrock client adapter.
type Options struct {
	// MaxTokens sets the default completion cap when a request does not
	// specify GenerationParams.MaxOutputTokens. Zero omits MaxTokens so
	// Bedrock applies its own default.
	MaxTokens int
	// Temperature is used when a request does not specify
	// GenerationParams.Temperature.
	Temperature float32
}

// Client implements model.Client on top of AWS Bedrock Converse.
type Client struct {
	runtime RuntimeClient
	maxTok  int
	temp    float32
}

// New builds a Bedrock-backed model.Client from runtime and opts.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	return &Client{runtime: runtime, maxTok: opts.MaxTokens, temp: opts.Temperature}, nil
}

type requestParts struct {
	modelID    string
	messages   []brtypes.Message
	system     []brtypes.SystemContentBlock
	toolConfig *brtypes.ToolConfiguration
	sanToCanon map[string]string
}

// Complete issues a Converse request and translates the response into a
// model.Response.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	parts, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	out, err := c.runtime.Converse(ctx, c.buildConverseInput(parts, req))
	if err != nil {
		return nil, wrapErr("complete", err)
	}
	return translateOutput(out, parts.sanToCanon)
}

// Stream invokes ConverseStream and adapts incremental events into
// model.Events.
func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	parts, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	out, err := c.runtime.ConverseStream(ctx, c.buildConverseStreamInput(parts, req))
	if err != nil {
		return nil, wrapErr("stream", err)
	}
	stream := out.GetStream()
	if stream == nil {
		return nil, errors.New("bedrock: stream output missing event stream")
	}
	return newStreamer(ctx, stream, parts.sanToCanon), nil
}

func (c *Client) prepareRequest(req *model.Request) (*requestParts, error) {
	if req.Model == "" {
		return nil, errors.New("bedrock: model identifier is required")
	}
	toolConfig, canonToSan, sanToCanon, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}
	messages, system, err := encodeMessages(req.Input, req.Instructions, canonToSan)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, errors.New("bedrock: at least one user/assistant message is required")
	}
	return &requestParts{
		modelID:    req.Model,
		messages:   messages,
		system:     system,
		toolConfig: toolConfig,
		sanToCanon: sanToCanon,
	}, nil
}

func (c *Client) buildConverseInput(parts *requestParts, req *model.Request) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(parts.modelID),
		Messages: parts.messages,
	}
	if len(parts.system) > 0 {
		input.System = parts.system
	}
	if parts.toolConfig != nil {
		input.ToolConfig = parts.toolConfig
	}
	if cfg := c.inferenceConfig(req); cfg != nil {
		input.InferenceConfig = cfg
	}
	return input
}

func (c *Client) buildConverseStreamInput(parts *requestParts, req *model.Request) *bedrockruntime.ConverseStreamInput {
	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(parts.modelID),
		Messages: parts.messages,
	}
	if len(parts.system) > 0 {
		input.System = parts.system
	}
	if parts.toolConfig != nil {
		input.ToolConfig = parts.toolConfig
	}
	if cfg := c.inferenceConfig(req); cfg != nil {
		input.InferenceConfig = cfg
	}
	return input
}

func (c *Client) inferenceConfig(req *model.Request) *brtypes.InferenceConfiguration {
	var cfg brtypes.InferenceConfiguration
	tokens := req.Params.MaxOutputTokens
	if tokens <= 0 {
		tokens = c.maxTok
	}
	if tokens > 0 {
		cfg.MaxTokens = aws.Int32(int32(tokens))
	}
	temp := req.Params.Temperature
	if temp <= 0 {
		temp = c.temp
	}
	if temp > 0 {
		cfg.Temperature = aws.Float32(temp)
	}
	if cfg.MaxTokens == nil && cfg.Temperature == nil {
		return nil
	}
	return &cfg
}

func encodeMessages(items []model.InputItem, instructions string, nameMap map[string]string) ([]brtypes.Message, []brtypes.SystemContentBlock, error) {
	var system []brtypes.SystemContentBlock
	if instructions != "" {
		system = append(system, &brtypes.SystemContentBlockMemberText{Value: instructions})
	}

	var conversation []brtypes.Message
	for _, item := range items {
		switch v := item.(type) {
		case model.UserMessage:
			if v.Text == "" {
				continue
			}
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: v.Text}},
			})
		case model.DeveloperMessage:
			if v.Text != "" {
				system = append(system, &brtypes.SystemContentBlockMemberText{Value: v.Text})
			}
		case model.AssistantMessage:
			if v.Text == "" {
				continue
			}
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: v.Text}},
			})
		case model.ToolCall:
			sanitized, ok := nameMap[v.Name]
			if !ok {
				sanitized = sanitizeToolName(v.Name)
			}
			tb := brtypes.ToolUseBlock{
				Name:      aws.String(sanitized),
				ToolUseId: aws.String(providerSafeID(v.ID)),
				Input:     toDocument(v.ArgsRaw),
			}
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberToolUse{Value: tb}},
			})
		case model.ToolOutput:
			content := v.OutputRaw
			isErr := v.IsError()
			if isErr {
				content = v.ErrorRaw
			}
			tr := brtypes.ToolResultBlock{
				ToolUseId: aws.String(providerSafeID(v.CallID)),
				Content: []brtypes.ToolResultContentBlock{
					&brtypes.ToolResultContentBlockMemberJson{Value: toDocument(content)},
				},
			}
			if isErr {
				tr.Status = brtypes.ToolResultStatusError
			}
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberToolResult{Value: tr}},
			})
		}
	}
	return conversation, system, nil
}

func encodeTools(defs []model.ToolDefinition) (*brtypes.ToolConfiguration, map[string]string, map[string]string, error) {
	if len(defs) == 0 {
		return nil, nil, nil, nil
	}
	toolList := make([]brtypes.Tool, 0, len(defs))
	canonToSan := make(map[string]string, len(defs))
	sanToCanon := make(map[string]string, len(defs))
	for _, def := range defs {
		sanitized := sanitizeToolName(def.Name)
		if prev, ok := sanToCanon[sanitized]; ok && prev != def.Name {
			return nil, nil, nil, fmt.Errorf("bedrock: tool name %q sanitizes to %q which collides with %q", def.Name, sanitized, prev)
		}
		sanToCanon[sanitized] = def.Name
		canonToSan[def.Name] = sanitized
		spec := brtypes.ToolSpecification{
			Name:        aws.String(sanitized),
			Description: aws.String(def.Description),
			InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: toDocument(def.InputSchema)},
		}
		toolList = append(toolList, &brtypes.ToolMemberToolSpec{Value: spec})
	}
	return &brtypes.ToolConfiguration{Tools: toolList}, canonToSan, sanToCanon, nil
}

// sanitizeToolName maps a tool identifier to characters allowed by Bedrock's
// [a-zA-Z0-9_-]+ constraint, truncating and appending a stable hash suffix
// when the result would exceed the 64-character limit.
func sanitizeToolName(in string) string {
	const maxLen = 64
	const hashLen = 8

	out := make([]rune, 0, len(in))
	changed := false
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
			changed = true
		}
	}
	sanitized := string(out)
	if !changed && len(sanitized) <= maxLen {
		return sanitized
	}
	if len(sanitized) <= maxLen {
		return sanitized
	}
	sum := sha256.Sum256([]byte(in))
	suffix := hex.EncodeToString(sum[:])[:hashLen]
	return sanitized[:maxLen-hashLen-1] + "_" + suffix
}

// providerSafeID returns id unchanged when it already conforms to Bedrock's
// toolUseId constraints, otherwise a short deterministic substitute so
// internal correlation identifiers never reach the provider verbatim.
func providerSafeID(id string) string {
	if id == "" {
		return "t0"
	}
	if len(id) <= 64 {
		safe := true
		for _, r := range id {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
				safe = false
				break
			}
		}
		if safe {
			return id
		}
	}
	sum := sha256.Sum256([]byte(id))
	return "t" + hex.EncodeToString(sum[:])[:16]
}

func toDocument(raw json.RawMessage) document.Interface {
	if len(raw) == 0 {
		return document.NewLazyDocument(map[string]any{"type": "object"})
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return document.NewLazyDocument(map[string]any{"type": "object"})
	}
	return document.NewLazyDocument(decoded)
}

func translateOutput(output *bedrockruntime.ConverseOutput, nameMap map[string]string) (*model.Response, error) {
	if output == nil {
		return nil, errors.New("bedrock: response is nil")
	}
	resp := &model.Response{Status: model.ResponseStatusCompleted}
	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			switch v := block.(type) {
			case *brtypes.ContentBlockMemberText:
				if v.Value != "" {
					resp.Output = append(resp.Output, model.MessageOutput{Role: model.RoleAssistant, Text: v.Value})
				}
			case *brtypes.ContentBlockMemberToolUse:
				name := ""
				if v.Value.Name != nil {
					if canonical, ok := nameMap[*v.Value.Name]; ok {
						name = canonical
					} else {
						name = *v.Value.Name
					}
				}
				var id string
				if v.Value.ToolUseId != nil {
					id = *v.Value.ToolUseId
				}
				args, err := documentToJSON(v.Value.Input)
				if err != nil {
					return nil, fmt.Errorf("bedrock: decode tool_use input: %w", err)
				}
				resp.Output = append(resp.Output, model.FunctionCallOutput{CallID: id, Name: name, Arguments: args})
			}
		}
	}
	if usage := output.Usage; usage != nil {
		resp.Usage = model.Usage{
			InputTokens:  int(ptrValue(usage.InputTokens)),
			OutputTokens: int(ptrValue(usage.OutputTokens)),
			TotalTokens:  int(ptrValue(usage.TotalTokens)),
		}
	}
	return resp, nil
}

func documentToJSON(doc document.Interface) (json.RawMessage, error) {
	if doc == nil {
		return json.RawMessage("{}"), nil
	}
	var v any
	if err := doc.UnmarshalSmithyDocument(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func ptrValue(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}

func wrapErr(op string, err error) error {
	return &model.Error{Provider: "bedrock", Operation: op, Retryable: isRateLimited(err), Cause: err}
}

// isRateLimited reports whether err represents a provider rate limiting
// condition: an HTTP 429, or the ThrottlingException/TooManyRequestsException
// error codes Bedrock surfaces for Converse.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 429 {
		return true
	}
	return false
}
