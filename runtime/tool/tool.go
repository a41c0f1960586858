// Package tool defines the named, parameter-typed callable contract exposed
// to the model, and the ToolStore that dispatches model-requested tool
// calls to their implementations.
//
// Per the design notes carried over from the source material, argument
// binding uses a decoder closure supplied at registration time rather than
// runtime reflection: each Tool ships its own typed decode step, and
// CallOutput.Err uniformly captures decode, validation, and
// invocation failures so the dispatch path never needs a type switch on
// failure kind.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/toolerrors"
)

// CallOutput is the result of invoking a Tool: exactly one of Result or
// Err is populated.
type CallOutput struct {
	// Result is the success payload, marshaled to JSON by the ToolStore
	// when building the ToolOutput history item.
	Result any
	// Err is populated instead of Result when the invocation failed. Tool
	// authors should return a *toolerrors.ToolError (or any error; the
	// store normalizes via toolerrors.FromError) rather than panicking.
	Err error
}

// Invoker is the typed decoder+invocation closure supplied at tool
// registration. argsJSON is the canonical JSON arguments the model
// provided; implementations decode it into their own parameter type before
// doing any work.
type Invoker func(ctx context.Context, argsJSON json.RawMessage) CallOutput

// Tool is a named, schema-described callable exposed to the model.
type Tool struct {
	// Name must be non-empty and unique within a Store.
	Name string
	// Description is presented to the model to decide when to call the
	// tool.
	Description string
	// ParameterSchema is the JSON Schema describing this tool's arguments.
	ParameterSchema json.RawMessage
	// Invoke decodes and executes the tool call.
	Invoke Invoker

	compiled *jsonschema.Schema
}

// New constructs a Tool and compiles its parameter schema. An error is
// returned if name is empty or the schema fails to compile.
func New(name, description string, paramSchema json.RawMessage, invoke Invoker) (*Tool, error) {
	if name == "" {
		return nil, fmt.Errorf("tool: name must not be empty")
	}
	if invoke == nil {
		return nil, fmt.Errorf("tool %q: invoke must not be nil", name)
	}
	t := &Tool{Name: name, Description: description, ParameterSchema: paramSchema, Invoke: invoke}
	if len(paramSchema) > 0 {
		compiled, err := compileSchema(name, paramSchema)
		if err != nil {
			return nil, err
		}
		t.compiled = compiled
	}
	return t, nil
}

// Definition returns the model.ToolDefinition the agent loop sends to the
// provider for this tool.
func (t *Tool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.ParameterSchema,
	}
}

// Validate checks argsJSON against the tool's compiled parameter schema. A
// tool registered without a schema accepts any arguments.
func (t *Tool) Validate(argsJSON json.RawMessage) error {
	if t.compiled == nil {
		return nil
	}
	var v any
	if len(argsJSON) == 0 {
		v = map[string]any{}
	} else if err := json.Unmarshal(argsJSON, &v); err != nil {
		return fmt.Errorf("tool %q: arguments are not valid JSON: %w", t.Name, err)
	}
	if err := t.compiled.Validate(v); err != nil {
		return fmt.Errorf("tool %q: arguments do not match schema: %w", t.Name, err)
	}
	return nil
}

func compileSchema(name string, schema json.RawMessage) (*jsonschema.Schema, error) {
	const resource = "agentle4j://tool/schema.json"
	var doc any
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil, fmt.Errorf("tool %q: invalid parameter schema JSON: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("tool %q: add schema resource: %w", name, err)
	}
	compiled, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("tool %q: compile parameter schema: %w", name, err)
	}
	return compiled, nil
}

// Store maps tool names to their implementations and performs argument
// decoding/dispatch on the model's behalf.
type Store struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{tools: make(map[string]*Tool)}
}

// Register adds t to the store. It returns an error if a tool with the same
// name is already registered, enforcing the per-store name-uniqueness
// invariant.
func (s *Store) Register(t *Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[t.Name]; exists {
		return fmt.Errorf("tool: duplicate tool name %q in store", t.Name)
	}
	s.tools[t.Name] = t
	return nil
}

// Get returns the tool registered under name, if any.
func (s *Store) Get(name string) (*Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

// Definitions returns the model.ToolDefinition for every registered tool, in
// unspecified order; callers that need deterministic ordering should sort
// the result.
func (s *Store) Definitions() []model.ToolDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]model.ToolDefinition, 0, len(s.tools))
	for _, t := range s.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Dispatch looks up name, validates and decodes argsJSON, invokes the tool,
// and returns the resulting model.ToolOutput history item. Tool-not-found,
// schema-validation, and invocation failures are never returned as a Go
// error from Dispatch; they are encoded as an error payload on the
// returned ToolOutput so the agent loop can feed them back to the model
// per the non-fatal tool error policy.
func (s *Store) Dispatch(ctx context.Context, callID, name string, argsJSON json.RawMessage) model.ToolOutput {
	t, ok := s.Get(name)
	if !ok {
		return errorOutput(callID, toolerrors.NewWithKind(toolerrors.KindNotFound, fmt.Sprintf("tool %q is not registered", name)))
	}
	if err := t.Validate(argsJSON); err != nil {
		return errorOutput(callID, toolerrors.NewWithKind(toolerrors.KindDecode, err.Error()))
	}
	out := t.Invoke(ctx, argsJSON)
	if out.Err != nil {
		te := toolerrors.FromError(out.Err)
		if te.Kind == "" {
			te.Kind = toolerrors.KindInvocation
		}
		return errorOutput(callID, te)
	}
	payload, err := json.Marshal(out.Result)
	if err != nil {
		return errorOutput(callID, toolerrors.NewWithCause("failed to marshal tool result", err))
	}
	return model.ToolOutput{CallID: callID, OutputRaw: payload}
}

func errorOutput(callID string, te *toolerrors.ToolError) model.ToolOutput {
	payload, err := json.Marshal(struct {
		Kind    string `json:"kind,omitempty"`
		Message string `json:"message"`
	}{Kind: te.Kind, Message: te.Error()})
	if err != nil {
		payload = []byte(`{"message":"tool error"}`)
	}
	return model.ToolOutput{CallID: callID, ErrorRaw: payload}
}
