package agent

import (
	"encoding/json"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

// ToolExecution records one tool dispatch performed during a run and is
// preserved in the final history alongside the ToolCall/ToolOutput pair it
// summarizes.
type ToolExecution struct {
	CallID   string
	ToolName string
	ArgsRaw  json.RawMessage
	// ResultRaw is the tool's success payload, nil when Err is set.
	ResultRaw json.RawMessage
	// Err is the tool-level failure, nil on success. Per the error policy,
	// a non-nil Err here is not fatal: it was already fed back to the
	// model as a ToolOutput error payload.
	Err error
}

// Outcome is the sealed result of a run: exactly one of Success, Paused,
// Handoff, or ErrorResult.
type Outcome interface {
	isOutcome()
}

// Success is the terminal outcome when the loop produces assistant text
// with no further tool calls and all guardrails pass.
type Success struct {
	// Output is the final assistant text.
	Output string
	// History is the complete conversation history at the end of the run.
	History []model.InputItem
	// TurnsUsed is the number of turns consumed, always <= the agent's
	// MaxTurns.
	TurnsUsed int
	// FinalResponse is the raw model.Response that produced Output.
	FinalResponse *model.Response
	// ToolExecutions lists every tool dispatch performed during the run,
	// in dispatch order.
	ToolExecutions []ToolExecution
}

func (Success) isOutcome() {}

// Paused is the terminal outcome when the run is intentionally suspended
// pending externally-supplied tool results. The core loop itself never
// produces Paused (it always dispatches tool calls synchronously); Paused
// is reserved for host-driven orchestration that intercepts PendingCalls
// before dispatch.
type Paused struct {
	PendingCalls []model.ToolCall
	Context      *agentcontext.Context
}

func (Paused) isOutcome() {}

// Handoff is the terminal outcome when the model requests a control
// transfer to another Interactable.
type Handoff struct {
	Target  string
	Reason  string
	Context *agentcontext.Context
}

func (Handoff) isOutcome() {}

// ErrorResult is the terminal outcome for every non-recoverable failure
// kind: guardrail failures, turn-budget exhaustion, model errors, routing
// failures, cancellation, and configuration errors.
type ErrorResult struct {
	Cause     error
	Context   *agentcontext.Context
	TurnsUsed int
}

func (ErrorResult) isOutcome() {}

// Result is the value returned by Interact: a single Outcome. The core
// never returns a Go error from the top-level Interact contract for
// run-level failures; they are materialized as ErrorResult instead. A
// non-nil error return from Interact indicates a programmer error (nil
// Context, etc.), not a run-level failure.
type Result struct {
	Outcome Outcome
}

// Success returns the Success outcome and true if r is a successful result.
func (r Result) Success() (Success, bool) {
	s, ok := r.Outcome.(Success)
	return s, ok
}

// Error returns the ErrorResult outcome and true if r is an error result.
func (r Result) Error() (ErrorResult, bool) {
	e, ok := r.Outcome.(ErrorResult)
	return e, ok
}

// Handoff returns the Handoff outcome and true if r is a handoff result.
func (r Result) Handoff() (Handoff, bool) {
	h, ok := r.Outcome.(Handoff)
	return h, ok
}

// Paused returns the Paused outcome and true if r is a paused result.
func (r Result) Paused() (Paused, bool) {
	p, ok := r.Outcome.(Paused)
	return p, ok
}
