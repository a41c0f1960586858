// Package guardrail defines the input/output predicate interfaces that the
// agentic loop runs before the first model call and after the final
// assistant text, plus a named registry that lets serialized blueprints
// reference a guardrail by id instead of embedding a callback.
package guardrail

import (
	"context"
	"errors"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
)

// ErrBlankReason is the value NewFailed panics with when called with an
// empty or whitespace-only reason: a guardrail failure must always explain itself.
var ErrBlankReason = errors.New("guardrail: failure reason must not be blank")

// Result is the sealed outcome of a guardrail check: either the singleton
// Passed value, or a Failed carrying a non-blank reason.
type Result interface {
	isResult()
	// Ok reports whether the guardrail passed.
	Ok() bool
}

type passedResult struct{}

func (passedResult) isResult() {}
func (passedResult) Ok() bool  { return true }

// Passed is the singleton Result returned by a guardrail that allows the
// run to continue.
var Passed Result = passedResult{}

// FailedResult is the Result returned by a guardrail that vetoes the run.
// Construct with NewFailed, not a struct literal, so the blank-reason
// invariant is enforced.
type FailedResult struct {
	Reason string
}

func (FailedResult) isResult()  {}
func (FailedResult) Ok() bool   { return false }
func (f FailedResult) String() string { return f.Reason }

// NewFailed constructs a FailedResult. It panics if reason is blank: a
// guardrail must not veto a run without explaining why, since the reason
// becomes the user-visible AgentResult.Error message.
func NewFailed(reason string) Result {
	if isBlank(reason) {
		panic(ErrBlankReason)
	}
	return FailedResult{Reason: reason}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' {
			return false
		}
	}
	return true
}

// InputGuardrail vets the most recent user text before any model call is
// issued for the turn.
type InputGuardrail interface {
	CheckInput(ctx context.Context, text string, agentCtx *agentcontext.Context) Result
}

// OutputGuardrail vets the final assistant text before the run is reported
// as a Success.
type OutputGuardrail interface {
	CheckOutput(ctx context.Context, text string, agentCtx *agentcontext.Context) Result
}

// InputGuardrailFunc adapts a plain function to InputGuardrail.
type InputGuardrailFunc func(ctx context.Context, text string, agentCtx *agentcontext.Context) Result

// CheckInput implements InputGuardrail.
func (f InputGuardrailFunc) CheckInput(ctx context.Context, text string, agentCtx *agentcontext.Context) Result {
	return f(ctx, text, agentCtx)
}

// OutputGuardrailFunc adapts a plain function to OutputGuardrail.
type OutputGuardrailFunc func(ctx context.Context, text string, agentCtx *agentcontext.Context) Result

// CheckOutput implements OutputGuardrail.
func (f OutputGuardrailFunc) CheckOutput(ctx context.Context, text string, agentCtx *agentcontext.Context) Result {
	return f(ctx, text, agentCtx)
}
