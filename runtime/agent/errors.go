package agent

import "errors"

// ErrTurnBudgetExceeded is the fatal error kind raised when an Agent reaches
// MaxTurns without producing a terminal assistant message.
var ErrTurnBudgetExceeded = errors.New("agent: turn budget exceeded")

// ErrRouteUnavailable is the fatal error kind raised by RouterAgent when
// classification yields no target and no fallback is configured.
var ErrRouteUnavailable = errors.New("agent: no route available")

// ErrCancelled is the fatal error kind raised when the caller's context is
// canceled mid-turn.
var ErrCancelled = errors.New("agent: run cancelled")

// ErrConfig is the fatal error kind raised at build time when a blueprint
// references an unregistered guardrail or a tool the resolver cannot match.
var ErrConfig = errors.New("agent: configuration error")

// GuardrailError wraps the reason a guardrail vetoed a run. It is always
// delivered as the Cause of an ErrorResult outcome, never returned directly
// from Interact.
type GuardrailError struct {
	// Stage is "input" or "output", identifying which guardrail phase
	// failed.
	Stage  string
	Reason string
}

// Error implements the error interface.
func (e *GuardrailError) Error() string {
	return "agent: " + e.Stage + " guardrail failed: " + e.Reason
}

// ModelError wraps a failure returned by the model client. It is fatal to
// the current run.
type ModelError struct {
	Cause error
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	if e.Cause == nil {
		return "agent: model error"
	}
	return "agent: model error: " + e.Cause.Error()
}

// Unwrap supports errors.Is/As against the wrapped Cause.
func (e *ModelError) Unwrap() error { return e.Cause }
