package agentcontext_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
)

// TestCopyIsDisjointProperty verifies that for any message, state key/value,
// and turn count used to build a Context, mutating the result of Copy never
// affects the original and vice versa.
func TestCopyIsDisjointProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Copy mutations never affect the original", prop.ForAll(
		func(msg, key, value string, turns int) bool {
			orig := agentcontext.New().AddMessage(msg)
			orig.SetState(key, value)
			for i := 0; i < turns; i++ {
				orig.IncrementTurn()
			}

			clone := orig.Copy()
			clone.AddMessage("mutation")
			clone.SetState(key, "mutated")
			clone.IncrementTurn()

			if len(orig.History()) != 1 {
				return false
			}
			origVal, ok := orig.GetState(key)
			if !ok || origVal != value {
				return false
			}
			if orig.TurnCount() != turns {
				return false
			}
			if len(clone.History()) != 2 {
				return false
			}
			cloneVal, ok := clone.GetState(key)
			if !ok || cloneVal != "mutated" {
				return false
			}
			return clone.TurnCount() == turns+1
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

// TestForkPreservesTraceResetsTurnProperty verifies that for any trace id,
// span id, request id, and turn count, Fork carries trace id and request id
// to the child unchanged, installs the given span id, and resets the
// child's turn counter to zero regardless of how many turns the parent had
// accumulated.
func TestForkPreservesTraceResetsTurnProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Fork preserves trace/request id and resets turn", prop.ForAll(
		func(traceID, parentSpanID, childSpanID, requestID string, turns int) bool {
			orig := agentcontext.New()
			orig.WithTraceContext(traceID, parentSpanID)
			orig.WithRequestID(requestID)
			for i := 0; i < turns; i++ {
				orig.IncrementTurn()
			}

			child := orig.Fork(childSpanID)

			if child.TraceID() != traceID {
				return false
			}
			if child.SpanID() != childSpanID {
				return false
			}
			if child.RequestID() != requestID {
				return false
			}
			return child.TurnCount() == 0
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
