package agentcontext_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

func TestWithHistoryRejectsNil(t *testing.T) {
	c := agentcontext.New()
	_, err := c.WithHistory(nil)
	require.ErrorIs(t, err, agentcontext.ErrNilHistory)
}

func TestSetStateRemovesOnNil(t *testing.T) {
	c := agentcontext.New()
	c.SetState("k", "v")
	require.True(t, c.HasState("k"))
	c.SetState("k", nil)
	require.False(t, c.HasState("k"))
}

func TestGetStateAsTypedNarrowing(t *testing.T) {
	c := agentcontext.New()
	c.SetState("count", 42)
	v, ok := agentcontext.GetStateAs[int](c, "count")
	require.True(t, ok)
	require.Equal(t, 42, v)

	_, ok = agentcontext.GetStateAs[string](c, "count")
	require.False(t, ok)

	_, ok = agentcontext.GetStateAs[int](c, "missing")
	require.False(t, ok)
}

func TestCopyIsDisjoint(t *testing.T) {
	orig := agentcontext.New().AddMessage("hi")
	orig.SetState("k", "v")
	orig.WithTraceContext("0123456789abcdef0123456789abcdef", "0123456789abcdef")
	orig.IncrementTurn()

	clone := orig.Copy()
	clone.AddMessage("mutated")
	clone.SetState("k", "mutated")
	clone.IncrementTurn()

	require.Len(t, orig.History(), 1)
	require.Len(t, clone.History(), 2)
	v, _ := orig.GetState("k")
	require.Equal(t, "v", v)
	cv, _ := clone.GetState("k")
	require.Equal(t, "mutated", cv)
	require.Equal(t, 1, orig.TurnCount())
	require.Equal(t, 2, clone.TurnCount())
}

func TestForkPreservesTraceResetsTurn(t *testing.T) {
	orig := agentcontext.New()
	orig.WithTraceContext("0123456789abcdef0123456789abcdef", "0123456789abcdef")
	orig.WithRequestID("req-1")
	orig.SetState("k", "v")
	orig.IncrementTurn()
	orig.IncrementTurn()

	child := orig.Fork("fedcba9876543210")

	require.Equal(t, orig.TraceID(), child.TraceID())
	require.Equal(t, "fedcba9876543210", child.SpanID())
	require.Equal(t, "req-1", child.RequestID())
	require.Equal(t, 0, child.TurnCount())
	v, ok := child.GetState("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestClearResetsEverything(t *testing.T) {
	c := agentcontext.New().AddMessage("hi")
	c.SetState("k", "v")
	c.WithTraceContext("0123456789abcdef0123456789abcdef", "0123456789abcdef")
	c.IncrementTurn()

	c.Clear()

	require.Empty(t, c.History())
	require.False(t, c.HasState("k"))
	require.Equal(t, 0, c.TurnCount())
	require.False(t, c.HasTraceContext())
}

func TestHistoryMutableIsIndependent(t *testing.T) {
	c := agentcontext.New().AddMessage("hi")
	snap := c.HistoryMutable()
	snap[0] = model.UserMessage{Text: "mutated"}
	require.Equal(t, "hi", c.History()[0].(model.UserMessage).Text)
}
