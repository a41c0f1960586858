package traceid_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/traceid"
)

func TestNewShapes(t *testing.T) {
	tid, err := traceid.New()
	require.NoError(t, err)
	require.Len(t, tid, 32)
	require.True(t, traceid.ValidTraceID(tid))

	sid, err := traceid.NewSpan()
	require.NoError(t, err)
	require.Len(t, sid, 16)
	require.True(t, traceid.ValidSpanID(sid))
}

func TestValidators(t *testing.T) {
	require.True(t, traceid.ValidTraceID("0123456789abcdef0123456789abcdef"))
	require.False(t, traceid.ValidTraceID("0123456789ABCDEF0123456789abcdef"))
	require.False(t, traceid.ValidTraceID("too-short"))
	require.True(t, traceid.ValidSpanID("0123456789abcdef"))
	require.False(t, traceid.ValidSpanID("0123456789abcdef00"))
}

func TestNewUnique(t *testing.T) {
	a := traceid.MustNew()
	b := traceid.MustNew()
	require.NotEqual(t, a, b)
}
