package agent

import "github.com/paragon-intelligence/agentle4j-sub001/runtime/traceid"

// traceIDGenerator and spanIDGenerator are package-level seams so tests can
// substitute deterministic ids instead of random ones.
var (
	traceIDGenerator = traceid.New
	spanIDGenerator  = traceid.NewSpan
)
