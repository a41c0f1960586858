// Package agentcontext defines Context, the per-run state holder carried
// through every turn of the agentic loop: conversation history, a
// string-keyed property bag, a turn counter, and trace-correlation
// identifiers.
//
// Context is not safe for concurrent use. Orchestrators that fan out to
// multiple children must Copy (or Fork) a Context before handing it to a
// concurrent branch; see runtime/orchestrator.
package agentcontext

import (
	"errors"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

// ErrNilHistory is returned by WithHistory when passed a nil slice: callers
// must pass an explicit (possibly empty) slice to make intent unambiguous.
var ErrNilHistory = errors.New("agentcontext: history must not be nil")

// Context is the per-run state holder threaded through Agent.Interact and
// every orchestrator. See the package doc for the concurrency contract.
type Context struct {
	history []model.InputItem
	state   map[string]any
	turn    int

	traceID   string
	spanID    string
	requestID string
}

// New constructs an empty Context with no history, state, or trace
// identity.
func New() *Context {
	return &Context{state: make(map[string]any)}
}

// WithHistory replaces the Context's history with a copy of items. Passing
// nil is an error; pass an empty slice to explicitly clear history.
func (c *Context) WithHistory(items []model.InputItem) (*Context, error) {
	if items == nil {
		return nil, ErrNilHistory
	}
	c.history = append([]model.InputItem(nil), items...)
	return c, nil
}

// AddInput appends a single InputItem to history.
func (c *Context) AddInput(item model.InputItem) *Context {
	c.history = append(c.history, item)
	return c
}

// AddMessage appends a UserMessage with the given text to history. It is a
// convenience wrapper around AddInput for the common case.
func (c *Context) AddMessage(text string) *Context {
	return c.AddInput(model.UserMessage{Text: text})
}

// History returns a read-only view over the current history. Callers must
// not retain the returned slice across further mutation of c; use
// HistoryMutable for an independent snapshot.
func (c *Context) History() []model.InputItem {
	return c.history
}

// HistoryMutable returns an independent copy of the current history that
// the caller may freely modify without affecting c.
func (c *Context) HistoryMutable() []model.InputItem {
	return append([]model.InputItem(nil), c.history...)
}

// SetState sets key to value in the property bag. Passing a nil value
// removes the key.
func (c *Context) SetState(key string, value any) *Context {
	if value == nil {
		delete(c.state, key)
		return c
	}
	c.state[key] = value
	return c
}

// GetState returns the raw value stored at key and whether it was present.
func (c *Context) GetState(key string) (any, bool) {
	v, ok := c.state[key]
	return v, ok
}

// HasState reports whether key is present in the property bag.
func (c *Context) HasState(key string) bool {
	_, ok := c.state[key]
	return ok
}

// AllState returns a read-only view over the property bag.
func (c *Context) AllState() map[string]any {
	return c.state
}

// GetStateAs narrows the value stored at key to T. It returns the zero value
// of T and false when the key is absent or the stored value is not
// assignable to T, rather than panicking.
func GetStateAs[T any](c *Context, key string) (T, bool) {
	var zero T
	raw, ok := c.GetState(key)
	if !ok {
		return zero, false
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// IncrementTurn advances the turn counter and returns the new value.
func (c *Context) IncrementTurn() int {
	c.turn++
	return c.turn
}

// TurnCount returns the current turn counter.
func (c *Context) TurnCount() int {
	return c.turn
}

// HasTraceContext reports whether a trace id has been established on c.
func (c *Context) HasTraceContext() bool {
	return c.traceID != ""
}

// TraceID returns the current trace id, or "" if none has been set.
func (c *Context) TraceID() string { return c.traceID }

// SpanID returns the current span id, or "" if none has been set.
func (c *Context) SpanID() string { return c.spanID }

// RequestID returns the current request id, or "" if none has been set.
func (c *Context) RequestID() string { return c.requestID }

// WithTraceContext sets the trace and span id on c.
func (c *Context) WithTraceContext(traceID, spanID string) *Context {
	c.traceID = traceID
	c.spanID = spanID
	return c
}

// WithRequestID sets the request id on c.
func (c *Context) WithRequestID(id string) *Context {
	c.requestID = id
	return c
}

// Copy returns a deep, independent copy of c: history, state, turn count,
// and trace ids are all duplicated so that mutating the copy never affects
// the original, and vice versa.
func (c *Context) Copy() *Context {
	clone := &Context{
		history:   append([]model.InputItem(nil), c.history...),
		state:     make(map[string]any, len(c.state)),
		turn:      c.turn,
		traceID:   c.traceID,
		spanID:    c.spanID,
		requestID: c.requestID,
	}
	for k, v := range c.state {
		clone.state[k] = v
	}
	return clone
}

// Fork returns a child Context that preserves this Context's trace id and
// request id but receives a new parent span id, a copy of the state bag,
// and a turn counter reset to zero. History is copied, not shared. Fork is
// the operation used when an orchestrator hands a shared conversation
// context to a sub-run whose own turn accounting must start fresh while
// remaining correlated to the parent trace.
func (c *Context) Fork(newSpanID string) *Context {
	clone := c.Copy()
	clone.spanID = newSpanID
	clone.turn = 0
	return clone
}

// Clear resets history, state, and turn count to empty/zero and clears all
// trace identity.
func (c *Context) Clear() *Context {
	c.history = nil
	c.state = make(map[string]any)
	c.turn = 0
	c.traceID = ""
	c.spanID = ""
	c.requestID = ""
	return c
}
