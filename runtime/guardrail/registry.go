package guardrail

import (
	"fmt"
	"sync"
)

// Registry resolves a symbolic guardrail id to a live predicate. It exists
// solely to let a serialized Blueprint reference a guardrail by name instead
// of embedding an unserializable callback; round-tripping a blueprint
// requires every referenced id to already be registered in the Registry the
// caller supplies to the decoder.
//
// Registry implementations must be safe for concurrent reads and
// infrequent writes: Register typically happens once at process start,
// while Lookup happens on every blueprint decode.
type Registry interface {
	// RegisterInput registers an InputGuardrail under id, overwriting any
	// existing registration.
	RegisterInput(id string, g InputGuardrail)
	// RegisterOutput registers an OutputGuardrail under id, overwriting any
	// existing registration.
	RegisterOutput(id string, g OutputGuardrail)
	// LookupInput returns the InputGuardrail registered under id, if any.
	LookupInput(id string) (InputGuardrail, bool)
	// LookupOutput returns the OutputGuardrail registered under id, if any.
	LookupOutput(id string) (OutputGuardrail, bool)
}

// InMemoryRegistry is a process-wide Registry backed by a mutex-protected
// map. Construct one per process (see Global) unless tests require
// isolation, in which case construct a fresh instance per test.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	inputs  map[string]InputGuardrail
	outputs map[string]OutputGuardrail
}

// NewInMemoryRegistry constructs an empty InMemoryRegistry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		inputs:  make(map[string]InputGuardrail),
		outputs: make(map[string]OutputGuardrail),
	}
}

// RegisterInput implements Registry.
func (r *InMemoryRegistry) RegisterInput(id string, g InputGuardrail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs[id] = g
}

// RegisterOutput implements Registry.
func (r *InMemoryRegistry) RegisterOutput(id string, g OutputGuardrail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[id] = g
}

// LookupInput implements Registry.
func (r *InMemoryRegistry) LookupInput(id string) (InputGuardrail, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.inputs[id]
	return g, ok
}

// LookupOutput implements Registry.
func (r *InMemoryRegistry) LookupOutput(id string) (OutputGuardrail, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.outputs[id]
	return g, ok
}

// Clear removes every registered guardrail. Intended for test reset between
// cases that share the process-wide Global registry.
func (r *InMemoryRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = make(map[string]InputGuardrail)
	r.outputs = make(map[string]OutputGuardrail)
}

var global = NewInMemoryRegistry()

// Global returns the process-wide Registry used by NamedInput/NamedOutput
// when no explicit Registry is supplied. Tests that need isolation should
// construct their own InMemoryRegistry instead of depending on Global.
func Global() *InMemoryRegistry { return global }

// NamedInput registers predicate under id in the Global registry and
// returns an InputGuardrail wrapping it, so the same value can be installed
// on an Agent and later resolved from a Blueprint reference.
func NamedInput(id string, predicate InputGuardrailFunc) InputGuardrail {
	global.RegisterInput(id, predicate)
	return predicate
}

// NamedOutput registers predicate under id in the Global registry and
// returns an OutputGuardrail wrapping it.
func NamedOutput(id string, predicate OutputGuardrailFunc) OutputGuardrail {
	global.RegisterOutput(id, predicate)
	return predicate
}

// ErrNotRegistered is returned by ResolveInput/ResolveOutput when id has no
// registration. Blueprint decoding reports the same condition as a
// *blueprint.ErrUnresolved.
type ErrNotRegistered struct {
	ID   string
	Kind string
}

func (e *ErrNotRegistered) Error() string {
	return fmt.Sprintf("guardrail: %s guardrail %q is not registered", e.Kind, e.ID)
}

// ResolveInput looks up id in reg and wraps the miss as *ErrNotRegistered.
func ResolveInput(reg Registry, id string) (InputGuardrail, error) {
	g, ok := reg.LookupInput(id)
	if !ok {
		return nil, &ErrNotRegistered{ID: id, Kind: "input"}
	}
	return g, nil
}

// ResolveOutput looks up id in reg and wraps the miss as *ErrNotRegistered.
func ResolveOutput(reg Registry, id string) (OutputGuardrail, error) {
	g, ok := reg.LookupOutput(id)
	if !ok {
		return nil, &ErrNotRegistered{ID: id, Kind: "output"}
	}
	return g, nil
}
