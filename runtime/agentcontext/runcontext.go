package agentcontext

import "context"

type runContextKey struct{}

// WithRunContext binds ac to ctx so that code invoked deeper in the call
// stack without a direct *Context parameter — notably tool.Invoker
// closures, which only receive a plain context.Context — can still recover
// the run's Context. The agent loop sets this once per Interact/
// InteractStream call, before any tool dispatch.
func WithRunContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, runContextKey{}, ac)
}

// FromRunContext recovers the Context bound by WithRunContext, if any.
// Supervisor- and hierarchy-style delegation tools use this to fork a
// sub-run context from the parent run without threading it through the
// tool.Invoker signature.
func FromRunContext(ctx context.Context) (*Context, bool) {
	ac, ok := ctx.Value(runContextKey{}).(*Context)
	return ac, ok
}
