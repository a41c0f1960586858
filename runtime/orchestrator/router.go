package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/telemetry"
)

// ErrNoRoutes is returned by NewRouter when called with no routes.
var ErrNoRoutes = errors.New("orchestrator: RouterAgent requires at least one route")

// Route names one candidate destination a RouterAgent may dispatch to.
type Route struct {
	Name        string
	Description string
	Target      agent.Interactable
}

// RouterAgent classifies a single user turn against a fixed set of Routes
// using one additional, tool-free model call, then delegates the whole
// conversation to the chosen Route's Target.
type RouterAgent struct {
	client    model.Client
	modelID   string
	routes    []Route
	fallback  agent.Interactable
	telemetry telemetry.Bundle
}

// RouterOption configures a RouterAgent at build time.
type RouterOption func(*RouterAgent)

// WithFallback sets the Interactable used when classification yields no
// usable route.
func WithFallback(target agent.Interactable) RouterOption {
	return func(r *RouterAgent) { r.fallback = target }
}

// WithRouterTelemetry overrides the default no-op telemetry bundle.
func WithRouterTelemetry(b telemetry.Bundle) RouterOption {
	return func(r *RouterAgent) { r.telemetry = b }
}

// NewRouter builds a RouterAgent issuing its classification call against
// modelID through client, with at least one route.
func NewRouter(client model.Client, modelID string, routes []Route, opts ...RouterOption) (*RouterAgent, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: router model client must not be nil", agent.ErrConfig)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	r := &RouterAgent{
		client:    client,
		modelID:   modelID,
		routes:    append([]Route(nil), routes...),
		telemetry: telemetry.NewNoopBundle(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Routes returns a read-only view of the configured routes.
func (r *RouterAgent) Routes() []Route {
	return r.routes
}

// Classify issues the classification call and returns the selected route's
// Target, or nil if classification is inconclusive and no fallback is set.
func (r *RouterAgent) Classify(ctx context.Context, in *agentcontext.Context) (agent.Interactable, error) {
	req := &model.Request{
		Model:        r.modelID,
		Instructions: "You are a routing classifier. Reply with only the number of the single best matching route and nothing else.",
		Input:        append(append([]model.InputItem(nil), in.History()...), model.UserMessage{Text: r.classificationPrompt()}),
		Trace: model.TraceAttributes{
			ParentTraceID: in.TraceID(),
			ParentSpanID:  in.SpanID(),
			RequestID:     in.RequestID(),
		},
	}
	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	idx, ok := parseRouteIndex(resp, len(r.routes))
	if !ok {
		r.telemetry.Logger.Warn(ctx, "router classification inconclusive, using fallback", "routes", len(r.routes))
		return r.fallback, nil
	}
	r.telemetry.Logger.Info(ctx, "router classified route", "route", r.routes[idx-1].Name)
	return r.routes[idx-1].Target, nil
}

func (r *RouterAgent) classificationPrompt() string {
	var sb strings.Builder
	sb.WriteString("Choose the best matching route:\n")
	for i, route := range r.routes {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, route.Name, route.Description)
	}
	return sb.String()
}

func parseRouteIndex(resp *model.Response, numRoutes int) (int, bool) {
	var text string
	for _, item := range resp.Output {
		if m, ok := item.(model.MessageOutput); ok {
			text += m.Text
		}
	}
	idx, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || idx < 1 || idx > numRoutes {
		return 0, false
	}
	return idx, true
}

// Interact classifies in and delegates to the chosen route. If
// classification yields no target and no fallback is configured, the
// result is ErrorResult{agent.ErrRouteUnavailable}.
func (r *RouterAgent) Interact(ctx context.Context, in *agentcontext.Context) (agent.Result, error) {
	if in == nil {
		return agent.Result{}, fmt.Errorf("%w: context must not be nil", agent.ErrConfig)
	}
	ensureTrace(in)
	target, err := r.Classify(ctx, in)
	if err != nil {
		return agent.Result{Outcome: agent.ErrorResult{Cause: &agent.ModelError{Cause: err}, Context: in}}, nil
	}
	if target == nil {
		return agent.Result{Outcome: agent.ErrorResult{Cause: agent.ErrRouteUnavailable, Context: in}}, nil
	}
	return target.Interact(ctx, in)
}

// InteractStream classifies in synchronously before streaming begins, then
// forwards the rest of the run to the chosen route's own InteractStream.
// The classification decision itself is logged rather than delivered as a
// Stream callback, since Stream's fixed callback set has no route-decision
// event of its own.
func (r *RouterAgent) InteractStream(ctx context.Context, in *agentcontext.Context) *agent.Stream {
	if in == nil {
		return agent.NewFailedStream(agent.Result{Outcome: agent.ErrorResult{Cause: agent.ErrConfig}})
	}
	ensureTrace(in)
	target, err := r.Classify(ctx, in)
	if err != nil {
		return agent.NewFailedStream(agent.Result{Outcome: agent.ErrorResult{Cause: &agent.ModelError{Cause: err}, Context: in}})
	}
	if target == nil {
		return agent.NewFailedStream(agent.Result{Outcome: agent.ErrorResult{Cause: agent.ErrRouteUnavailable, Context: in}})
	}
	return target.InteractStream(ctx, in)
}
